package integrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/austimes/report-writer/internal/llm"
	"github.com/austimes/report-writer/internal/outline"
	"github.com/austimes/report-writer/internal/prompts"
	"github.com/austimes/report-writer/internal/reportstate"
	"github.com/austimes/report-writer/internal/sectionmeta"
)

var (
	stateUpdateRe    = regexp.MustCompile(`(?s)<!--\s*REPORT_STATE_UPDATE\s*\n(.*?)\n\s*-->`)
	figureWithPathRe = regexp.MustCompile(`!\[.*?\]\(figures/.*?\)`)
)

// StateResult is the outcome of a state-tracked integration pass.
type StateResult struct {
	IntegratedContent string
	State             *reportstate.State
	SectionsModified  []string
	DuplicatesRemoved int
	CrossRefsAdded    int
	Usage             llm.Usage
	ValidationPassed  bool
	ValidationMessage string
}

// IntegrateWithState runs the integration pass against the canonical
// figure/table registry. The LLM returns the integrated report plus a
// REPORT_STATE_UPDATE comment carrying the updated registry; a missing or
// unparseable update falls back to the original state.
func (in *Integrator) IntegrateWithState(ctx context.Context, reportContent string, state *reportstate.State, sections []outline.Section, maxChangeRatio float64) (*StateResult, error) {
	if maxChangeRatio <= 0 {
		maxChangeRatio = DefaultMaxChangeRatio
	}

	in.emit("Building integration prompt...")
	prompt, err := buildStatePrompt(reportContent, state, sections)
	if err != nil {
		return nil, err
	}

	if in.dryRun {
		in.emit("[DRY RUN] Would call LLM for integration")
		return &StateResult{
			IntegratedContent: reportContent,
			State:             state,
			ValidationPassed:  true,
			ValidationMessage: "Dry run - no changes made",
		}, nil
	}

	in.emit("Calling " + in.model + " for integration pass...")
	responseText, usage, err := in.gen.Generate(ctx, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("integration call failed: %w", err)
	}
	in.emit(fmt.Sprintf("LLM response received ($%.4f)", usage.CostUSD))

	in.emit("Parsing integration response...")
	integrated, updatedState := in.parseStateResponse(responseText, state)

	in.emit("Validating changes...")
	valid, message := validateChangeRatio(reportContent, integrated, maxChangeRatio)

	var modified []string
	for _, section := range sections {
		origBody := sectionBody(reportContent, section.ID)
		newBody := sectionBody(integrated, section.ID)
		if origBody != newBody {
			modified = append(modified, section.ID)
		}
	}

	duplicatesRemoved := len(figureWithPathRe.FindAllString(reportContent, -1)) -
		len(figureWithPathRe.FindAllString(integrated, -1))
	crossRefsAdded := countCrossRefsAdded(reportContent, integrated)

	for _, sectionID := range modified {
		updatedState.MarkSectionIntegrated(sectionID)
	}

	return &StateResult{
		IntegratedContent: integrated,
		State:             updatedState,
		SectionsModified:  modified,
		DuplicatesRemoved: max(0, duplicatesRemoved),
		CrossRefsAdded:    crossRefsAdded,
		Usage:             usage,
		ValidationPassed:  valid,
		ValidationMessage: message,
	}, nil
}

func buildStatePrompt(reportContent string, state *reportstate.State, sections []outline.Section) (string, error) {
	stateJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return "", err
	}
	return prompts.Format("report_integration", map[string]string{
		"section_count":       fmt.Sprintf("%d", len(sections)),
		"report_state_json":   string(stateJSON),
		"full_report_content": reportContent,
		"report_id":           state.ReportID,
	})
}

// parseStateResponse splits the LLM response into integrated content and the
// registry update.
func (in *Integrator) parseStateResponse(response string, original *reportstate.State) (string, *reportstate.State) {
	m := stateUpdateRe.FindStringSubmatch(response)
	if m == nil {
		in.emit("Warning: No REPORT_STATE_UPDATE block found in response")
		return response, original
	}

	integrated := strings.TrimSpace(stateUpdateRe.ReplaceAllString(response, ""))

	var update reportstate.State
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &update); err != nil {
		in.emit(fmt.Sprintf("Warning: Could not parse REPORT_STATE_UPDATE: %v", err))
		return integrated, original
	}

	if update.ReportID == "" {
		update.ReportID = original.ReportID
	}
	if update.SectionMeta == nil {
		update.SectionMeta = map[string]*reportstate.SectionMeta{}
	}
	update.CreatedAt = original.CreatedAt
	return integrated, &update
}

func sectionBody(content, sectionID string) string {
	if m := sectionBodyPattern(sectionID).FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// WriteSectionHints injects REPORT_SECTION_META comments into the section
// files so the next generation round knows which figures already exist
// elsewhere in the report.
func WriteSectionHints(sectionsDir string, sections []outline.Section, state *reportstate.State) error {
	for i, section := range sections {
		path := filepath.Join(sectionsDir, fmt.Sprintf("%02d_%s.md", i+1, section.ID))
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		hints := &sectionmeta.IntegrationHints{
			AvoidFigures:     []string{},
			CanonicalFigures: []map[string]any{},
			Notes:            []sectionmeta.IntegrationNote{},
		}
		for _, fig := range state.FiguresNotOwnedBy(section.ID) {
			hints.AvoidFigures = append(hints.AvoidFigures, fig.ID)
		}
		for _, fig := range state.Figures {
			hints.CanonicalFigures = append(hints.CanonicalFigures, map[string]any{
				"id":            fig.ID,
				"semantic_key":  fig.SemanticKey,
				"owner_section": fig.OwnerSection,
				"caption":       fig.Caption,
			})
		}

		meta := sectionmeta.Meta{
			SectionID:        section.ID,
			Version:          state.GetSectionMeta(section.ID).Version,
			IntegrationHints: hints,
		}
		updated := sectionmeta.Inject(string(data), meta)
		if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
			return err
		}
	}
	return nil
}
