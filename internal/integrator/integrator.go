// Package integrator runs the whole-report integration pass: the assembled
// markdown goes to the text generator for figure deduplication and
// cross-referencing, and the response is accepted only when section markers
// survive and the word-level change ratio stays within bounds.
package integrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/austimes/report-writer/internal/llm"
	"github.com/austimes/report-writer/internal/prompts"
)

// DefaultMaxChangeRatio is the default bound on how much of the report the
// integration pass may rewrite.
const DefaultMaxChangeRatio = 0.3

var (
	sectionBeginRe = regexp.MustCompile(`(?i)<!--\s*BEGIN SECTION:\s*([a-zA-Z0-9_-]+)`)
	figureRe       = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	crossRefRe     = regexp.MustCompile(`(?i)(?:see\s+)?(?:Figure|Table)\s+\d+`)
	mdFenceRe      = regexp.MustCompile("(?s)```(?:markdown)?\\s*(.*?)```")
	runSnapshotRe  = regexp.MustCompile(`^run(\d+)_before\.md$`)
)

// Result is the outcome of one integration pass.
type Result struct {
	IntegratedContent string
	SectionsModified  []string
	DuplicatesRemoved int
	CrossRefsAdded    int
	Usage             llm.Usage
	ValidationPassed  bool
	ValidationMessage string
	RunID             int
	BeforePath        string
	AfterPath         string
}

// Integrator wraps the LLM integration call with snapshotting and
// validation. Markdown in, markdown out.
type Integrator struct {
	gen        llm.TextGenerator
	model      string
	dryRun     bool
	onProgress func(string)
}

// New builds an integrator. onProgress may be nil.
func New(gen llm.TextGenerator, model string, dryRun bool, onProgress func(string)) *Integrator {
	return &Integrator{gen: gen, model: model, dryRun: dryRun, onProgress: onProgress}
}

func (in *Integrator) emit(message string) {
	if in.onProgress != nil {
		in.onProgress(message)
	}
}

// Integrate runs the pass over assembled report content. outputDir may be
// empty to skip snapshots; maxChangeRatio <= 0 uses the default.
func (in *Integrator) Integrate(ctx context.Context, reportContent, outputDir string, maxChangeRatio float64) (*Result, error) {
	if maxChangeRatio <= 0 {
		maxChangeRatio = DefaultMaxChangeRatio
	}

	runID := 0
	beforePath := ""
	integrationDir := ""
	if outputDir != "" {
		integrationDir = filepath.Join(outputDir, "_integration")
		if err := os.MkdirAll(integrationDir, 0755); err != nil {
			return nil, err
		}
		runID = nextRunID(integrationDir)
		beforePath = filepath.Join(integrationDir, fmt.Sprintf("run%03d_before.md", runID))
		in.emit("Saving pre-integration snapshot: " + filepath.Base(beforePath))
		if err := os.WriteFile(beforePath, []byte(reportContent), 0644); err != nil {
			return nil, err
		}
	}

	sectionIDs := extractSectionIDs(reportContent)
	wordCount := len(strings.Fields(reportContent))
	figureCount := len(figureRe.FindAllString(reportContent, -1))
	in.emit(fmt.Sprintf("Report analysis: %d sections, ~%d words, %d figures", len(sectionIDs), wordCount, figureCount))

	if in.dryRun {
		in.emit("[DRY RUN] Would call LLM for integration")
		return &Result{
			IntegratedContent: reportContent,
			ValidationPassed:  true,
			ValidationMessage: "Dry run - no changes made",
			RunID:             runID,
			BeforePath:        beforePath,
		}, nil
	}

	prompt, err := prompts.Format("report_integration_simple", map[string]string{
		"full_report_content": reportContent,
	})
	if err != nil {
		return nil, err
	}

	in.emit("Calling " + in.model + " for integration pass...")
	responseText, usage, err := in.gen.Generate(ctx, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("integration call failed: %w", err)
	}
	in.emit(fmt.Sprintf("LLM response received: %d in / %d out tokens, $%.4f",
		usage.InputTokens, usage.OutputTokens, usage.CostUSD))

	integrated := extractMarkdown(responseText)

	markersValid, markerMsg := validateSectionMarkers(reportContent, integrated)
	if !markersValid {
		in.emit("Section marker validation failed: " + markerMsg)
	}

	ratioValid, ratioMsg := validateChangeRatio(reportContent, integrated, maxChangeRatio)
	in.emit(ratioMsg)

	allValid := ratioValid && markersValid
	combinedMsg := ratioMsg
	if !markersValid {
		combinedMsg = markerMsg + "; " + ratioMsg
	}

	modified := detectModifiedSections(reportContent, integrated)
	duplicatesRemoved := countFigureRemovals(reportContent, integrated)
	crossRefsAdded := countCrossRefsAdded(reportContent, integrated)

	afterPath := ""
	if integrationDir != "" && allValid {
		afterPath = filepath.Join(integrationDir, fmt.Sprintf("run%03d_after.md", runID))
		in.emit("Saving post-integration snapshot: " + filepath.Base(afterPath))
		if err := os.WriteFile(afterPath, []byte(integrated), 0644); err != nil {
			return nil, err
		}
	}

	return &Result{
		IntegratedContent: integrated,
		SectionsModified:  modified,
		DuplicatesRemoved: max(0, duplicatesRemoved),
		CrossRefsAdded:    max(0, crossRefsAdded),
		Usage:             usage,
		ValidationPassed:  allValid,
		ValidationMessage: combinedMsg,
		RunID:             runID,
		BeforePath:        beforePath,
		AfterPath:         afterPath,
	}, nil
}

// nextRunID scans existing before-snapshots for the highest run number.
func nextRunID(integrationDir string) int {
	entries, err := os.ReadDir(integrationDir)
	if err != nil {
		return 1
	}
	maxID := 0
	for _, entry := range entries {
		m := runSnapshotRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > maxID {
			maxID = n
		}
	}
	return maxID + 1
}

func extractSectionIDs(content string) []string {
	var ids []string
	for _, m := range sectionBeginRe.FindAllStringSubmatch(content, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// extractMarkdown strips an optional ```markdown fence from the response.
func extractMarkdown(responseText string) string {
	if m := mdFenceRe.FindStringSubmatch(responseText); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(responseText)
}

func validateSectionMarkers(original, integrated string) (bool, string) {
	originalIDs := toSet(extractSectionIDs(original))
	integratedIDs := toSet(extractSectionIDs(integrated))

	var problems []string
	if missing := setDiff(originalIDs, integratedIDs); len(missing) > 0 {
		problems = append(problems, "missing sections: "+strings.Join(missing, ", "))
	}
	if added := setDiff(integratedIDs, originalIDs); len(added) > 0 {
		problems = append(problems, "unexpected sections: "+strings.Join(added, ", "))
	}
	if len(problems) > 0 {
		return false, strings.Join(problems, "; ")
	}
	return true, "All section markers preserved"
}

// validateChangeRatio compares word sequences; the change ratio is one minus
// the SequenceMatcher similarity ratio.
func validateChangeRatio(original, integrated string, maxChangeRatio float64) (bool, string) {
	matcher := difflib.NewMatcher(strings.Fields(original), strings.Fields(integrated))
	changeRatio := 1.0 - matcher.Ratio()

	if changeRatio > maxChangeRatio {
		return false, fmt.Sprintf("Changes exceed threshold: %.1f%% changed (max: %.1f%%)",
			changeRatio*100, maxChangeRatio*100)
	}
	return true, fmt.Sprintf("Changes within bounds: %.1f%% changed", changeRatio*100)
}

func sectionBodyPattern(id string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(id)
	return regexp.MustCompile(`(?s)<!--\s*BEGIN SECTION:\s*` + quoted + `\b.*?-->(.*?)<!--\s*END SECTION:\s*` + quoted + `\s*-->`)
}

func detectModifiedSections(original, integrated string) []string {
	var modified []string
	for _, id := range extractSectionIDs(original) {
		pattern := sectionBodyPattern(id)
		origBlock := pattern.FindStringSubmatch(original)
		if origBlock == nil {
			continue
		}
		newBody := ""
		if newBlock := pattern.FindStringSubmatch(integrated); newBlock != nil {
			newBody = strings.TrimSpace(newBlock[1])
		}
		if strings.TrimSpace(origBlock[1]) != newBody {
			modified = append(modified, id)
		}
	}
	return modified
}

func countFigureRemovals(original, integrated string) int {
	return len(figureRe.FindAllString(original, -1)) - len(figureRe.FindAllString(integrated, -1))
}

func countCrossRefsAdded(original, integrated string) int {
	added := len(crossRefRe.FindAllString(integrated, -1)) - len(crossRefRe.FindAllString(original, -1))
	return max(0, added)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func setDiff(a, b map[string]bool) []string {
	var out []string
	for item := range a {
		if !b[item] {
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}
