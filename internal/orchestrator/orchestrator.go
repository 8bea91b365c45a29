// Package orchestrator drives report generation: it loads the outline and
// chart catalog, maps charts to sections, builds prompts, calls the text
// generator, and assembles section files into the final report.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/austimes/report-writer/internal/catalog"
	"github.com/austimes/report-writer/internal/chartdata"
	"github.com/austimes/report-writer/internal/llm"
	"github.com/austimes/report-writer/internal/mapper"
	"github.com/austimes/report-writer/internal/outline"
	"github.com/austimes/report-writer/internal/prompts"
)

// Fallback reviewer example used when no review comments exist yet.
const (
	exampleReviewerName  = "Skeptical Steve McDoubtface"
	exampleReviewerNotes = "I've seen better analysis on the back of a cereal box, but at least this one has charts."
)

// Result is the outcome of generating or revising one section.
type Result struct {
	SectionID    string
	SectionTitle string
	Content      string
	ChartsUsed   []string
	Prompt       string
	DryRun       bool
	Usage        llm.Usage
}

// Options configures an orchestrator.
type Options struct {
	OutlinePath string
	DataRoot    string
	OutputDir   string
	Model       string
	DryRun      bool
	Generator   llm.TextGenerator
	OnProgress  func(string)
	LLMLogDir   string
}

// Orchestrator coordinates outline, chart data, and the LLM for one run.
type Orchestrator struct {
	outlinePath string
	dataRoot    string
	outputDir   string
	model       string
	dryRun      bool
	gen         llm.TextGenerator
	onProgress  func(string)
	llmLogDir   string

	sections []outline.Section
	catalog  *catalog.Catalog
	mapper   *mapper.Mapper
	reader   *chartdata.Reader

	currentSectionID string
}

// New loads the outline and catalog and returns a ready orchestrator. A
// missing outline or data root is not an error; the corresponding lookups
// just come back empty.
func New(opts Options) (*Orchestrator, error) {
	o := &Orchestrator{
		outlinePath: opts.OutlinePath,
		dataRoot:    opts.DataRoot,
		outputDir:   opts.OutputDir,
		model:       opts.Model,
		dryRun:      opts.DryRun,
		gen:         opts.Generator,
		onProgress:  opts.OnProgress,
		llmLogDir:   opts.LLMLogDir,
	}
	if o.llmLogDir == "" {
		if o.outputDir != "" {
			o.llmLogDir = filepath.Join(o.outputDir, "_llm_calls")
		} else {
			o.llmLogDir = filepath.Join(o.dataRoot, "_llm_calls")
		}
	}

	o.emit("Loading outline from " + o.outlinePath)
	if fileExists(o.outlinePath) {
		sections, err := outline.ParseOutline(o.outlinePath)
		if err != nil {
			return nil, fmt.Errorf("parse outline: %w", err)
		}
		o.sections = sections
		o.emit(fmt.Sprintf("Loaded %d sections", len(sections)))
	}

	o.emit("Loading data catalog from " + o.dataRoot)
	if dirExists(o.dataRoot) {
		o.catalog = catalog.New(o.dataRoot)
		o.mapper = mapper.New(o.catalog, o.findMappingFile())
		o.reader = chartdata.NewReader(o.catalog)
		o.emit(fmt.Sprintf("Loaded %d charts", len(o.catalog.ListCharts(""))))
	}

	return o, nil
}

func (o *Orchestrator) emit(message string) {
	if o.onProgress != nil {
		o.onProgress(message)
	}
}

// findMappingFile looks for section_chart_map.json next to the data, then
// next to the outline.
func (o *Orchestrator) findMappingFile() string {
	dataMapping := filepath.Join(o.dataRoot, "section_chart_map.json")
	if fileExists(dataMapping) {
		o.emit("Using mapping file: " + dataMapping)
		return dataMapping
	}
	outlineMapping := filepath.Join(filepath.Dir(o.outlinePath), "section_chart_map.json")
	if fileExists(outlineMapping) {
		o.emit("Using mapping file: " + outlineMapping)
		return outlineMapping
	}
	o.emit("No section_chart_map.json found, using auto-mapping")
	return ""
}

// Sections returns the parsed outline sections in document order.
func (o *Orchestrator) Sections() []outline.Section { return o.sections }

// Catalog returns the chart catalog, or nil when no data root was found.
func (o *Orchestrator) Catalog() *catalog.Catalog { return o.catalog }

// Section finds a section by ID.
func (o *Orchestrator) Section(sectionID string) (*outline.Section, bool) {
	for i := range o.sections {
		if o.sections[i].ID == sectionID {
			return &o.sections[i], true
		}
	}
	return nil, false
}

// ChartsForSection returns the charts mapped to a section.
func (o *Orchestrator) ChartsForSection(section outline.Section) []*catalog.ChartMeta {
	if o.mapper == nil {
		return nil
	}
	return o.mapper.ChartsForSectionContext(section)
}

// ChartSummary returns the summary for a chart, or nil when the chart or its
// data is unavailable.
func (o *Orchestrator) ChartSummary(chartID string) *chartdata.ChartSummary {
	if o.reader == nil {
		return nil
	}
	summary, err := o.reader.Summary(chartID)
	if err != nil {
		return nil
	}
	return summary
}

func (o *Orchestrator) sectionIndex(section *outline.Section) int {
	for i := range o.sections {
		if o.sections[i].ID == section.ID {
			return i + 1
		}
	}
	return 0
}

// sectionPath returns the canonical _sections/ file for a section, creating
// the directory as needed.
func (o *Orchestrator) sectionPath(section *outline.Section) (string, error) {
	if o.outputDir == "" {
		return "", fmt.Errorf("output dir must be set to get section path")
	}
	sectionsDir := filepath.Join(o.outputDir, "_sections")
	if err := os.MkdirAll(sectionsDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%02d_%s.md", o.sectionIndex(section), section.ID)
	return filepath.Join(sectionsDir, filename), nil
}

// existingSectionBody prefers the _sections/ file over outline content so
// manual edits feed into subsequent LLM operations.
func (o *Orchestrator) existingSectionBody(section *outline.Section) string {
	if o.outputDir != "" {
		if path, err := o.sectionPath(section); err == nil {
			if data, err := os.ReadFile(path); err == nil {
				return string(data)
			}
		}
	}
	return section.Content
}

func (o *Orchestrator) setupFiguresDir() (string, error) {
	if o.outputDir == "" {
		return "", nil
	}
	figuresDir := filepath.Join(o.outputDir, "figures")
	if err := os.MkdirAll(figuresDir, 0755); err != nil {
		return "", err
	}
	return figuresDir, nil
}

// copyChartFigures copies chart PNGs and CSVs into figures/ and returns the
// copied PNG filenames.
func (o *Orchestrator) copyChartFigures(figuresDir string, charts []*catalog.ChartMeta) []string {
	if figuresDir == "" {
		return nil
	}
	var copied []string
	for _, chart := range charts {
		if chart.PNGPath != "" && fileExists(chart.PNGPath) {
			destName := chart.ID + ".png"
			if err := copyFile(chart.PNGPath, filepath.Join(figuresDir, destName)); err == nil {
				copied = append(copied, destName)
				o.emit("Copied figure: " + destName)
			}
		}
		if chart.CSVPath != "" && fileExists(chart.CSVPath) {
			csvName := chart.ID + ".csv"
			if err := copyFile(chart.CSVPath, filepath.Join(figuresDir, csvName)); err == nil {
				o.emit("Copied CSV: " + csvName)
			}
		}
	}
	return copied
}

// BuildSectionPrompt renders the generation prompt for a section.
func (o *Orchestrator) BuildSectionPrompt(section *outline.Section, charts []*catalog.ChartMeta) (string, error) {
	parentLine := ""
	if section.ParentID != "" {
		if parent, ok := o.Section(section.ParentID); ok {
			parentLine = "- **Parent Section**: " + parent.Title
		}
	}

	instructionsBlock := ""
	if section.Instructions != "" {
		instructionsBlock = "## Instructions\n" + section.Instructions
	}

	existingBlock := ""
	if body := o.existingSectionBody(section); body != "" {
		truncated := body
		if len(body) > 2000 {
			truncated = body[:2000] + "..."
		}
		existingBlock = "## Existing Content\nThe section currently contains:\n```\n" + truncated + "\n```"
	}

	return prompts.Format("section_generation", map[string]string{
		"section_title":          section.Title,
		"heading_markers":        strings.Repeat("#", section.Level),
		"section_level":          fmt.Sprintf("%d", section.Level),
		"parent_section_line":    parentLine,
		"instructions_block":     instructionsBlock,
		"existing_content_block": existingBlock,
		"available_data_block":   o.buildAvailableDataBlock(charts),
	})
}

// BuildRevisionPrompt renders the revision prompt for a section with review
// feedback.
func (o *Orchestrator) BuildRevisionPrompt(section *outline.Section, charts []*catalog.ChartMeta, extraRevisionNotes string) (string, error) {
	parentLine := ""
	if section.ParentID != "" {
		if parent, ok := o.Section(section.ParentID); ok {
			parentLine = "- **Parent Section**: " + parent.Title
		}
	}

	instructionsBlock := section.Instructions
	if instructionsBlock == "" {
		instructionsBlock = "(No specific instructions)"
	}

	existingContent := o.existingSectionBody(section)
	if len(existingContent) > 4000 {
		existingContent = existingContent[:4000] + "\n\n[...content truncated for length...]"
	}

	reviewLines := []string{"### Current Review Feedback"}
	if section.ReviewAuthor != "" {
		reviewLines = append(reviewLines, "- **Reviewer**: "+section.ReviewAuthor)
	}
	if len(section.ReviewRatings) > 0 {
		var pairs []string
		for _, key := range sortedKeys(section.ReviewRatings) {
			pairs = append(pairs, fmt.Sprintf("%s=%d", key, section.ReviewRatings[key]))
		}
		reviewLines = append(reviewLines, "- **Ratings**: "+strings.Join(pairs, ", "))
	}
	if section.ReviewNotes != "" {
		reviewLines = append(reviewLines, "\n**Review Notes** (address these explicitly):")
		reviewLines = append(reviewLines, "```\n"+section.ReviewNotes+"\n```")
	}
	if extraRevisionNotes != "" {
		reviewLines = append(reviewLines, "\n**Additional Revision Instructions**:")
		reviewLines = append(reviewLines, extraRevisionNotes)
	}
	if section.ReviewNotes == "" && extraRevisionNotes == "" {
		reviewLines = append(reviewLines, "(No specific feedback provided)")
	}

	return prompts.Format("section_revision", map[string]string{
		"section_title":        section.Title,
		"heading_markers":      strings.Repeat("#", section.Level),
		"parent_section_line":  parentLine,
		"instructions_block":   instructionsBlock,
		"existing_content":     existingContent,
		"review_block":         strings.Join(reviewLines, "\n"),
		"available_data_block": o.buildAvailableDataBlock(charts),
	})
}

// buildAvailableDataBlock describes the mapped charts for a prompt: metadata,
// summary statistics, and top insights per chart.
func (o *Orchestrator) buildAvailableDataBlock(charts []*catalog.ChartMeta) string {
	if len(charts) == 0 {
		return ""
	}

	lines := []string{
		"## Available Data",
		fmt.Sprintf("The following %d chart(s) are available for this section:", len(charts)),
		"",
	}
	for _, chart := range charts {
		lines = append(lines, "### "+chart.Title)
		lines = append(lines, "- **ID**: "+chart.ID)
		lines = append(lines, "- **Category**: "+chart.Category)
		if chart.PNGPath != "" && fileExists(chart.PNGPath) {
			lines = append(lines, fmt.Sprintf("- **Figure Path**: `figures/%s.png`", chart.ID))
		}
		if chart.Units != "" {
			lines = append(lines, "- **Units**: "+chart.Units)
		}
		if len(chart.Dimensions) > 0 {
			lines = append(lines, "- **Dimensions**: "+strings.Join(chart.Dimensions, ", "))
		}

		if summary := o.ChartSummary(chart.ID); summary != nil {
			lines = append(lines, "- **Scenarios**: "+strings.Join(summary.Scenarios, ", "))
			if len(summary.Years) > 0 {
				lines = append(lines, fmt.Sprintf("- **Years**: %d to %d", summary.Years[0], summary.Years[len(summary.Years)-1]))
			}
			lines = append(lines, fmt.Sprintf("- **Rows**: %d", summary.RowCount))

			if len(summary.KeyInsights) > 0 {
				lines = append(lines, "- **Key Insights**:")
				for i, insight := range summary.KeyInsights {
					if i >= 5 {
						break
					}
					lines = append(lines, "  - "+insight)
				}
			}

			if len(summary.ByScenario) > 0 {
				lines = append(lines, "- **Scenario Summaries**:")
				for i, scen := range summary.Scenarios {
					if i >= 3 {
						break
					}
					stats, ok := summary.ByScenario[scen]
					if !ok {
						continue
					}
					encoded, err := json.Marshal(stats)
					if err != nil {
						continue
					}
					lines = append(lines, fmt.Sprintf("  - %s: %s", scen, encoded))
				}
			}
		}

		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// chartImages loads the PNGs of the mapped charts for the generation call.
func (o *Orchestrator) chartImages(charts []*catalog.ChartMeta) []llm.Image {
	var images []llm.Image
	for _, chart := range charts {
		if chart.PNGPath == "" || !fileExists(chart.PNGPath) {
			continue
		}
		data, err := os.ReadFile(chart.PNGPath)
		if err != nil {
			o.emit(fmt.Sprintf("Warning: could not read %s: %v", chart.PNGPath, err))
			continue
		}
		images = append(images, llm.Image{
			Name:      chart.ID + ".png",
			MediaType: "image/png",
			Data:      data,
		})
	}
	return images
}

// GenerateSection generates content for a single section.
func (o *Orchestrator) GenerateSection(ctx context.Context, sectionID string) (*Result, error) {
	figuresDir, err := o.setupFiguresDir()
	if err != nil {
		return nil, err
	}

	section, ok := o.Section(sectionID)
	if !ok {
		return &Result{
			SectionID:    sectionID,
			SectionTitle: "Unknown",
			Content:      fmt.Sprintf("Error: Section '%s' not found", sectionID),
			DryRun:       o.dryRun,
		}, nil
	}

	o.emit("Getting charts for section '" + section.Title + "'")
	charts := o.ChartsForSection(*section)
	o.emit(fmt.Sprintf("Found %d charts for section", len(charts)))

	o.emit("Building prompt")
	prompt, err := o.BuildSectionPrompt(section, charts)
	if err != nil {
		return nil, err
	}

	if o.dryRun {
		return &Result{
			SectionID:    section.ID,
			SectionTitle: section.Title,
			Content:      fmt.Sprintf("[DRY RUN] Would generate content for '%s' using %d charts", section.Title, len(charts)),
			ChartsUsed:   chartIDs(charts),
			Prompt:       prompt,
			DryRun:       true,
		}, nil
	}

	images := o.chartImages(charts)
	if len(images) > 0 {
		o.emit(fmt.Sprintf("Sending %d PNG(s) to LLM:", len(images)))
		for _, img := range images {
			o.emit("  - " + img.Name)
		}
	}

	o.copyChartFigures(figuresDir, charts)

	o.emit("Calling " + o.model + " to generate content...")
	o.currentSectionID = section.ID
	rawContent, usage, err := o.callLLM(ctx, prompt, images)
	o.currentSectionID = ""
	if err != nil {
		return nil, err
	}
	o.emit(fmt.Sprintf("LLM response received ($%.4f)", usage.CostUSD))

	return &Result{
		SectionID:    section.ID,
		SectionTitle: section.Title,
		Content:      o.formatSectionOutput(section, rawContent),
		ChartsUsed:   chartIDs(charts),
		Prompt:       prompt,
		Usage:        usage,
	}, nil
}

// UpdateSection revises a section from its review comments. The revised
// content is written back to its _sections/ file.
func (o *Orchestrator) UpdateSection(ctx context.Context, sectionID, extraRevisionNotes string) (*Result, error) {
	figuresDir, err := o.setupFiguresDir()
	if err != nil {
		return nil, err
	}

	section, ok := o.Section(sectionID)
	if !ok {
		return &Result{
			SectionID:    sectionID,
			SectionTitle: "Unknown",
			Content:      fmt.Sprintf("Error: Section '%s' not found", sectionID),
			DryRun:       o.dryRun,
		}, nil
	}

	o.currentSectionID = sectionID
	defer func() { o.currentSectionID = "" }()

	existingBody := o.existingSectionBody(section)
	if strings.TrimSpace(existingBody) == "" {
		return nil, fmt.Errorf("no existing content for section '%s'; run generate-section first", sectionID)
	}

	o.emit("Getting charts for section '" + section.Title + "'")
	charts := o.ChartsForSection(*section)
	o.emit(fmt.Sprintf("Found %d charts for section", len(charts)))

	o.copyChartFigures(figuresDir, charts)

	o.emit("Building revision prompt")
	prompt, err := o.BuildRevisionPrompt(section, charts, extraRevisionNotes)
	if err != nil {
		return nil, err
	}

	if o.dryRun {
		return &Result{
			SectionID:    section.ID,
			SectionTitle: section.Title,
			Content:      "[DRY RUN] Would revise section based on review feedback",
			ChartsUsed:   chartIDs(charts),
			Prompt:       prompt,
			DryRun:       true,
		}, nil
	}

	images := o.chartImages(charts)
	if len(images) > 0 {
		o.emit(fmt.Sprintf("Sending %d PNG(s) to LLM:", len(images)))
		for _, img := range images {
			o.emit("  - " + img.Name)
		}
	}

	o.emit("Calling " + o.model + " to revise content...")
	rawContent, usage, err := o.callLLM(ctx, prompt, images)
	if err != nil {
		return nil, err
	}
	o.emit(fmt.Sprintf("LLM response received ($%.4f)", usage.CostUSD))

	formatted := o.formatSectionOutput(section, rawContent)

	path, err := o.sectionPath(section)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(formatted), 0644); err != nil {
		return nil, err
	}
	o.emit("Updated section file: " + filepath.Base(path))

	return &Result{
		SectionID:    section.ID,
		SectionTitle: section.Title,
		Content:      formatted,
		ChartsUsed:   chartIDs(charts),
		Prompt:       prompt,
		Usage:        usage,
	}, nil
}

// GenerateReport generates every section and assembles the report.
func (o *Orchestrator) GenerateReport(ctx context.Context) (string, llm.Usage, error) {
	if _, err := o.setupFiguresDir(); err != nil {
		return "", llm.Usage{}, err
	}

	var totalUsage llm.Usage
	total := len(o.sections)

	for i := range o.sections {
		section := &o.sections[i]
		o.emit(fmt.Sprintf("Generating section %d/%d: %s", i+1, total, section.Title))
		result, err := o.GenerateSection(ctx, section.ID)
		if err != nil {
			return "", totalUsage, err
		}
		totalUsage = totalUsage.Add(result.Usage)

		if o.outputDir != "" && !result.DryRun {
			if err := o.writeSectionFile(result); err != nil {
				return "", totalUsage, err
			}
		}
	}

	o.emit("Assembling final report from section files")
	content, err := o.BuildReportFromSections()
	return content, totalUsage, err
}

// UpdateReport updates sections that already have files and generates the
// missing ones. The action map records "generated" or "updated" per section.
func (o *Orchestrator) UpdateReport(ctx context.Context, extraRevisionNotes string) (string, llm.Usage, map[string]string, error) {
	if _, err := o.setupFiguresDir(); err != nil {
		return "", llm.Usage{}, nil, err
	}

	var totalUsage llm.Usage
	actionMap := make(map[string]string)
	total := len(o.sections)

	for i := range o.sections {
		section := &o.sections[i]
		path, err := o.sectionPath(section)
		if err != nil {
			return "", totalUsage, actionMap, err
		}

		var result *Result
		if fileExists(path) {
			o.emit(fmt.Sprintf("Updating section %d/%d: %s", i+1, total, section.Title))
			result, err = o.UpdateSection(ctx, section.ID, extraRevisionNotes)
			actionMap[section.ID] = "updated"
		} else {
			o.emit(fmt.Sprintf("Generating section %d/%d: %s", i+1, total, section.Title))
			result, err = o.GenerateSection(ctx, section.ID)
			if err == nil && o.outputDir != "" && !result.DryRun {
				err = o.writeSectionFile(result)
			}
			actionMap[section.ID] = "generated"
		}
		if err != nil {
			return "", totalUsage, actionMap, err
		}
		totalUsage = totalUsage.Add(result.Usage)
	}

	o.emit("Assembling final report from section files")
	content, err := o.BuildReportFromSections()
	return content, totalUsage, actionMap, err
}

func (o *Orchestrator) writeSectionFile(result *Result) error {
	section, ok := o.Section(result.SectionID)
	if !ok {
		o.emit("Warning: could not find section " + result.SectionID + " to write")
		return nil
	}
	path, err := o.sectionPath(section)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(result.Content), 0644); err != nil {
		return err
	}
	o.emit("Wrote section file: " + filepath.Base(path))
	return nil
}

// BuildReportFromSections concatenates section files in outline order,
// wrapping each in BEGIN/END markers. Missing sections get a placeholder.
func (o *Orchestrator) BuildReportFromSections() (string, error) {
	if o.outputDir == "" {
		return "", fmt.Errorf("output dir must be set to build report from sections")
	}

	parts := []string{
		"<!-- GENERATED FILE: Do not edit directly. Edit files in _sections/ instead. -->\n",
	}
	for i := range o.sections {
		section := &o.sections[i]
		path, err := o.sectionPath(section)
		if err != nil {
			continue
		}

		parts = append(parts, fmt.Sprintf("<!-- BEGIN SECTION: %s (%s) -->", section.ID, section.Title))
		if data, err := os.ReadFile(path); err == nil {
			parts = append(parts, strings.TrimSpace(string(data)))
		} else {
			parts = append(parts, fmt.Sprintf("<!-- SECTION MISSING: %s - %s -->", section.ID, section.Title))
		}
		parts = append(parts, fmt.Sprintf("<!-- END SECTION: %s -->\n", section.ID))
	}
	return strings.Join(parts, "\n"), nil
}

// formatSectionOutput frames generated content with the heading, instruction
// and review comment blocks. A duplicated leading heading in the LLM output
// is stripped.
func (o *Orchestrator) formatSectionOutput(section *outline.Section, content string) string {
	var lines []string

	heading := strings.Repeat("#", section.Level)
	lines = append(lines, heading+" "+section.Title)
	lines = append(lines, "")

	if section.Instructions != "" {
		lines = append(lines, "<!-- Section instructions: "+section.Instructions+" -->")
		lines = append(lines, "")
	}

	if section.ReviewComments != "" {
		lines = append(lines, "<!-- Review comments:\n"+section.ReviewComments+"\n-->")
	} else {
		lines = append(lines, `<!-- Review comments:
AUTHOR: [Reviewer Name]
RATING: accuracy=, completeness=, clarity=
NOTES:
-->`)
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf(`<!-- EXAMPLE - LLM IGNORE:
AUTHOR: %s
RATING: accuracy=4, completeness=3, clarity=5
NOTES: %s
-->`, exampleReviewerName, exampleReviewerNotes))
	}
	lines = append(lines, "")

	content = strings.TrimSpace(content)
	fullHeading := heading + " " + section.Title
	if strings.HasPrefix(content, fullHeading) {
		content = strings.TrimSpace(content[len(fullHeading):])
	} else if strings.HasPrefix(content, heading+" ") {
		if lineEnd := strings.Index(content, "\n"); lineEnd > 0 {
			content = strings.TrimSpace(content[lineEnd:])
		}
	}

	lines = append(lines, content)
	lines = append(lines, "")

	return strings.Join(lines, "\n")
}

// callLLM runs one generation call and logs it to the _llm_calls directory.
func (o *Orchestrator) callLLM(ctx context.Context, prompt string, images []llm.Image) (string, llm.Usage, error) {
	if o.gen == nil {
		return "", llm.Usage{}, fmt.Errorf("no text generator configured")
	}

	responseText, usage, err := o.gen.Generate(ctx, prompt, images)
	if err != nil {
		o.logLLMCall(prompt, images, "[ERROR: "+err.Error()+"]")
		return "", usage, fmt.Errorf("generation failed: %w", err)
	}
	if strings.TrimSpace(responseText) == "" {
		errMsg := "[ERROR: model returned empty content]"
		o.logLLMCall(prompt, images, errMsg)
		return "", usage, fmt.Errorf("model returned empty content")
	}

	o.logLLMCall(prompt, images, responseText)
	return responseText, usage, nil
}

type llmCallLog struct {
	Timestamp     string   `json:"timestamp"`
	SectionID     string   `json:"section_id"`
	Model         string   `json:"model"`
	ImageCount    int      `json:"image_count"`
	ImageNames    []string `json:"image_names,omitempty"`
	PromptPreview string   `json:"prompt_preview"`
	Response      string   `json:"response"`
}

func (o *Orchestrator) logLLMCall(prompt string, images []llm.Image, responseText string) {
	if err := os.MkdirAll(o.llmLogDir, 0755); err != nil {
		return
	}

	sectionID := o.currentSectionID
	if sectionID == "" {
		sectionID = "unknown"
	}

	preview := prompt
	if len(preview) > 500 {
		preview = preview[:500] + "..."
	}
	var imageNames []string
	for _, img := range images {
		imageNames = append(imageNames, img.Name)
	}

	now := time.Now()
	entry := llmCallLog{
		Timestamp:     now.Format(time.RFC3339),
		SectionID:     sectionID,
		Model:         o.model,
		ImageCount:    len(images),
		ImageNames:    imageNames,
		PromptPreview: preview,
		Response:      responseText,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return
	}

	filename := fmt.Sprintf("%s_%s.json", now.Format("20060102_150405"), sectionID)
	path := filepath.Join(o.llmLogDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return
	}
	o.emit("Logged LLM call to " + filename)
}

func chartIDs(charts []*catalog.ChartMeta) []string {
	ids := make([]string, 0, len(charts))
	for _, chart := range charts {
		ids = append(ids, chart.ID)
	}
	return ids
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
