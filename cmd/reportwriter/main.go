package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/austimes/report-writer/internal/catalog"
	"github.com/austimes/report-writer/internal/config"
	"github.com/austimes/report-writer/internal/git"
	"github.com/austimes/report-writer/internal/integrator"
	"github.com/austimes/report-writer/internal/journal"
	"github.com/austimes/report-writer/internal/llm"
	"github.com/austimes/report-writer/internal/logger"
	"github.com/austimes/report-writer/internal/mapper"
	"github.com/austimes/report-writer/internal/orchestrator"
	"github.com/austimes/report-writer/internal/outline"
	"github.com/austimes/report-writer/internal/reportstate"
)

var (
	rootCmd = &cobra.Command{
		Use:   "reportwriter",
		Short: "Data-driven technical report generator",
	}
	configPath string

	outlinePath string
	dataRoot    string
	sectionID   string
	outputPath  string
	modelFlag   string
	dryRun      bool
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to the config file")

	for _, cmd := range []*cobra.Command{generateSectionCmd, generateReportCmd, updateReportCmd} {
		cmd.Flags().StringVarP(&outlinePath, "outline", "o", "", "Path to report outline markdown")
		cmd.Flags().StringVarP(&dataRoot, "data-root", "d", "", "Path to data directory")
		cmd.Flags().StringVarP(&outputPath, "output", "O", "", "Output file path")
		cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "LLM model to use")
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be sent without calling the LLM")
		cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")
	}
	generateSectionCmd.Flags().StringVarP(&sectionID, "section", "s", "", "Section ID to generate")

	rootCmd.AddCommand(generateSectionCmd)
	rootCmd.AddCommand(generateReportCmd)
	rootCmd.AddCommand(updateReportCmd)
	rootCmd.AddCommand(inspectSectionsCmd)
	rootCmd.AddCommand(inspectChartsCmd)
	rootCmd.AddCommand(integrateCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(runEvalCmd)
	rootCmd.AddCommand(initReportCmd)
	rootCmd.AddCommand(commitCmd)
}

// loadSettings loads config, applies flag overrides, and sets up logging.
func loadSettings() *config.Config {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	if outlinePath == "" {
		outlinePath = cfg.Report.Outline
	}
	if dataRoot == "" {
		dataRoot = cfg.Report.DataRoot
	}
	if modelFlag == "" {
		modelFlag = cfg.AI.Model
	}
	return cfg
}

func requirePaths() {
	if outlinePath == "" || !fileExists(outlinePath) {
		log.Fatalf("Outline file not found: %s", outlinePath)
	}
	if dataRoot == "" || !dirExists(dataRoot) {
		log.Fatalf("Data root not found: %s", dataRoot)
	}
}

func progressCallback() func(string) {
	if !verbose {
		return nil
	}
	return func(message string) {
		fmt.Printf("  → %s\n", message)
	}
}

// newGenerator builds the text generator for real runs; dry runs never call
// the API, so no key is needed.
func newGenerator(ctx context.Context, cfg *config.Config) llm.TextGenerator {
	if dryRun {
		return nil
	}
	if cfg.AI.APIKey == "" {
		log.Fatalf("AI API key not configured (set REPORTWRITER_API_KEY or ai.api_key in %s)", configPath)
	}
	gen, err := llm.NewGeminiGenerator(ctx, cfg.AI.APIKey, modelFlag)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}
	return gen
}

func newOrchestrator(ctx context.Context, cfg *config.Config, outputDir string) *orchestrator.Orchestrator {
	orch, err := orchestrator.New(orchestrator.Options{
		OutlinePath: outlinePath,
		DataRoot:    dataRoot,
		OutputDir:   outputDir,
		Model:       modelFlag,
		DryRun:      dryRun,
		Generator:   newGenerator(ctx, cfg),
		OnProgress:  progressCallback(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	return orch
}

func finishJournal(outputDir string, entry *journal.Entry, costUSD float64, started time.Time, runErr error) {
	duration := time.Since(started).Seconds()
	errMsg := ""
	success := true
	if runErr != nil {
		success = false
		errMsg = runErr.Error()
	}
	if err := journal.Update(outputDir, entry, success, errMsg, &costUSD, &duration); err != nil {
		log.Printf("Warning: could not update journal: %v", err)
	}
}

var generateSectionCmd = &cobra.Command{
	Use:   "generate-section",
	Short: "Generate a single section draft",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadSettings()
		requirePaths()
		if sectionID == "" {
			log.Fatalf("--section is required")
		}
		if outputPath == "" {
			log.Fatalf("--output is required")
		}
		outputDir := filepath.Dir(outputPath)

		ctx := context.Background()
		orch := newOrchestrator(ctx, cfg, outputDir)

		if _, ok := orch.Section(sectionID); !ok {
			var available []string
			for _, s := range orch.Sections() {
				available = append(available, s.ID)
			}
			log.Fatalf("Section %q not found. Available sections: %s", sectionID, strings.Join(available, ", "))
		}

		entry := journal.NewEntry("generate-section", map[string]string{
			"outline": outlinePath, "data_root": dataRoot, "section": sectionID, "output": outputPath,
		})
		entry.Model = modelFlag
		entry.ThinkingLevel = cfg.AI.ThinkingLevel
		entry.SectionsAffected = []string{sectionID}
		if !dryRun {
			if _, err := journal.Save(outputDir, entry); err != nil {
				log.Printf("Warning: could not write journal: %v", err)
			}
		}

		started := time.Now()
		result, err := orch.GenerateSection(ctx, sectionID)
		if err != nil {
			if !dryRun {
				finishJournal(outputDir, entry, 0, started, err)
			}
			log.Fatalf("Generation failed: %v", err)
		}

		if dryRun {
			fmt.Println("Prompt that would be sent:")
			fmt.Println()
			fmt.Println(result.Prompt)
			fmt.Println()
			fmt.Printf("Charts: %s\n", orNone(result.ChartsUsed))
			fmt.Printf("Model: %s\n", modelFlag)
			return
		}

		if err := os.WriteFile(outputPath, []byte(result.Content), 0644); err != nil {
			finishJournal(outputDir, entry, result.Usage.CostUSD, started, err)
			log.Fatalf("Failed to write output: %v", err)
		}
		finishJournal(outputDir, entry, result.Usage.CostUSD, started, nil)

		fmt.Printf("✅ Generated section written to %s\n", outputPath)
		fmt.Printf("Charts used: %s\n", orNone(result.ChartsUsed))
		fmt.Printf("💰 Cost: $%.4f (%d in / %d out tokens)\n",
			result.Usage.CostUSD, result.Usage.InputTokens, result.Usage.OutputTokens)
	},
}

var generateReportCmd = &cobra.Command{
	Use:   "generate-report",
	Short: "Generate the full report (all sections)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadSettings()
		requirePaths()
		if outputPath == "" {
			log.Fatalf("--output is required")
		}
		outputDir := filepath.Dir(outputPath)

		ctx := context.Background()
		orch := newOrchestrator(ctx, cfg, outputDir)
		sectionCount := len(orch.Sections())
		fmt.Printf("📝 Generating report with %d sections...\n", sectionCount)

		if dryRun {
			fmt.Println("DRY RUN: Showing what would be generated")
			fmt.Println()
			for _, section := range orch.Sections() {
				charts := orch.ChartsForSection(section)
				var ids []string
				for _, c := range charts {
					ids = append(ids, c.ID)
				}
				fmt.Printf("  %s %s\n", strings.Repeat("#", section.Level), section.Title)
				fmt.Printf("    Charts: %s\n", orNone(ids))
			}
			fmt.Println()
			fmt.Printf("Model: %s\n", modelFlag)
			fmt.Printf("Output: %s\n", outputPath)
			fmt.Printf("Figures: %s\n", filepath.Join(outputDir, "figures"))
			return
		}

		entry := journal.NewEntry("generate-report", map[string]string{
			"outline": outlinePath, "data_root": dataRoot, "output": outputPath,
		})
		entry.Model = modelFlag
		entry.ThinkingLevel = cfg.AI.ThinkingLevel
		for _, s := range orch.Sections() {
			entry.SectionsAffected = append(entry.SectionsAffected, s.ID)
		}
		if _, err := journal.Save(outputDir, entry); err != nil {
			log.Printf("Warning: could not write journal: %v", err)
		}

		started := time.Now()
		content, totalUsage, err := orch.GenerateReport(ctx)
		if err != nil {
			finishJournal(outputDir, entry, totalUsage.CostUSD, started, err)
			log.Fatalf("Generation failed: %v", err)
		}
		if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
			finishJournal(outputDir, entry, totalUsage.CostUSD, started, err)
			log.Fatalf("Failed to write report: %v", err)
		}
		finishJournal(outputDir, entry, totalUsage.CostUSD, started, nil)

		fmt.Printf("✅ Report written to %s\n", outputPath)
		reportOutputCounts(outputDir)
		fmt.Println()
		fmt.Printf("💰 Total Cost: $%.2f\n", totalUsage.CostUSD)
		fmt.Printf("Tokens: %d in / %d out\n", totalUsage.InputTokens, totalUsage.OutputTokens)
		if totalUsage.ReasoningTokens > 0 {
			fmt.Printf("Reasoning tokens: %d\n", totalUsage.ReasoningTokens)
		}
	},
}

var updateNotes string

var updateReportCmd = &cobra.Command{
	Use:   "update-report",
	Short: "Update existing sections and generate missing ones",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadSettings()
		requirePaths()
		if outputPath == "" {
			log.Fatalf("--output is required")
		}
		outputDir := filepath.Dir(outputPath)

		ctx := context.Background()
		orch := newOrchestrator(ctx, cfg, outputDir)
		fmt.Printf("🔄 Updating report with %d sections...\n", len(orch.Sections()))

		entry := journal.NewEntry("update-report", map[string]string{
			"outline": outlinePath, "data_root": dataRoot, "output": outputPath, "notes": updateNotes,
		})
		entry.Model = modelFlag
		entry.ThinkingLevel = cfg.AI.ThinkingLevel
		for _, s := range orch.Sections() {
			entry.SectionsAffected = append(entry.SectionsAffected, s.ID)
		}
		if !dryRun {
			if _, err := journal.Save(outputDir, entry); err != nil {
				log.Printf("Warning: could not write journal: %v", err)
			}
		}

		started := time.Now()
		content, totalUsage, actionMap, err := orch.UpdateReport(ctx, updateNotes)
		if err != nil {
			if !dryRun {
				finishJournal(outputDir, entry, totalUsage.CostUSD, started, err)
			}
			log.Fatalf("Update failed: %v", err)
		}
		if dryRun {
			fmt.Println("DRY RUN: no files written")
			return
		}

		if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
			finishJournal(outputDir, entry, totalUsage.CostUSD, started, err)
			log.Fatalf("Failed to write report: %v", err)
		}
		finishJournal(outputDir, entry, totalUsage.CostUSD, started, nil)

		updated, generated := 0, 0
		for _, action := range actionMap {
			if action == "updated" {
				updated++
			} else {
				generated++
			}
		}
		fmt.Printf("✅ Report written to %s (%d updated, %d generated)\n", outputPath, updated, generated)
		fmt.Printf("💰 Total Cost: $%.2f\n", totalUsage.CostUSD)
	},
}

var showCharts bool

var inspectSectionsCmd = &cobra.Command{
	Use:   "inspect-sections",
	Short: "Show section structure and chart mappings",
	Run: func(cmd *cobra.Command, args []string) {
		loadSettings()
		if outlinePath == "" || !fileExists(outlinePath) {
			log.Fatalf("Outline file not found: %s", outlinePath)
		}

		sections, err := outline.ParseOutline(outlinePath)
		if err != nil {
			log.Fatalf("Failed to parse outline: %v", err)
		}

		var m *mapper.Mapper
		if showCharts && dataRoot != "" {
			if !dirExists(dataRoot) {
				fmt.Printf("⚠️  Data root not found: %s\n", dataRoot)
			} else {
				cat := catalog.New(dataRoot)
				mappingPath := filepath.Join(dataRoot, "section_chart_map.json")
				if !fileExists(mappingPath) {
					mappingPath = ""
				}
				m = mapper.New(cat, mappingPath)
			}
		}

		fmt.Printf("Sections in %s\n\n", outlinePath)
		for _, section := range sections {
			parent := section.ParentID
			if parent == "" {
				parent = "-"
			}
			instructions := section.Instructions
			if len(instructions) > 80 {
				instructions = instructions[:80] + "..."
			}
			if instructions == "" {
				instructions = "-"
			}
			fmt.Printf("%-28s L%d  parent=%-20s %s\n", section.ID, section.Level, parent, section.Title)
			if instructions != "-" {
				fmt.Printf("%-28s     %s\n", "", instructions)
			}
			if m != nil {
				charts := m.ChartsForSectionContext(section)
				var ids []string
				for i, c := range charts {
					if i >= 3 {
						ids = append(ids, "...")
						break
					}
					ids = append(ids, c.ID)
				}
				fmt.Printf("%-28s     charts: %s\n", "", orNone(ids))
			}
		}
		fmt.Printf("\nTotal: %d sections\n", len(sections))
	},
}

var (
	chartCategory string
	outputFormat  string
)

var inspectChartsCmd = &cobra.Command{
	Use:   "inspect-charts",
	Short: "List available charts",
	Run: func(cmd *cobra.Command, args []string) {
		loadSettings()
		if dataRoot == "" || !dirExists(dataRoot) {
			log.Fatalf("Data root not found: %s", dataRoot)
		}

		cat := catalog.New(dataRoot)
		charts := cat.ListCharts(chartCategory)

		if outputFormat == "json" {
			type chartInfo struct {
				ID         string   `json:"id"`
				Category   string   `json:"category"`
				Title      string   `json:"title"`
				Units      string   `json:"units"`
				Dimensions []string `json:"dimensions"`
				HasCSV     bool     `json:"has_csv"`
				HasPNG     bool     `json:"has_png"`
				HasJSON    bool     `json:"has_json"`
			}
			out := make([]chartInfo, 0, len(charts))
			for _, chart := range charts {
				out = append(out, chartInfo{
					ID:         chart.ID,
					Category:   chart.Category,
					Title:      chart.Title,
					Units:      chart.Units,
					Dimensions: chart.Dimensions,
					HasCSV:     chart.CSVPath != "",
					HasPNG:     chart.PNGPath != "",
					HasJSON:    chart.JSONPath != "",
				})
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				log.Fatalf("Failed to encode charts: %v", err)
			}
			fmt.Println(string(data))
			return
		}

		if len(charts) == 0 {
			fmt.Println("No charts found")
			return
		}
		title := "Charts in " + dataRoot
		if chartCategory != "" {
			title += " (category: " + chartCategory + ")"
		}
		fmt.Println(title)
		fmt.Println()
		for _, chart := range charts {
			var files []string
			if chart.CSVPath != "" {
				files = append(files, "csv")
			}
			if chart.PNGPath != "" {
				files = append(files, "png")
			}
			if chart.JSONPath != "" {
				files = append(files, "json")
			}
			units := chart.Units
			if units == "" {
				units = "-"
			}
			fmt.Printf("%-36s %-20s %-10s [%s]  %s\n",
				chart.ID, chart.Category, units, strings.Join(files, ", "), chart.Title)
		}
		fmt.Printf("\nTotal: %d charts\n", len(charts))
	},
}

var (
	reportPath     string
	integrateDir   string
	maxChangeRatio float64
	writeHints     bool
)

var integrateCmd = &cobra.Command{
	Use:   "integrate",
	Short: "Run the integration pass over an assembled report",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadSettings()
		if reportPath == "" || !fileExists(reportPath) {
			log.Fatalf("Report file not found: %s", reportPath)
		}
		if integrateDir == "" {
			integrateDir = filepath.Dir(reportPath)
		}

		data, err := os.ReadFile(reportPath)
		if err != nil {
			log.Fatalf("Failed to read report: %v", err)
		}
		content := string(data)

		statePath := filepath.Join(integrateDir, "report_state.json")
		state, err := reportstate.Load(statePath)
		if err != nil {
			state = reportstate.NewState(filepath.Base(integrateDir))
		}

		var sections []outline.Section
		if outlinePath != "" && fileExists(outlinePath) {
			sections, err = outline.ParseOutline(outlinePath)
			if err != nil {
				log.Fatalf("Failed to parse outline: %v", err)
			}
		}

		ctx := context.Background()
		in := integrator.New(newGenerator(ctx, cfg), modelFlag, dryRun, func(message string) {
			fmt.Printf("  → %s\n", message)
		})

		entry := journal.NewEntry("integrate", map[string]string{
			"report": reportPath, "output_dir": integrateDir,
		})
		entry.Model = modelFlag
		if !dryRun {
			if _, err := journal.Save(integrateDir, entry); err != nil {
				log.Printf("Warning: could not write journal: %v", err)
			}
		}

		started := time.Now()
		fmt.Println("🔗 Running integration pass...")
		result, err := in.IntegrateWithState(ctx, content, state, sections, maxChangeRatio)
		if err != nil {
			if !dryRun {
				finishJournal(integrateDir, entry, 0, started, err)
			}
			log.Fatalf("Integration failed: %v", err)
		}

		if dryRun {
			fmt.Println("DRY RUN: no changes written")
			return
		}

		if !result.ValidationPassed {
			finishJournal(integrateDir, entry, result.Usage.CostUSD, started,
				fmt.Errorf("validation failed: %s", result.ValidationMessage))
			log.Fatalf("Validation failed, keeping original report: %s", result.ValidationMessage)
		}

		if err := os.WriteFile(reportPath, []byte(result.IntegratedContent), 0644); err != nil {
			finishJournal(integrateDir, entry, result.Usage.CostUSD, started, err)
			log.Fatalf("Failed to write integrated report: %v", err)
		}
		if err := result.State.Save(statePath); err != nil {
			log.Printf("Warning: could not save report state: %v", err)
		}
		if writeHints && len(sections) > 0 {
			sectionsDir := filepath.Join(integrateDir, "_sections")
			if err := integrator.WriteSectionHints(sectionsDir, sections, result.State); err != nil {
				log.Printf("Warning: could not write section hints: %v", err)
			}
		}
		entry.SectionsAffected = result.SectionsModified
		finishJournal(integrateDir, entry, result.Usage.CostUSD, started, nil)

		fmt.Printf("✅ Integrated report written to %s\n", reportPath)
		fmt.Printf("Sections modified: %s\n", orNone(result.SectionsModified))
		fmt.Printf("Duplicates removed: %d, cross-references added: %d\n",
			result.DuplicatesRemoved, result.CrossRefsAdded)
		fmt.Printf("💰 Cost: $%.4f\n", result.Usage.CostUSD)
	},
}

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent operations from the report log",
	Run: func(cmd *cobra.Command, args []string) {
		loadSettings()
		if integrateDir == "" {
			log.Fatalf("--output-dir is required")
		}

		entries, err := journal.List(integrateDir, journalLimit)
		if err != nil {
			log.Fatalf("Failed to read journal: %v", err)
		}
		if len(entries) == 0 {
			fmt.Println("No journal entries found")
			return
		}
		for _, entry := range entries {
			fmt.Println(journal.FormatForCommit(entry))
			fmt.Println("---")
		}
	},
}

var runID string

var runEvalCmd = &cobra.Command{
	Use:   "run-eval",
	Short: "Summarize review ratings from a reviewed report",
	Run: func(cmd *cobra.Command, args []string) {
		loadSettings()
		if outlinePath == "" || !fileExists(outlinePath) {
			log.Fatalf("Outline file not found: %s", outlinePath)
		}
		if runID == "" || outputPath == "" {
			log.Fatalf("--run-id and --output are required")
		}

		sections, err := outline.ParseOutline(outlinePath)
		if err != nil {
			log.Fatalf("Failed to parse outline: %v", err)
		}

		type sectionResult struct {
			ID        string         `json:"id"`
			Title     string         `json:"title"`
			Level     int            `json:"level"`
			HasReview bool           `json:"has_review"`
			Ratings   map[string]int `json:"ratings"`
			Notes     string         `json:"notes"`
		}
		type summary struct {
			TotalSections  int                `json:"total_sections"`
			RatedSections  int                `json:"rated_sections"`
			AverageRatings map[string]float64 `json:"average_ratings"`
		}
		results := struct {
			RunID       string          `json:"run_id"`
			OutlinePath string          `json:"outline_path"`
			Sections    []sectionResult `json:"sections"`
			Summary     summary         `json:"summary"`
		}{
			RunID:       runID,
			OutlinePath: outlinePath,
			Sections:    []sectionResult{},
			Summary:     summary{AverageRatings: map[string]float64{}},
		}

		ratingTotals := map[string][]int{}
		for _, section := range sections {
			results.Sections = append(results.Sections, sectionResult{
				ID:        section.ID,
				Title:     section.Title,
				Level:     section.Level,
				HasReview: section.ReviewComments != "",
				Ratings:   section.ReviewRatings,
				Notes:     section.ReviewNotes,
			})
			if len(section.ReviewRatings) > 0 {
				results.Summary.RatedSections++
				for key, value := range section.ReviewRatings {
					ratingTotals[key] = append(ratingTotals[key], value)
				}
			}
		}
		results.Summary.TotalSections = len(sections)
		for key, values := range ratingTotals {
			sum := 0
			for _, v := range values {
				sum += v
			}
			avg := float64(sum) / float64(len(values))
			results.Summary.AverageRatings[key] = float64(int(avg*100+0.5)) / 100
		}

		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode results: %v", err)
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Fatalf("Failed to write results: %v", err)
		}

		fmt.Printf("✅ Evaluation results written to %s\n", outputPath)
		fmt.Printf("Total Sections: %d\n", results.Summary.TotalSections)
		fmt.Printf("Rated Sections: %d\n", results.Summary.RatedSections)
		for key, avg := range results.Summary.AverageRatings {
			fmt.Printf("Avg %s: %.2f\n", key, avg)
		}
	},
}

var (
	reportName    string
	reportPrivate bool
)

var initReportCmd = &cobra.Command{
	Use:   "init-report [dir]",
	Short: "Initialize a new report project repository",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loadSettings()
		if reportName == "" {
			log.Fatalf("--name is required")
		}
		meta, err := git.InitRepo(args[0], reportName, reportPrivate)
		if err != nil {
			log.Fatalf("Failed to initialize report project: %v", err)
		}
		fmt.Printf("🎉 Report project initialized: %s (%s)\n", meta.ReportName, meta.GitHubRepo)
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit [dir]",
	Short: "Commit and push report outputs with a journal-based message",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loadSettings()
		outputRoot := args[0]

		entries, err := journal.List(outputRoot, 1)
		if err != nil || len(entries) == 0 {
			log.Fatalf("No journal entries found in %s", outputRoot)
		}
		message := entries[0].Command + ": " + strings.Join(entries[0].SectionsAffected, ", ") +
			"\n\n" + journal.FormatForCommit(entries[0])

		fmt.Println("💾 Committing report outputs...")
		if err := git.AutoCommit(outputRoot, message); err != nil {
			log.Fatalf("Commit failed: %v", err)
		}
		fmt.Println("✅ Changes committed and pushed")
	},
}

func init() {
	updateReportCmd.Flags().StringVar(&updateNotes, "notes", "", "Additional revision instructions")

	inspectSectionsCmd.Flags().StringVarP(&outlinePath, "outline", "o", "", "Path to report outline markdown")
	inspectSectionsCmd.Flags().StringVarP(&dataRoot, "data-root", "d", "", "Path to data directory")
	inspectSectionsCmd.Flags().BoolVar(&showCharts, "show-charts", false, "Show mapped charts per section")

	inspectChartsCmd.Flags().StringVarP(&dataRoot, "data-root", "d", "", "Path to data directory")
	inspectChartsCmd.Flags().StringVarP(&chartCategory, "category", "c", "", "Filter by category")
	inspectChartsCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Output format: table or json")

	integrateCmd.Flags().StringVarP(&reportPath, "report", "r", "", "Path to the assembled report markdown")
	integrateCmd.Flags().StringVar(&integrateDir, "output-dir", "", "Report output directory (defaults to the report's directory)")
	integrateCmd.Flags().StringVarP(&outlinePath, "outline", "o", "", "Path to report outline markdown")
	integrateCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "LLM model to use")
	integrateCmd.Flags().Float64Var(&maxChangeRatio, "max-change-ratio", integrator.DefaultMaxChangeRatio, "Maximum allowed change ratio")
	integrateCmd.Flags().BoolVar(&writeHints, "write-hints", false, "Inject integration hints into section files")
	integrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without calling the LLM")

	journalCmd.Flags().StringVar(&integrateDir, "output-dir", "", "Report output directory")
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 10, "Number of entries to show")

	runEvalCmd.Flags().StringVarP(&outlinePath, "outline", "o", "", "Path to reviewed report markdown")
	runEvalCmd.Flags().StringVarP(&runID, "run-id", "r", "", "Unique identifier for this evaluation run")
	runEvalCmd.Flags().StringVarP(&outputPath, "output", "O", "", "Output JSON file path")

	initReportCmd.Flags().StringVar(&reportName, "name", "", "Human-readable report name")
	initReportCmd.Flags().BoolVar(&reportPrivate, "private", true, "Create the GitHub repository as private")
}

func reportOutputCounts(outputDir string) {
	figuresDir := filepath.Join(outputDir, "figures")
	if pngs, err := filepath.Glob(filepath.Join(figuresDir, "*.png")); err == nil && len(pngs) > 0 {
		fmt.Printf("✅ %d figure(s) copied to %s\n", len(pngs), figuresDir)
	}
	sectionsDir := filepath.Join(outputDir, "_sections")
	if mds, err := filepath.Glob(filepath.Join(sectionsDir, "*.md")); err == nil && len(mds) > 0 {
		fmt.Printf("✅ %d section file(s) written to %s\n", len(mds), sectionsDir)
	}
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
