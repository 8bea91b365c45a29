package integrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austimes/report-writer/internal/llm"
	"github.com/austimes/report-writer/internal/outline"
	"github.com/austimes/report-writer/internal/reportstate"
	"github.com/austimes/report-writer/internal/sectionmeta"
)

const sampleReport = `<!-- BEGIN SECTION: intro (Introduction) -->
## Introduction

Opening prose with a figure. ![Generation mix](figures/generation_mix.png)
<!-- END SECTION: intro -->

<!-- BEGIN SECTION: results (Results) -->
## Results

More prose. ![Generation mix](figures/generation_mix.png)
<!-- END SECTION: results -->
`

func TestIntegrate_PreservedMarkersPass(t *testing.T) {
	gen := &llm.StaticGenerator{Response: sampleReport}
	in := New(gen, "test-model", false, nil)

	res, err := in.Integrate(context.Background(), sampleReport, "", 0)
	require.NoError(t, err)
	assert.True(t, res.ValidationPassed)
	assert.Contains(t, res.ValidationMessage, "Changes within bounds")
	assert.Empty(t, res.SectionsModified)
	assert.Equal(t, 0, res.DuplicatesRemoved)
}

func TestIntegrate_MissingSectionFails(t *testing.T) {
	response := `<!-- BEGIN SECTION: intro (Introduction) -->
## Introduction
<!-- END SECTION: intro -->`
	gen := &llm.StaticGenerator{Response: response}
	in := New(gen, "test-model", false, nil)

	res, err := in.Integrate(context.Background(), sampleReport, "", 0.99)
	require.NoError(t, err)
	assert.False(t, res.ValidationPassed)
	assert.Contains(t, res.ValidationMessage, "missing sections: results")
}

func TestIntegrate_UnexpectedSectionFails(t *testing.T) {
	response := sampleReport + "\n<!-- BEGIN SECTION: extra (Extra) -->\n<!-- END SECTION: extra -->"
	gen := &llm.StaticGenerator{Response: response}
	in := New(gen, "test-model", false, nil)

	res, err := in.Integrate(context.Background(), sampleReport, "", 0.99)
	require.NoError(t, err)
	assert.False(t, res.ValidationPassed)
	assert.Contains(t, res.ValidationMessage, "unexpected sections: extra")
}

func TestIntegrate_ChangeRatioExceeded(t *testing.T) {
	// Same markers, completely different prose.
	response := strings.ReplaceAll(sampleReport, "prose", "rewritten entirely different text body")
	gen := &llm.StaticGenerator{Response: response}
	in := New(gen, "test-model", false, nil)

	res, err := in.Integrate(context.Background(), sampleReport, "", 0.01)
	require.NoError(t, err)
	assert.False(t, res.ValidationPassed)
	assert.Contains(t, res.ValidationMessage, "Changes exceed threshold")
	assert.ElementsMatch(t, []string{"intro", "results"}, res.SectionsModified)
}

func TestIntegrate_MarkdownFenceStripped(t *testing.T) {
	gen := &llm.StaticGenerator{Response: "```markdown\n" + sampleReport + "\n```"}
	in := New(gen, "test-model", false, nil)

	res, err := in.Integrate(context.Background(), sampleReport, "", 0)
	require.NoError(t, err)
	assert.True(t, res.ValidationPassed)
	assert.NotContains(t, res.IntegratedContent, "```")
}

func TestIntegrate_Snapshots(t *testing.T) {
	dir := t.TempDir()
	gen := &llm.StaticGenerator{Response: sampleReport}
	in := New(gen, "test-model", false, nil)

	res, err := in.Integrate(context.Background(), sampleReport, dir, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RunID)
	assert.FileExists(t, filepath.Join(dir, "_integration", "run001_before.md"))
	assert.FileExists(t, filepath.Join(dir, "_integration", "run001_after.md"))

	res2, err := in.Integrate(context.Background(), sampleReport, dir, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res2.RunID)
	assert.FileExists(t, filepath.Join(dir, "_integration", "run002_before.md"))
}

func TestIntegrate_InvalidResultSkipsAfterSnapshot(t *testing.T) {
	dir := t.TempDir()
	gen := &llm.StaticGenerator{Response: "totally unrelated output"}
	in := New(gen, "test-model", false, nil)

	res, err := in.Integrate(context.Background(), sampleReport, dir, 0)
	require.NoError(t, err)
	assert.False(t, res.ValidationPassed)
	assert.Empty(t, res.AfterPath)
	assert.NoFileExists(t, filepath.Join(dir, "_integration", "run001_after.md"))
}

func TestIntegrate_DryRun(t *testing.T) {
	gen := &llm.StaticGenerator{Response: "should not be used"}
	in := New(gen, "test-model", true, nil)

	res, err := in.Integrate(context.Background(), sampleReport, "", 0)
	require.NoError(t, err)
	assert.True(t, res.ValidationPassed)
	assert.Equal(t, sampleReport, res.IntegratedContent)
	assert.Empty(t, gen.Prompts, "dry run never calls the generator")
}

func TestIntegrate_DuplicateFigureRemovalCounted(t *testing.T) {
	response := strings.Replace(sampleReport, "More prose. ![Generation mix](figures/generation_mix.png)", "More prose. See Figure 1.", 1)
	gen := &llm.StaticGenerator{Response: response}
	in := New(gen, "test-model", false, nil)

	res, err := in.Integrate(context.Background(), sampleReport, "", 0.9)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DuplicatesRemoved)
	assert.Equal(t, 1, res.CrossRefsAdded)
	assert.Equal(t, []string{"results"}, res.SectionsModified)
}

func sampleSections() []outline.Section {
	return []outline.Section{
		{ID: "intro", Title: "Introduction", Level: 2},
		{ID: "results", Title: "Results", Level: 2},
	}
}

func TestIntegrateWithState_StateUpdateParsed(t *testing.T) {
	stateUpdate := `<!-- REPORT_STATE_UPDATE
{"report_id": "", "figures": [{"id": "F1", "semantic_key": "gen-mix", "owner_section": "intro", "caption": "Generation mix", "chart_id": "generation_mix"}], "tables": []}
-->`
	response := sampleReport + "\n" + stateUpdate

	gen := &llm.StaticGenerator{Response: response}
	in := New(gen, "test-model", false, nil)
	state := reportstate.NewState("annual-report")

	res, err := in.IntegrateWithState(context.Background(), sampleReport, state, sampleSections(), 0.9)
	require.NoError(t, err)
	assert.True(t, res.ValidationPassed)
	assert.NotContains(t, res.IntegratedContent, "REPORT_STATE_UPDATE")

	require.Len(t, res.State.Figures, 1)
	assert.Equal(t, "F1", res.State.Figures[0].ID)
	assert.Equal(t, "annual-report", res.State.ReportID, "empty report_id falls back to the original")
	assert.Equal(t, state.CreatedAt, res.State.CreatedAt)
}

func TestIntegrateWithState_MissingUpdateKeepsOriginalState(t *testing.T) {
	gen := &llm.StaticGenerator{Response: sampleReport}
	in := New(gen, "test-model", false, nil)
	state := reportstate.NewState("annual-report")

	res, err := in.IntegrateWithState(context.Background(), sampleReport, state, sampleSections(), 0.9)
	require.NoError(t, err)
	assert.Same(t, state, res.State)
}

func TestIntegrateWithState_BadUpdateKeepsOriginalState(t *testing.T) {
	response := sampleReport + "\n<!-- REPORT_STATE_UPDATE\n{broken\n-->"
	gen := &llm.StaticGenerator{Response: response}
	in := New(gen, "test-model", false, nil)
	state := reportstate.NewState("annual-report")

	res, err := in.IntegrateWithState(context.Background(), sampleReport, state, sampleSections(), 0.9)
	require.NoError(t, err)
	assert.Same(t, state, res.State)
	assert.NotContains(t, res.IntegratedContent, "REPORT_STATE_UPDATE")
}

func TestIntegrateWithState_ModifiedSectionsMarkedIntegrated(t *testing.T) {
	response := strings.Replace(sampleReport, "Opening prose", "Reworked opening", 1)
	gen := &llm.StaticGenerator{Response: response}
	in := New(gen, "test-model", false, nil)
	state := reportstate.NewState("annual-report")
	state.IncrementSectionVersion("intro")

	res, err := in.IntegrateWithState(context.Background(), sampleReport, state, sampleSections(), 0.9)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro"}, res.SectionsModified)
	assert.False(t, res.State.IsSectionStale("intro"))
	assert.True(t, res.State.IsSectionStale("results"), "untouched sections stay stale")
}

func TestWriteSectionHints(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_intro.md"), []byte("## Introduction\n\nText."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02_results.md"), []byte("## Results\n\nText."), 0644))

	state := reportstate.NewState("annual-report")
	state.RegisterFigure("gen-mix", "intro", "Generation mix", "generation_mix")

	require.NoError(t, WriteSectionHints(dir, sampleSections(), state))

	data, err := os.ReadFile(filepath.Join(dir, "02_results.md"))
	require.NoError(t, err)
	meta, ok := sectionmeta.Parse(string(data))
	require.True(t, ok)
	assert.Equal(t, "results", meta.SectionID)
	assert.Equal(t, []string{"F1"}, meta.IntegrationHints.AvoidFigures)

	data, err = os.ReadFile(filepath.Join(dir, "01_intro.md"))
	require.NoError(t, err)
	meta, ok = sectionmeta.Parse(string(data))
	require.True(t, ok)
	assert.Empty(t, meta.IntegrationHints.AvoidFigures, "owner section keeps its own figures")
	require.Len(t, meta.IntegrationHints.CanonicalFigures, 1)
}

func TestWriteSectionHints_MissingFileSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_intro.md"), []byte("x"), 0644))

	state := reportstate.NewState("r")
	assert.NoError(t, WriteSectionHints(dir, sampleSections(), state))
}
