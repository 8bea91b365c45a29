package mapper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austimes/report-writer/internal/catalog"
	"github.com/austimes/report-writer/internal/outline"
)

// newTestCatalog builds a catalog with four charts across three categories:
// emissions/{emissions_by_sector,emissions_trend}, electricity/generation_mix,
// transport/transport_demand. Titles are derived from the IDs.
func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	root := t.TempDir()
	files := []string{
		"emissions/emissions_by_sector.csv",
		"emissions/emissions_trend.csv",
		"electricity/generation_mix.csv",
		"transport/transport_demand.csv",
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("scen,val\nA,1\n"), 0644))
	}
	return catalog.New(root)
}

func writeMapping(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "section_chart_map.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func chartIDs(charts []*catalog.ChartMeta) []string {
	ids := make([]string, 0, len(charts))
	for _, c := range charts {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestMapper_ExplicitIDs(t *testing.T) {
	path := writeMapping(t, `{"intro": {"charts": ["emissions_by_sector", "missing_chart", "electricity/generation_mix"]}}`)
	m := New(newTestCatalog(t), path)

	charts := m.ChartsForSection("intro")
	assert.Equal(t, []string{"emissions_by_sector", "generation_mix"}, chartIDs(charts),
		"missing charts are skipped; category-prefixed IDs resolve")
}

func TestMapper_PatternSelector(t *testing.T) {
	path := writeMapping(t, `{"s": {"charts": [{"pattern": "emissions_*"}]}}`)
	m := New(newTestCatalog(t), path)

	assert.Equal(t, []string{"emissions_by_sector", "emissions_trend"},
		chartIDs(m.ChartsForSection("s")))
}

func TestMapper_ScopedPattern(t *testing.T) {
	path := writeMapping(t, `{"s": {"charts": [{"pattern": "electricity/*"}]}}`)
	m := New(newTestCatalog(t), path)

	assert.Equal(t, []string{"generation_mix"}, chartIDs(m.ChartsForSection("s")))
}

func TestMapper_SelectorMax(t *testing.T) {
	path := writeMapping(t, `{"s": {"charts": [{"pattern": "emissions_*", "max": 1}]}}`)
	m := New(newTestCatalog(t), path)

	assert.Equal(t, []string{"emissions_by_sector"}, chartIDs(m.ChartsForSection("s")))
}

func TestMapper_SelectorMaxZeroTakesNothing(t *testing.T) {
	path := writeMapping(t, `{"s": {"charts": [{"pattern": "emissions_*", "max": 0}]}}`)
	m := New(newTestCatalog(t), path)

	assert.Empty(t, m.ChartsForSection("s"))
}

func TestMapper_SectionCapAndDedup(t *testing.T) {
	path := writeMapping(t, `{"s": {"charts": ["emissions_trend", {"pattern": "emissions_*"}, "transport_demand"], "max_charts": 2}}`)
	m := New(newTestCatalog(t), path)

	// The explicit entry comes first; the pattern contributes only the chart
	// not already selected, then the section cap stops transport_demand.
	assert.Equal(t, []string{"emissions_trend", "emissions_by_sector"},
		chartIDs(m.ChartsForSection("s")))
}

func TestMapper_AutoSelectorInMapping(t *testing.T) {
	path := writeMapping(t, `{"emissions-overview": {"charts": [{"auto": true, "max": 1}]}}`)
	m := New(newTestCatalog(t), path)

	assert.Equal(t, []string{"emissions_by_sector"},
		chartIDs(m.ChartsForSection("emissions-overview")))
}

func TestMapper_AutoFallback(t *testing.T) {
	m := New(newTestCatalog(t), "")

	// Both emissions charts tie on score; chart ID breaks the tie.
	assert.Equal(t, []string{"emissions_by_sector", "emissions_trend"},
		chartIDs(m.ChartsForSection("emissions-overview")))
}

func TestMapper_AutoFallbackNoMatches(t *testing.T) {
	m := New(newTestCatalog(t), "")
	assert.Empty(t, m.ChartsForSection("unrelated-topic"))
}

func TestMapper_ContextKeywords(t *testing.T) {
	m := New(newTestCatalog(t), "")

	section := outline.Section{
		ID:           "results",
		Title:        "Generation results",
		Instructions: "Discuss the generation mix across scenarios.",
	}
	assert.Equal(t, []string{"generation_mix"},
		chartIDs(m.ChartsForSectionContext(section)))
}

func TestMapper_BadMappingFileIgnored(t *testing.T) {
	path := writeMapping(t, `{not json`)
	m := New(newTestCatalog(t), path)

	assert.Empty(t, m.AllMappings())
	// Auto fallback still works.
	assert.NotEmpty(t, m.ChartsForSection("emissions-overview"))
}

func TestMapper_AllMappings(t *testing.T) {
	path := writeMapping(t, `{"a": {"charts": ["x", {"pattern": "y*"}, {"auto": true}]}, "b": {"charts": []}}`)
	m := New(newTestCatalog(t), path)

	all := m.AllMappings()
	assert.Equal(t, []string{"x"}, all["a"])
	assert.Empty(t, all["b"])
}

func TestSectionKeywords(t *testing.T) {
	section := outline.Section{
		Title:        "Low-carbon Transport",
		Instructions: "Describe the key trends in electric vehicle uptake.",
	}
	keywords := SectionKeywords(section)

	assert.True(t, keywords["low-carbon"], "hyphenated words stay intact")
	assert.True(t, keywords["transport"])
	assert.True(t, keywords["electric"])
	assert.False(t, keywords["the"], "stopwords dropped")
	assert.False(t, keywords["describe"], "instruction verbs dropped")
	assert.False(t, keywords["in"], "short words dropped")
}
