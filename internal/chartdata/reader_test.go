package chartdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austimes/report-writer/internal/catalog"
)

// relativeFrame is the baseline/val shape: one row per (scenario, sector)
// with a Net row carrying the baseline.
func relativeFrame() *Frame {
	return &Frame{
		Columns: []string{"sector", "scen", "val"},
		Rows: [][]string{
			{"Net emissions", "A", "100.0"},
			{"Transport", "A", "-30.0"},
			{"Industry", "A", "-10.0"},
			{"Agriculture", "A", "5.0"},
			{"Net emissions", "B", "100.0"},
			{"Transport", "B", "-50.0"},
			{"Industry", "B", "-20.0"},
		},
	}
}

func timeseriesFrame() *Frame {
	return &Frame{
		Columns: []string{"fuel", "scen", "2020", "2050"},
		Rows: [][]string{
			{"Coal", "A", "60", "10"},
			{"Wind", "A", "40", "90"},
			{"Coal", "B", "60", "30"},
			{"Wind", "B", "40", "110"},
		},
	}
}

func TestExtractScenarios_SortedUnique(t *testing.T) {
	f := &Frame{
		Columns: []string{"scen", "val"},
		Rows:    [][]string{{"B", "1"}, {"A", "2"}, {"A", "3"}, {"", "4"}},
	}
	assert.Equal(t, []string{"A", "B"}, extractScenarios(f))

	noScen := &Frame{Columns: []string{"val"}, Rows: [][]string{{"1"}}}
	assert.Empty(t, extractScenarios(noScen))
}

func TestExtractYears(t *testing.T) {
	withCol := &Frame{
		Columns: []string{"year", "val"},
		Rows:    [][]string{{"2030", "1"}, {"2020", "2"}, {"2030", "3"}},
	}
	assert.Equal(t, []int{2020, 2030}, extractYears(withCol))

	assert.Equal(t, []int{2020, 2050}, extractYears(timeseriesFrame()))

	outOfRange := &Frame{Columns: []string{"1999", "2101", "abc"}}
	assert.Empty(t, extractYears(outOfRange))
}

func TestDetectMeasure(t *testing.T) {
	assert.Equal(t, "val", detectMeasure(relativeFrame()))
	assert.Equal(t, "year_values", detectMeasure(timeseriesFrame()))

	numeric := &Frame{
		Columns: []string{"name", "amount"},
		Rows:    [][]string{{"x", "1"}},
	}
	assert.Equal(t, "amount", detectMeasure(numeric))

	none := &Frame{Columns: []string{"name"}, Rows: [][]string{{"x"}}}
	assert.Equal(t, "val", detectMeasure(none))
}

func TestDetectMeasureType(t *testing.T) {
	f := &Frame{
		Columns: []string{"measure", "val"},
		Rows:    [][]string{{"Emissions", "1"}, {"Capacity", "2"}, {"Emissions", "3"}},
	}
	assert.Equal(t, "Emissions, Capacity", detectMeasureType(f))

	single := &Frame{Columns: []string{"measure"}, Rows: [][]string{{"Emissions"}}}
	assert.Equal(t, "Emissions", detectMeasureType(single))

	assert.Equal(t, "value", detectMeasureType(relativeFrame()))
}

func TestDetectDimensions(t *testing.T) {
	f := relativeFrame()

	declared := &catalog.ChartMeta{Dimensions: []string{"sector", "region"}}
	assert.Equal(t, []string{"sector"}, detectDimensions(f, declared),
		"declared dimensions are intersected with actual columns")

	auto := &catalog.ChartMeta{}
	assert.Equal(t, []string{"sector"}, detectDimensions(f, auto),
		"reserved and numeric columns never auto-detect as dimensions")
}

func TestSortRowsByValue_UnparseableLast(t *testing.T) {
	f := &Frame{
		Columns: []string{"val"},
		Rows:    [][]string{{"5"}, {""}, {"-2"}, {"3"}},
	}
	assert.Equal(t, []int{2, 3, 0, 1}, sortRowsByValue(f, f.allRows(), 0))
}

func TestComputeScenarioSummary_Relative(t *testing.T) {
	stats := computeScenarioSummary(relativeFrame(), "A")

	require.NotNil(t, stats.Baseline)
	assert.Equal(t, 100.0, *stats.Baseline)
	require.NotNil(t, stats.TotalReduction)
	assert.Equal(t, -35.0, *stats.TotalReduction)

	require.Len(t, stats.TopReductions, 2)
	assert.Equal(t, SectorValue{Sector: "Transport", Value: -30.0}, stats.TopReductions[0])
	assert.Equal(t, SectorValue{Sector: "Industry", Value: -10.0}, stats.TopReductions[1])

	require.Len(t, stats.NotableIncreases, 1)
	assert.Equal(t, "Agriculture", stats.NotableIncreases[0].Sector)
}

func TestComputeScenarioSummary_Timeseries(t *testing.T) {
	stats := computeScenarioSummary(timeseriesFrame(), "A")

	require.NotNil(t, stats.StartYear)
	assert.Equal(t, 2020, *stats.StartYear)
	assert.Equal(t, 2050, *stats.EndYear)
	assert.Equal(t, 100.0, *stats.StartValue)
	assert.Equal(t, 100.0, *stats.EndValue)
	require.NotNil(t, stats.PercentChange)
	assert.Equal(t, 0.0, *stats.PercentChange)
}

func TestComputeScenarioSummary_NoScenColumn(t *testing.T) {
	f := &Frame{Columns: []string{"sector", "val"}, Rows: [][]string{{"x", "1"}}}
	assert.True(t, computeScenarioSummary(f, "A").IsZero())
}

func TestScenarioStats_MarshalJSON(t *testing.T) {
	stats := computeScenarioSummary(relativeFrame(), "B")
	data, err := json.Marshal(stats)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "baseline")
	assert.Contains(t, decoded, "total_reduction")
	assert.Contains(t, decoded, "top_reductions")
	assert.Contains(t, decoded, "notable_increases", "empty increase list stays present")
	assert.NotContains(t, decoded, "start_year")
}

func newTestReader(t *testing.T) *Reader {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "emissions"), 0755))
	specs := `{"title": "Emissions by sector", "si_unit": "Mt CO2e", "groupby": ["scen", "sector"]}
{"title": "Generation mix", "si_unit": "PJ", "groupby": ["scen", "fuel"]}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "plot_specs.json"), []byte(specs), 0644))

	csv := "sector,scen,val\nNet emissions,A,100\nTransport,A,-30\nIndustry,A,-10\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "emissions", "emissions_by_sector.csv"), []byte(csv), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "emissions", "no_data.png"), []byte("png"), 0644))

	return NewReader(catalog.New(root))
}

func TestReader_Summary(t *testing.T) {
	r := newTestReader(t)

	summary, err := r.Summary("emissions_by_sector")
	require.NoError(t, err)
	assert.Equal(t, "Emissions by sector", summary.Title)
	assert.Equal(t, "Mt CO2e", summary.Units)
	assert.Equal(t, []string{"A"}, summary.Scenarios)
	assert.Equal(t, "val", summary.Measure)
	assert.Equal(t, 3, summary.RowCount)
	assert.Contains(t, summary.ByScenario, "A")
	assert.NotEmpty(t, summary.KeyInsights)
}

func TestReader_LoadDataErrors(t *testing.T) {
	r := newTestReader(t)

	_, err := r.LoadData("missing_chart")
	assert.ErrorIs(t, err, ErrChartNotFound)

	_, err = r.LoadData("no_data")
	assert.ErrorIs(t, err, ErrChartDataUnavailable)
}

func TestReader_LoadDataCache(t *testing.T) {
	r := newTestReader(t)

	f1, err := r.LoadData("emissions_by_sector")
	require.NoError(t, err)
	f2, err := r.LoadData("emissions_by_sector")
	require.NoError(t, err)
	assert.Same(t, f1, f2)
}

func TestReader_ImageAndSpecAbsent(t *testing.T) {
	r := newTestReader(t)

	img, err := r.ImageBase64("emissions_by_sector")
	require.NoError(t, err)
	assert.Equal(t, "", img)

	spec, err := r.PlotSpec("emissions_by_sector")
	require.NoError(t, err)
	assert.Nil(t, spec)
}
