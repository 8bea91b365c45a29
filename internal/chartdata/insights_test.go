package chartdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/austimes/report-writer/internal/catalog"
)

func TestGenerateInsights_Emissions(t *testing.T) {
	chart := &catalog.ChartMeta{Units: "Mt CO2e"}
	insights := generateInsights(relativeFrame(), chart)

	// The first scenario claims the deepest cuts in addition to the actual
	// global minimum scenario, so both A and B appear.
	assert.Equal(t, []string{
		"Baseline emissions in 2025: 100.00 Mt CO2e",
		"Transport provides largest reduction across all scenarios (~40 Mt CO2e)",
		"A achieves deepest total cuts (-35.00)",
		"A shows net increase from Agriculture (+5.00)",
		"B achieves deepest total cuts (-70.00)",
	}, insights)
}

func TestGenerateInsights_EmissionsDefaultUnits(t *testing.T) {
	insights := generateInsights(relativeFrame(), &catalog.ChartMeta{})
	require.NotEmpty(t, insights)
	assert.Equal(t, "Baseline emissions in 2025: 100.00 units", insights[0])
}

func TestGenerateInsights_Timeseries(t *testing.T) {
	chart := &catalog.ChartMeta{Units: "PJ"}
	insights := generateInsights(timeseriesFrame(), chart)

	assert.Equal(t, []string{
		"A: Total decreases 0.0% from 2020 to 2050",
		"B: Total increases 40.0% from 2020 to 2050",
		"By 2050, B is 40.0 PJ higher than A",
	}, insights)
}

func TestGenerateInsights_TimeseriesZeroStartSkipped(t *testing.T) {
	f := &Frame{
		Columns: []string{"fuel", "scen", "2020", "2050"},
		Rows: [][]string{
			{"Solar", "A", "0", "50"},
			{"Solar", "B", "10", "30"},
		},
	}
	insights := generateInsights(f, &catalog.ChartMeta{Units: "PJ"})

	assert.Equal(t, []string{
		"B: Total increases 200.0% from 2020 to 2050",
		"By 2050, A is 20.0 PJ higher than B",
	}, insights)
}

func TestGenerateInsights_ThirdScenarioOmitted(t *testing.T) {
	f := &Frame{
		Columns: []string{"fuel", "scen", "2020", "2050"},
		Rows: [][]string{
			{"Coal", "A", "10", "20"},
			{"Coal", "B", "10", "30"},
			{"Coal", "C", "10", "40"},
		},
	}
	insights := generateInsights(f, &catalog.ChartMeta{Units: "PJ"})

	require.Len(t, insights, 3)
	assert.Equal(t, "A: Total increases 100.0% from 2020 to 2050", insights[0])
	assert.Equal(t, "B: Total increases 200.0% from 2020 to 2050", insights[1])
	assert.Equal(t, "By 2050, C is 20.0 PJ higher than A", insights[2])
}

func TestGenerateInsights_NoShape(t *testing.T) {
	f := &Frame{Columns: []string{"name", "amount"}, Rows: [][]string{{"x", "1"}}}
	assert.Nil(t, generateInsights(f, &catalog.ChartMeta{}))
}
