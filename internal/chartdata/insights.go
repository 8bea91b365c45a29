package chartdata

import (
	"fmt"
	"math"
	"sort"

	"github.com/austimes/report-writer/internal/catalog"
)

// generateInsights produces the ordered key-insight sentences for a chart.
// The literal sentence formats are part of the report surface; changing them
// changes generated report text.
func generateInsights(f *Frame, chart *catalog.ChartMeta) []string {
	scenarios := extractScenarios(f)

	if f.HasColumn("val") {
		return emissionsInsights(f, scenarios, chart)
	}
	if yearCols := yearColumns(f); len(yearCols) > 0 {
		return timeseriesInsights(f, yearCols, scenarios, chart)
	}
	return nil
}

func chartUnits(chart *catalog.ChartMeta) string {
	if chart.Units != "" {
		return chart.Units
	}
	return "units"
}

// emissionsInsights covers relative/baseline shaped charts.
func emissionsInsights(f *Frame, scenarios []string, chart *catalog.ChartMeta) []string {
	var insights []string
	units := chartUnits(chart)
	valCol := f.ColumnIndex("val")

	baselineRows, nonBaseline := splitBaseline(f, f.allRows())
	if len(baselineRows) > 0 {
		baseline := valueOrNaN(f.Cell(baselineRows[0], valCol))
		insights = append(insights, fmt.Sprintf("Baseline emissions in 2025: %.2f %s", baseline, units))
	}

	if len(nonBaseline) > 0 {
		if sector, avg, ok := lowestSectorMean(f, nonBaseline, valCol); ok {
			insights = append(insights,
				fmt.Sprintf("%s provides largest reduction across all scenarios (~%.0f %s)", sector, math.Abs(avg), units))
		}
	}

	globalMin, haveGlobalMin := minScenarioTotal(f, nonBaseline, valCol)

	for i, scen := range scenarios {
		scenRows := scenarioRows(f, scen)
		_, nonBaselineScen := splitBaseline(f, scenRows)
		if len(nonBaselineScen) == 0 {
			continue
		}

		total := f.sumColumn(valCol, nonBaselineScen)
		// Fires for the first scenario and for the global-minimum scenario,
		// so two different scenarios can both claim the deepest cuts.
		if i == 0 || (haveGlobalMin && total == globalMin) {
			if total < 0 {
				insights = append(insights, fmt.Sprintf("%s achieves deepest total cuts (%.2f)", scen, total))
			}
		}

		for _, r := range nonBaselineScen {
			v, ok := parseCell(f.Cell(r, valCol))
			if !ok || v <= 0 {
				continue
			}
			insights = append(insights,
				fmt.Sprintf("%s shows net increase from %s (+%.2f)", scen, f.Cell(r, 0), v))
		}
	}

	return insights
}

// lowestSectorMean groups non-baseline rows by the first column and returns
// the sector with the lowest mean value. Sector keys are compared in sorted
// order so ties resolve to the lexicographically first sector.
func lowestSectorMean(f *Frame, rows []int, valCol int) (string, float64, bool) {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range rows {
		v, ok := parseCell(f.Cell(r, valCol))
		if !ok {
			continue
		}
		sector := f.Cell(r, 0)
		sums[sector] += v
		counts[sector]++
	}
	if len(counts) == 0 {
		return "", 0, false
	}

	sectors := make([]string, 0, len(counts))
	for s := range counts {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)

	best := sectors[0]
	bestMean := sums[best] / float64(counts[best])
	for _, s := range sectors[1:] {
		if mean := sums[s] / float64(counts[s]); mean < bestMean {
			best, bestMean = s, mean
		}
	}
	return best, bestMean, true
}

// minScenarioTotal returns the smallest per-scenario sum over the given
// non-baseline rows.
func minScenarioTotal(f *Frame, rows []int, valCol int) (float64, bool) {
	scenCol := f.ColumnIndex("scen")
	if scenCol < 0 {
		return 0, false
	}
	totals := map[string]float64{}
	for _, r := range rows {
		v, ok := parseCell(f.Cell(r, valCol))
		if !ok {
			v = 0
		}
		totals[f.Cell(r, scenCol)] += v
	}
	if len(totals) == 0 {
		return 0, false
	}
	first := true
	min := 0.0
	for _, t := range totals {
		if first || t < min {
			min = t
			first = false
		}
	}
	return min, true
}

// timeseriesInsights covers year-column shaped charts.
func timeseriesInsights(f *Frame, yearCols, scenarios []string, chart *catalog.ChartMeta) []string {
	var insights []string
	units := chartUnits(chart)
	firstCol := minYearColumn(yearCols)
	lastCol := maxYearColumn(yearCols)
	firstIdx := f.ColumnIndex(firstCol)
	lastIdx := f.ColumnIndex(lastCol)

	for i, scen := range scenarios {
		if i >= 2 {
			break
		}
		rows := scenarioRows(f, scen)
		startTotal := f.sumColumn(firstIdx, rows)
		endTotal := f.sumColumn(lastIdx, rows)

		if startTotal == 0 {
			continue
		}
		pct := (endTotal - startTotal) / math.Abs(startTotal) * 100
		direction := "decreases"
		if pct > 0 {
			direction = "increases"
		}
		insights = append(insights,
			fmt.Sprintf("%s: Total %s %.1f%% from %s to %s", scen, direction, math.Abs(pct), firstCol, lastCol))
	}

	if len(scenarios) > 1 && f.HasColumn("scen") {
		maxScen, minScen := scenarios[0], scenarios[0]
		maxTotal := f.sumColumn(lastIdx, scenarioRows(f, scenarios[0]))
		minTotal := maxTotal
		for _, scen := range scenarios[1:] {
			total := f.sumColumn(lastIdx, scenarioRows(f, scen))
			if total > maxTotal {
				maxScen, maxTotal = scen, total
			}
			if total < minTotal {
				minScen, minTotal = scen, total
			}
		}

		if maxScen != minScen {
			diff := maxTotal - minTotal
			insights = append(insights,
				fmt.Sprintf("By %s, %s is %.1f %s higher than %s", lastCol, maxScen, diff, units, minScen))
		}
	}

	return insights
}
