// Package chartdata loads chart CSV data and derives scenario statistics and
// natural-language insights from it.
//
// Two data shapes exist. Relative/baseline charts carry a single `val`
// measure column with one row per (scenario, sector); the row whose first
// column mentions "Net" is the baseline. Time-series charts carry one column
// per year instead of `val`. Detection and the derived text are load-bearing:
// report prose downstream quotes them verbatim.
package chartdata

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/austimes/report-writer/internal/catalog"
)

// Columns that never count as auto-detected dimensions.
var reservedColumns = map[string]bool{
	"scen": true, "year": true, "val": true,
	"unit": true, "units": true, "measure": true,
}

// SectorValue pairs a sector label with its measure value.
type SectorValue struct {
	Sector string  `json:"sector"`
	Value  float64 `json:"value"`
}

// ScenarioStats holds per-scenario summary statistics. Which fields are set
// depends on the data shape: relative charts fill Baseline/TotalReduction/
// TopReductions/NotableIncreases, time-series charts fill the year fields.
type ScenarioStats struct {
	Baseline         *float64
	TotalReduction   *float64
	TopReductions    []SectorValue
	NotableIncreases []SectorValue

	StartYear     *int
	EndYear       *int
	StartValue    *float64
	EndValue      *float64
	PercentChange *float64
}

// MarshalJSON emits only the statistics that were computed. The sector lists
// stay present (possibly empty) whenever a total reduction exists, since
// downstream prompts treat them as a unit.
func (s ScenarioStats) MarshalJSON() ([]byte, error) {
	out := struct {
		Baseline         *float64       `json:"baseline,omitempty"`
		TotalReduction   *float64       `json:"total_reduction,omitempty"`
		TopReductions    *[]SectorValue `json:"top_reductions,omitempty"`
		NotableIncreases *[]SectorValue `json:"notable_increases,omitempty"`
		StartYear        *int           `json:"start_year,omitempty"`
		EndYear          *int           `json:"end_year,omitempty"`
		StartValue       *float64       `json:"start_value,omitempty"`
		EndValue         *float64       `json:"end_value,omitempty"`
		PercentChange    *float64       `json:"percent_change,omitempty"`
	}{
		Baseline:       s.Baseline,
		TotalReduction: s.TotalReduction,
		StartYear:      s.StartYear,
		EndYear:        s.EndYear,
		StartValue:     s.StartValue,
		EndValue:       s.EndValue,
		PercentChange:  s.PercentChange,
	}
	if s.TotalReduction != nil {
		top := s.TopReductions
		if top == nil {
			top = []SectorValue{}
		}
		increases := s.NotableIncreases
		if increases == nil {
			increases = []SectorValue{}
		}
		out.TopReductions = &top
		out.NotableIncreases = &increases
	}
	return json.Marshal(out)
}

// IsZero reports whether no statistic was computed.
func (s ScenarioStats) IsZero() bool {
	return s.Baseline == nil && s.TotalReduction == nil &&
		len(s.TopReductions) == 0 && len(s.NotableIncreases) == 0 &&
		s.StartYear == nil && s.PercentChange == nil &&
		s.StartValue == nil && s.EndValue == nil
}

// ChartSummary is the derived summary of one chart's data. It is recomputed
// on every request; only the underlying frame is cached.
type ChartSummary struct {
	ChartID     string
	Title       string
	Dimensions  []string
	Measure     string
	MeasureType string
	Units       string
	Scenarios   []string
	Years       []int
	RowCount    int
	ByScenario  map[string]ScenarioStats
	KeyInsights []string
}

// Reader loads and summarizes chart data from the catalog. The frame cache is
// keyed by chart ID and is not synchronized; intended usage is one reader per
// run.
type Reader struct {
	catalog *catalog.Catalog
	cache   map[string]*Frame
}

// NewReader builds a reader over a catalog.
func NewReader(c *catalog.Catalog) *Reader {
	return &Reader{catalog: c, cache: map[string]*Frame{}}
}

// LoadData loads a chart's CSV into a frame, caching per chart ID.
func (r *Reader) LoadData(chartID string) (*Frame, error) {
	if f, ok := r.cache[chartID]; ok {
		return f, nil
	}

	chart, ok := r.catalog.GetChart(chartID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChartNotFound, chartID)
	}
	if chart.CSVPath == "" {
		return nil, fmt.Errorf("%w: %s has no CSV", ErrChartDataUnavailable, chartID)
	}

	f, err := LoadCSVFrame(chart.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrChartDataUnavailable, chartID, err)
	}
	r.cache[chartID] = f
	return f, nil
}

// Summary computes a fresh ChartSummary for the chart.
func (r *Reader) Summary(chartID string) (*ChartSummary, error) {
	chart, ok := r.catalog.GetChart(chartID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChartNotFound, chartID)
	}

	f, err := r.LoadData(chartID)
	if err != nil {
		return nil, err
	}

	scenarios := extractScenarios(f)
	byScenario := make(map[string]ScenarioStats, len(scenarios))
	for _, scenario := range scenarios {
		byScenario[scenario] = computeScenarioSummary(f, scenario)
	}

	return &ChartSummary{
		ChartID:     chartID,
		Title:       chart.Title,
		Dimensions:  detectDimensions(f, chart),
		Measure:     detectMeasure(f),
		MeasureType: detectMeasureType(f),
		Units:       chart.Units,
		Scenarios:   scenarios,
		Years:       extractYears(f),
		RowCount:    len(f.Rows),
		ByScenario:  byScenario,
		KeyInsights: generateInsights(f, chart),
	}, nil
}

// ImageBase64 returns the chart's PNG as base64, or "" when the chart or its
// image is absent.
func (r *Reader) ImageBase64(chartID string) (string, error) {
	chart, ok := r.catalog.GetChart(chartID)
	if !ok || chart.PNGPath == "" {
		return "", nil
	}
	raw, err := os.ReadFile(chart.PNGPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// PlotSpec returns the chart's Plotly JSON specification, or nil when the
// chart or its JSON sidecar is absent.
func (r *Reader) PlotSpec(chartID string) (map[string]any, error) {
	chart, ok := r.catalog.GetChart(chartID)
	if !ok || chart.JSONPath == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(chart.JSONPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var spec map[string]any
	if err := json.Unmarshal(raw, &spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// extractScenarios returns the sorted unique non-null values of the scen
// column, or nothing when the column is absent.
func extractScenarios(f *Frame) []string {
	col := f.ColumnIndex("scen")
	if col < 0 {
		return nil
	}
	set := map[string]bool{}
	for r := range f.Rows {
		if v := f.Cell(r, col); v != "" {
			set[v] = true
		}
	}
	scenarios := make([]string, 0, len(set))
	for v := range set {
		scenarios = append(scenarios, v)
	}
	sort.Strings(scenarios)
	return scenarios
}

// extractYears returns sorted unique years, either from a year column or
// from year-named columns in [2000, 2100].
func extractYears(f *Frame) []int {
	if col := f.ColumnIndex("year"); col >= 0 {
		set := map[int]bool{}
		for r := range f.Rows {
			cell := f.Cell(r, col)
			if cell == "" {
				continue
			}
			if v, ok := parseCell(cell); ok {
				set[int(v)] = true
			}
		}
		return sortedInts(set)
	}

	set := map[int]bool{}
	for _, name := range yearColumns(f) {
		n, _ := strconv.Atoi(name)
		set[n] = true
	}
	return sortedInts(set)
}

func sortedInts(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// yearColumns returns the names of columns that are purely digits and fall in
// [2000, 2100], in frame column order.
func yearColumns(f *Frame) []string {
	var cols []string
	for _, name := range f.Columns {
		if !isAllDigits(name) {
			continue
		}
		n, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		if n >= 2000 && n <= 2100 {
			cols = append(cols, name)
		}
	}
	return cols
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func minYearColumn(cols []string) string {
	best := cols[0]
	bestN, _ := strconv.Atoi(best)
	for _, c := range cols[1:] {
		if n, _ := strconv.Atoi(c); n < bestN {
			best, bestN = c, n
		}
	}
	return best
}

func maxYearColumn(cols []string) string {
	best := cols[0]
	bestN, _ := strconv.Atoi(best)
	for _, c := range cols[1:] {
		if n, _ := strconv.Atoi(c); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// detectDimensions intersects declared dimensions with actual columns, or
// auto-detects categorical columns outside the reserved set.
func detectDimensions(f *Frame, chart *catalog.ChartMeta) []string {
	if len(chart.Dimensions) > 0 {
		var dims []string
		for _, d := range chart.Dimensions {
			if f.HasColumn(d) {
				dims = append(dims, d)
			}
		}
		return dims
	}

	var dims []string
	for i, name := range f.Columns {
		if reservedColumns[name] {
			continue
		}
		if f.hasNonNumericValue(i) {
			dims = append(dims, name)
		}
	}
	return dims
}

// detectMeasure picks the measure column name: val, year_values for
// year-shaped data, the first numeric column, or val as the default.
func detectMeasure(f *Frame) string {
	if f.HasColumn("val") {
		return "val"
	}
	if len(yearColumns(f)) > 0 {
		return "year_values"
	}
	for i, name := range f.Columns {
		if f.isNumericColumn(i) {
			return name
		}
	}
	return "val"
}

// detectMeasureType reads the measure column's distinct values, joined by
// ", " when more than one, defaulting to "value" without the column.
func detectMeasureType(f *Frame) string {
	col := f.ColumnIndex("measure")
	if col < 0 {
		return "value"
	}
	seen := map[string]bool{}
	var measures []string
	for r := range f.Rows {
		v := f.Cell(r, col)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		measures = append(measures, v)
	}
	if len(measures) == 1 {
		return measures[0]
	}
	return strings.Join(measures, ", ")
}

// containsNet is the baseline-row test: the first column mentions "Net" in
// any case.
func containsNet(cell string) bool {
	return strings.Contains(strings.ToLower(cell), "net")
}

// scenarioRows returns row indexes whose scen cell equals the scenario.
func scenarioRows(f *Frame, scenario string) []int {
	col := f.ColumnIndex("scen")
	if col < 0 {
		return nil
	}
	var rows []int
	for r := range f.Rows {
		if f.Cell(r, col) == scenario {
			rows = append(rows, r)
		}
	}
	return rows
}

// splitBaseline partitions rows into (baseline, non-baseline) by the Net test
// on the first column.
func splitBaseline(f *Frame, rows []int) (baseline, nonBaseline []int) {
	for _, r := range rows {
		if containsNet(f.Cell(r, 0)) {
			baseline = append(baseline, r)
		} else {
			nonBaseline = append(nonBaseline, r)
		}
	}
	return baseline, nonBaseline
}

// valueOrNaN parses the cell, mapping nulls and junk to NaN so downstream
// formatting mirrors float("nan") behavior.
func valueOrNaN(cell string) float64 {
	if v, ok := parseCell(cell); ok {
		return v
	}
	return math.NaN()
}

// sortRowsByValue orders row indexes by ascending value of the given column,
// keeping unparseable values last and preserving input order on ties.
func sortRowsByValue(f *Frame, rows []int, col int) []int {
	sorted := append([]int(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		vi, oki := parseCell(f.Cell(sorted[i], col))
		vj, okj := parseCell(f.Cell(sorted[j], col))
		if oki != okj {
			return oki
		}
		return vi < vj
	})
	return sorted
}

// computeScenarioSummary derives the per-scenario statistics for one
// scenario, branching on whether the data is relative (val column) or
// time-series (year columns) shaped.
func computeScenarioSummary(f *Frame, scenario string) ScenarioStats {
	var stats ScenarioStats
	if !f.HasColumn("scen") {
		return stats
	}

	rows := scenarioRows(f, scenario)

	if valCol := f.ColumnIndex("val"); valCol >= 0 {
		baselineRows, nonBaseline := splitBaseline(f, rows)

		if len(baselineRows) > 0 {
			v := valueOrNaN(f.Cell(baselineRows[0], valCol))
			stats.Baseline = &v
		}

		if len(nonBaseline) > 0 {
			total := round2(f.sumColumn(valCol, nonBaseline))
			stats.TotalReduction = &total

			sorted := sortRowsByValue(f, nonBaseline, valCol)
			for _, r := range sorted {
				v, ok := parseCell(f.Cell(r, valCol))
				if !ok {
					continue
				}
				sv := SectorValue{Sector: f.Cell(r, 0), Value: round2(v)}
				if v < 0 && len(stats.TopReductions) < 3 {
					stats.TopReductions = append(stats.TopReductions, sv)
				}
				if v > 0 {
					stats.NotableIncreases = append(stats.NotableIncreases, sv)
				}
			}
		}
		return stats
	}

	yearCols := yearColumns(f)
	if len(yearCols) == 0 {
		return stats
	}

	firstCol := minYearColumn(yearCols)
	lastCol := maxYearColumn(yearCols)
	startTotal := f.sumColumn(f.ColumnIndex(firstCol), rows)
	endTotal := f.sumColumn(f.ColumnIndex(lastCol), rows)

	startYear, _ := strconv.Atoi(firstCol)
	endYear, _ := strconv.Atoi(lastCol)
	startValue := round2(startTotal)
	endValue := round2(endTotal)
	stats.StartYear = &startYear
	stats.EndYear = &endYear
	stats.StartValue = &startValue
	stats.EndValue = &endValue

	if startTotal != 0 {
		pct := round1((endTotal - startTotal) / math.Abs(startTotal) * 100)
		stats.PercentChange = &pct
	}
	return stats
}
