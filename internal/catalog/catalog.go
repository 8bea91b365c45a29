// Package catalog discovers chart artifacts under a data directory and
// correlates them with plot-spec metadata.
//
// The on-disk layout is `<root>/<category>/<chart_id>.{csv,png,json}` with a
// `plot_specs.json` sidecar at the root. That sidecar is not a JSON array but
// a back-to-back concatenation of JSON objects; see parsePlotSpecs.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
)

// ChartMeta describes one discovered chart. A path field is empty when the
// corresponding sibling file does not exist on disk.
type ChartMeta struct {
	ID               string
	Category         string
	Title            string
	CSVPath          string
	PNGPath          string
	JSONPath         string
	Dimensions       []string
	Measures         []string
	Units            string
	FilterExpression string
	Scenarios        []string
}

// PlotSpec is one record from plot_specs.json.
type PlotSpec struct {
	Title    string   `json:"title"`
	SIUnit   string   `json:"si_unit"`
	Filter   string   `json:"filter"`
	GroupBy  []string `json:"groupby"`
	Category string   `json:"category"`
}

// Columns from a plot spec's groupby that never count as chart dimensions.
var reservedGroupBy = map[string]bool{"scen": true, "year": true, "unit": true}

var normalizeRe = regexp.MustCompile(`[^a-z0-9]`)

// Catalog indexes the charts found under a data root. Construction never
// fails: a missing or empty root simply yields an empty catalog.
type Catalog struct {
	originalRoot string
	dataRoot     string
	charts       map[string]*ChartMeta
	categories   []string
	plotSpecs    map[string]PlotSpec
}

// New scans dataRoot and builds the catalog.
func New(dataRoot string) *Catalog {
	c := &Catalog{
		originalRoot: dataRoot,
		charts:       map[string]*ChartMeta{},
		plotSpecs:    map[string]PlotSpec{},
	}
	c.dataRoot = c.findDataRoot()
	c.loadPlotSpecs()
	c.scanCharts()
	return c
}

// DataRoot returns the resolved root actually scanned.
func (c *Catalog) DataRoot() string { return c.dataRoot }

// findDataRoot locates the export folder containing plot_specs.json. The
// original root wins if it has one; otherwise the first sorted non-dot
// subdirectory with one is used; otherwise the original root is kept.
func (c *Catalog) findDataRoot() string {
	if _, err := os.Stat(c.originalRoot); err != nil {
		return c.originalRoot
	}
	if fileExists(filepath.Join(c.originalRoot, "plot_specs.json")) {
		return c.originalRoot
	}

	entries, err := os.ReadDir(c.originalRoot)
	if err != nil {
		return c.originalRoot
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		sub := filepath.Join(c.originalRoot, entry.Name())
		if fileExists(filepath.Join(sub, "plot_specs.json")) {
			return sub
		}
	}
	return c.originalRoot
}

func (c *Catalog) loadPlotSpecs() {
	specsPath := filepath.Join(c.dataRoot, "plot_specs.json")
	raw, err := os.ReadFile(specsPath)
	if err != nil {
		return
	}
	c.plotSpecs = parsePlotSpecs(string(raw))
}

// parsePlotSpecs decodes the concatenated-objects format: objects are
// separated only by a shared "}\n{" boundary, so the text is split on that
// literal and the brace lost on each side is re-attached before decoding.
// Objects that fail to decode or lack a title are skipped; duplicate titles
// keep the last occurrence.
func parsePlotSpecs(content string) map[string]PlotSpec {
	parts := strings.Split(content, "}\n{")
	specs := make(map[string]PlotSpec, len(parts))

	for i, part := range parts {
		var jsonStr string
		switch {
		case i == 0:
			jsonStr = part + "}"
		case i == len(parts)-1:
			jsonStr = "{" + part
		default:
			jsonStr = "{" + part + "}"
		}

		var spec PlotSpec
		if err := json.Unmarshal([]byte(jsonStr), &spec); err != nil {
			logrus.Debugf("catalog: skipping undecodable plot spec chunk %d: %v", i, err)
			continue
		}
		if spec.Title == "" {
			continue
		}
		specs[spec.Title] = spec
	}
	return specs
}

func (c *Catalog) scanCharts() {
	entries, err := os.ReadDir(c.dataRoot)
	if err != nil {
		return
	}

	var categories []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		categories = append(categories, entry.Name())
		c.scanCategory(filepath.Join(c.dataRoot, entry.Name()))
	}
	c.categories = categories
}

func (c *Catalog) scanCategory(categoryPath string) {
	category := filepath.Base(categoryPath)

	entries, err := os.ReadDir(categoryPath)
	if err != nil {
		return
	}

	idSet := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".csv" && ext != ".png" && ext != ".json" {
			continue
		}
		idSet[strings.TrimSuffix(entry.Name(), ext)] = true
	}

	chartIDs := make([]string, 0, len(idSet))
	for id := range idSet {
		chartIDs = append(chartIDs, id)
	}
	sort.Strings(chartIDs)

	for _, chartID := range chartIDs {
		csvPath := filepath.Join(categoryPath, chartID+".csv")
		pngPath := filepath.Join(categoryPath, chartID+".png")
		jsonPath := filepath.Join(categoryPath, chartID+".json")

		title := idToTitle(chartID)
		var dimensions []string
		units := ""
		filterExpr := ""
		if spec, ok := c.findSpecForChart(chartID); ok {
			if spec.Title != "" {
				title = spec.Title
			}
			for _, col := range spec.GroupBy {
				if !reservedGroupBy[col] {
					dimensions = append(dimensions, col)
				}
			}
			units = spec.SIUnit
			filterExpr = spec.Filter
		}

		c.charts[chartID] = &ChartMeta{
			ID:               chartID,
			Category:         category,
			Title:            title,
			CSVPath:          existingPath(csvPath),
			PNGPath:          existingPath(pngPath),
			JSONPath:         existingPath(jsonPath),
			Dimensions:       dimensions,
			Measures:         []string{"val"},
			Units:            units,
			FilterExpression: filterExpr,
			Scenarios:        []string{},
		}
	}
}

// findSpecForChart matches a chart ID against plot-spec titles after
// normalizing both sides down to lowercase alphanumerics.
func (c *Catalog) findSpecForChart(chartID string) (PlotSpec, bool) {
	chartTitle := strings.ToLower(strings.ReplaceAll(chartID, "_", " "))
	want := normalizeTitle(chartTitle)

	for title, spec := range c.plotSpecs {
		if normalizeTitle(title) == want {
			return spec, true
		}
	}
	return PlotSpec{}, false
}

func normalizeTitle(title string) string {
	return normalizeRe.ReplaceAllString(strings.ToLower(title), "")
}

// idToTitle turns a chart ID into a display title: underscores to spaces,
// each letter following a non-letter capitalized.
func idToTitle(chartID string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range strings.ReplaceAll(chartID, "_", " ") {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// ListCategories returns category folder names in scan order.
func (c *Catalog) ListCategories() []string {
	return append([]string(nil), c.categories...)
}

// ListCharts lists charts sorted by (category, id). An empty category lists
// everything.
func (c *Catalog) ListCharts(category string) []*ChartMeta {
	charts := make([]*ChartMeta, 0, len(c.charts))
	for _, chart := range c.charts {
		if category != "" && chart.Category != category {
			continue
		}
		charts = append(charts, chart)
	}
	sort.Slice(charts, func(i, j int) bool {
		if charts[i].Category != charts[j].Category {
			return charts[i].Category < charts[j].Category
		}
		return charts[i].ID < charts[j].ID
	})
	return charts
}

// GetChart returns a chart by ID.
func (c *Catalog) GetChart(chartID string) (*ChartMeta, bool) {
	chart, ok := c.charts[chartID]
	return chart, ok
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func existingPath(path string) string {
	if fileExists(path) {
		return path
	}
	return ""
}
