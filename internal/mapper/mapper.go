// Package mapper resolves which charts belong to a report section.
//
// Resolution uses an optional static mapping file (section_chart_map.json)
// whose selectors run in declaration order, falling back to keyword-scored
// auto-matching when a section has no configured entry. Bad mapping files are
// logged and treated as absent; missing charts are skipped, never an error.
package mapper

import (
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"

	"github.com/austimes/report-writer/internal/catalog"
	"github.com/austimes/report-writer/internal/outline"
)

// SelectorKind discriminates the three selector variants.
type SelectorKind int

const (
	// SelectorNone matches nothing; produced by entries that carry neither
	// an id, a pattern, nor the auto flag.
	SelectorNone SelectorKind = iota
	SelectorID
	SelectorPattern
	SelectorAuto
)

// ChartSelector is one rule for choosing charts: an explicit chart ID, a glob
// pattern (optionally "category/pattern" scoped), or auto keyword matching.
type ChartSelector struct {
	Kind    SelectorKind
	ID      string
	Pattern string
	Max     *int   // per-selector cap; nil means unlimited
	Sort    string // "id" (default) or "title"
}

// SectionMapping is the configured selector list for one section.
type SectionMapping struct {
	Selectors   []ChartSelector
	Description string
	MaxCharts   int // section-wide cap; 0 means unlimited
}

// ExplicitChartIDs returns the IDs of explicit selectors only.
func (m SectionMapping) ExplicitChartIDs() []string {
	var ids []string
	for _, sel := range m.Selectors {
		if sel.Kind == SelectorID {
			ids = append(ids, sel.ID)
		}
	}
	return ids
}

// categoryAliases maps section-id fragments to data catalog categories.
var categoryAliases = map[string][]string{
	"emissions":              {"emissions"},
	"electricity-generation": {"electricity"},
	"electricity":            {"electricity"},
	"transport":              {"transport"},
	"residential":            {"built_environment"},
	"commercial":             {"built_environment"},
	"agriculture":            {"agriculture"},
	"industry":               {"industry", "manufacturing"},
	"manufacturing":          {"manufacturing", "industry"},
}

var keywordStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true,
	"of": true, "with": true, "by": true, "from": true, "as": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "being": true, "have": true, "has": true, "had": true,
	"do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true, "might": true,
	"must": true, "shall": true, "can": true,
	"this": true, "that": true, "these": true, "those": true,
	"it": true, "its": true, "their": true, "they": true,
	"section": true, "include": true, "including": true, "discuss": true,
	"describe": true, "explain": true, "analyze": true, "analysis": true,
	"overview": true, "summary": true, "about": true, "how": true,
	"what": true, "when": true, "where": true, "why": true, "which": true,
	"key": true, "main": true, "major": true, "primary": true,
}

var (
	keywordStripRe = regexp.MustCompile(`[^\w\s-]`)
	titleWordRe    = regexp.MustCompile(`[^\w\s]`)
)

// SectionKeywords extracts the keyword set from a section's title and
// instructions: lowercased, punctuation stripped (hyphens kept), stopwords
// and short words dropped.
func SectionKeywords(section outline.Section) map[string]bool {
	text := strings.ToLower(section.Title + " " + section.Instructions)
	text = keywordStripRe.ReplaceAllString(text, " ")

	keywords := map[string]bool{}
	for _, w := range strings.Fields(text) {
		if len(w) > 2 && !keywordStopwords[w] {
			keywords[w] = true
		}
	}
	return keywords
}

// Mapper maps report sections to charts using static mappings with an
// auto-matching fallback.
type Mapper struct {
	catalog  *catalog.Catalog
	mappings map[string]SectionMapping
}

// New builds a mapper over a catalog. mappingPath may be empty; a missing or
// malformed file leaves the mapper with no static mappings.
func New(c *catalog.Catalog, mappingPath string) *Mapper {
	m := &Mapper{catalog: c, mappings: map[string]SectionMapping{}}
	if mappingPath != "" {
		m.loadStaticMappings(mappingPath)
	}
	return m
}

type rawMapping struct {
	Charts      []json.RawMessage `json:"charts"`
	Description string            `json:"description"`
	MaxCharts   int               `json:"max_charts"`
}

type rawSelector struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Auto    bool   `json:"auto"`
	Max     *int   `json:"max"`
	Sort    string `json:"sort"`
}

func (m *Mapper) loadStaticMappings(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var data map[string]rawMapping
	if err := json.Unmarshal(raw, &data); err != nil {
		logrus.Warnf("mapper: failed to load static mappings from %s: %v", path, err)
		return
	}

	for sectionID, entry := range data {
		m.mappings[sectionID] = SectionMapping{
			Selectors:   parseSelectors(entry.Charts),
			Description: entry.Description,
			MaxCharts:   entry.MaxCharts,
		}
	}
}

// parseSelectors decodes chart entries: a bare string is an explicit chart
// ID, an object is discriminated by id > pattern > auto. Anything else is
// skipped.
func parseSelectors(entries []json.RawMessage) []ChartSelector {
	var selectors []ChartSelector
	for _, entry := range entries {
		var id string
		if err := json.Unmarshal(entry, &id); err == nil {
			selectors = append(selectors, ChartSelector{Kind: SelectorID, ID: id})
			continue
		}

		var raw rawSelector
		if err := json.Unmarshal(entry, &raw); err != nil {
			continue
		}
		sel := ChartSelector{
			ID:      raw.ID,
			Pattern: raw.Pattern,
			Max:     raw.Max,
			Sort:    raw.Sort,
		}
		if sel.Sort == "" {
			sel.Sort = "id"
		}
		switch {
		case raw.ID != "":
			sel.Kind = SelectorID
		case raw.Pattern != "":
			sel.Kind = SelectorPattern
		case raw.Auto:
			sel.Kind = SelectorAuto
		default:
			sel.Kind = SelectorNone
		}
		selectors = append(selectors, sel)
	}
	return selectors
}

// ChartsForSection resolves charts for a section by ID only.
func (m *Mapper) ChartsForSection(sectionID string) []*catalog.ChartMeta {
	if _, ok := m.mappings[sectionID]; ok {
		return m.resolveConfigured(sectionID, nil)
	}
	return m.autoMap(sectionID)
}

// ChartsForSectionContext resolves charts for a section using its full
// context (title and instructions feed the keyword set).
func (m *Mapper) ChartsForSectionContext(section outline.Section) []*catalog.ChartMeta {
	if _, ok := m.mappings[section.ID]; ok {
		return m.resolveConfigured(section.ID, &section)
	}
	return m.autoMapWithContext(section)
}

// resolveConfigured walks the section's selectors in order, sharing one
// result list and dedup set, and stops once the section cap is reached.
func (m *Mapper) resolveConfigured(sectionID string, section *outline.Section) []*catalog.ChartMeta {
	mapping := m.mappings[sectionID]

	var result []*catalog.ChartMeta
	seen := map[string]bool{}

	addChart := func(chart *catalog.ChartMeta) bool {
		fullID := chart.Category + "/" + chart.ID
		if seen[fullID] {
			return false
		}
		if mapping.MaxCharts > 0 && len(result) >= mapping.MaxCharts {
			return false
		}
		result = append(result, chart)
		seen[fullID] = true
		return true
	}

	for _, sel := range mapping.Selectors {
		if mapping.MaxCharts > 0 && len(result) >= mapping.MaxCharts {
			break
		}

		switch sel.Kind {
		case SelectorID:
			if chart, ok := m.lookupChart(sel.ID); ok {
				addChart(chart)
			} else {
				logrus.Debugf("mapper: chart not found: %s", sel.ID)
			}

		case SelectorPattern:
			matches := m.matchPattern(sel.Pattern)
			if sel.Sort == "title" {
				sort.SliceStable(matches, func(i, j int) bool {
					return matches[i].Title < matches[j].Title
				})
			} else {
				sort.SliceStable(matches, func(i, j int) bool {
					if matches[i].Category != matches[j].Category {
						return matches[i].Category < matches[j].Category
					}
					return matches[i].ID < matches[j].ID
				})
			}

			count := 0
			for _, chart := range matches {
				if sel.Max != nil && count >= *sel.Max {
					break
				}
				if addChart(chart) {
					count++
				}
			}

		case SelectorAuto:
			var autos []*catalog.ChartMeta
			if section != nil {
				autos = m.autoMapWithContext(*section)
			} else {
				autos = m.autoMap(sectionID)
			}

			count := 0
			for _, chart := range autos {
				if mapping.MaxCharts > 0 && len(result) >= mapping.MaxCharts {
					break
				}
				if sel.Max != nil && count >= *sel.Max {
					break
				}
				if addChart(chart) {
					count++
				}
			}
		}
	}

	return result
}

// lookupChart finds a chart by ID, retrying without a "category/" prefix.
func (m *Mapper) lookupChart(chartID string) (*catalog.ChartMeta, bool) {
	if chart, ok := m.catalog.GetChart(chartID); ok {
		return chart, true
	}
	if _, baseID, found := strings.Cut(chartID, "/"); found {
		return m.catalog.GetChart(baseID)
	}
	return nil, false
}

// matchPattern globs charts: patterns containing "/" match against
// "category/id", bare patterns against the chart ID alone.
func (m *Mapper) matchPattern(pattern string) []*catalog.ChartMeta {
	var matches []*catalog.ChartMeta
	scoped := strings.Contains(pattern, "/")

	for _, chart := range m.catalog.ListCharts("") {
		candidate := chart.ID
		if scoped {
			candidate = chart.Category + "/" + chart.ID
		}
		if ok, err := doublestar.Match(pattern, candidate); err == nil && ok {
			matches = append(matches, chart)
		}
	}
	return matches
}

func (m *Mapper) autoMap(sectionID string) []*catalog.ChartMeta {
	return m.findMatchingCharts(keywordsFromID(sectionID), sectionID)
}

func (m *Mapper) autoMapWithContext(section outline.Section) []*catalog.ChartMeta {
	keywords := SectionKeywords(section)
	for w := range keywordsFromID(section.ID) {
		keywords[w] = true
	}
	return m.findMatchingCharts(keywords, section.ID)
}

func keywordsFromID(sectionID string) map[string]bool {
	text := strings.NewReplacer("-", " ", "_", " ").Replace(strings.ToLower(sectionID))
	keywords := map[string]bool{}
	for _, w := range strings.Fields(text) {
		if len(w) > 2 {
			keywords[w] = true
		}
	}
	return keywords
}

// findMatchingCharts scores every catalog chart and returns the top five,
// ordered by score descending with chart ID as tiebreak.
func (m *Mapper) findMatchingCharts(keywords map[string]bool, sectionID string) []*catalog.ChartMeta {
	categoryMatches := m.categoryMatches(sectionID)

	type scoredChart struct {
		score float64
		chart *catalog.ChartMeta
	}
	var scored []scoredChart
	for _, chart := range m.catalog.ListCharts("") {
		if score := scoreChart(chart, keywords, sectionID, categoryMatches); score > 0 {
			scored = append(scored, scoredChart{score: score, chart: chart})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chart.ID < scored[j].chart.ID
	})

	limit := 5
	if len(scored) < limit {
		limit = len(scored)
	}
	charts := make([]*catalog.ChartMeta, 0, limit)
	for _, sc := range scored[:limit] {
		charts = append(charts, sc.chart)
	}
	return charts
}

// categoryMatches resolves category aliases whose key is a substring of the
// section ID, or vice versa.
func (m *Mapper) categoryMatches(sectionID string) map[string]bool {
	matched := map[string]bool{}
	idLower := strings.ToLower(sectionID)

	for aliasKey, categories := range categoryAliases {
		if strings.Contains(idLower, aliasKey) || strings.Contains(aliasKey, idLower) {
			for _, c := range categories {
				matched[c] = true
			}
		}
	}
	return matched
}

func scoreChart(chart *catalog.ChartMeta, keywords map[string]bool, sectionID string, categoryMatches map[string]bool) float64 {
	score := 0.0

	if categoryMatches[chart.Category] {
		score += 3.0
	}

	idTokens := map[string]bool{}
	for _, w := range strings.Fields(strings.ReplaceAll(strings.ToLower(sectionID), "-", " ")) {
		idTokens[w] = true
	}
	if idTokens[strings.ToLower(chart.Category)] {
		score += 2.0
	}

	titleWords := map[string]bool{}
	for _, w := range strings.Fields(titleWordRe.ReplaceAllString(strings.ToLower(chart.Title), " ")) {
		titleWords[w] = true
	}
	for w := range keywords {
		if titleWords[w] {
			score += 1.0
		}
	}

	chartID := strings.ToLower(chart.ID)
	idUnderscored := strings.ReplaceAll(strings.ToLower(sectionID), "-", "_")
	if strings.Contains(chartID, idUnderscored) {
		score += 2.0
	} else {
		for _, part := range strings.Split(idUnderscored, "_") {
			if len(part) > 3 && strings.Contains(chartID, part) {
				score += 1.0
				break
			}
		}
	}

	return score
}

// AllMappings returns the explicit chart IDs configured per section.
func (m *Mapper) AllMappings() map[string][]string {
	out := make(map[string][]string, len(m.mappings))
	for sectionID, mapping := range m.mappings {
		out[sectionID] = mapping.ExplicitChartIDs()
	}
	return out
}
