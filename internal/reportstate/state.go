// Package reportstate tracks canonical figures and tables across report
// sections so the integration pass can deduplicate content and keep
// cross-references stable between runs.
package reportstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// CanonicalFigure is a figure registered in the report, identified by a
// running "F<n>" ID and a semantic key.
type CanonicalFigure struct {
	ID          string `json:"id"`
	SemanticKey string `json:"semantic_key"`
	OwnerSection string `json:"owner_section"`
	Caption     string `json:"caption"`
	ChartID     string `json:"chart_id,omitempty"`
}

// CanonicalTable is the table counterpart, with "T<n>" IDs.
type CanonicalTable struct {
	ID           string `json:"id"`
	SemanticKey  string `json:"semantic_key"`
	OwnerSection string `json:"owner_section"`
	Caption      string `json:"caption"`
}

// SectionMeta tracks a section's content version against the version last
// seen by the integration pass.
type SectionMeta struct {
	SectionID             string `json:"section_id"`
	Version               int    `json:"version"`
	LastIntegratedVersion int    `json:"last_integrated_version"`
}

// State is the persisted integration state for one report.
type State struct {
	ReportID    string                  `json:"report_id"`
	Figures     []CanonicalFigure       `json:"figures"`
	Tables      []CanonicalTable        `json:"tables"`
	SectionMeta map[string]*SectionMeta `json:"section_meta"`
	CreatedAt   string                  `json:"created_at"`
	UpdatedAt   string                  `json:"updated_at"`
}

// NewState creates an empty state for a report.
func NewState(reportID string) *State {
	now := time.Now().Format(time.RFC3339)
	return &State{
		ReportID:    reportID,
		Figures:     []CanonicalFigure{},
		Tables:      []CanonicalTable{},
		SectionMeta: map[string]*SectionMeta{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Load reads report_state.json from disk.
func Load(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("invalid report state %s: %w", path, err)
	}
	if s.SectionMeta == nil {
		s.SectionMeta = map[string]*SectionMeta{}
	}
	return &s, nil
}

// Save writes the state as indented JSON, stamping UpdatedAt.
func (s *State) Save(path string) error {
	s.UpdatedAt = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// NextFigureID returns the next free "F<n>" ID.
func (s *State) NextFigureID() string {
	return "F" + strconv.Itoa(nextIDNumber("F", figureIDs(s.Figures))+1)
}

// NextTableID returns the next free "T<n>" ID.
func (s *State) NextTableID() string {
	return "T" + strconv.Itoa(nextIDNumber("T", tableIDs(s.Tables))+1)
}

func figureIDs(figs []CanonicalFigure) []string {
	ids := make([]string, len(figs))
	for i, f := range figs {
		ids[i] = f.ID
	}
	return ids
}

func tableIDs(tbls []CanonicalTable) []string {
	ids := make([]string, len(tbls))
	for i, t := range tbls {
		ids[i] = t.ID
	}
	return ids
}

func nextIDNumber(prefix string, ids []string) int {
	max := 0
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if n, err := strconv.Atoi(id[len(prefix):]); err == nil && n > max {
			max = n
		}
	}
	return max
}

// RegisterFigure allocates an ID and appends a new canonical figure.
func (s *State) RegisterFigure(semanticKey, ownerSection, caption, chartID string) CanonicalFigure {
	fig := CanonicalFigure{
		ID:           s.NextFigureID(),
		SemanticKey:  semanticKey,
		OwnerSection: ownerSection,
		Caption:      caption,
		ChartID:      chartID,
	}
	s.Figures = append(s.Figures, fig)
	return fig
}

// RegisterTable allocates an ID and appends a new canonical table.
func (s *State) RegisterTable(semanticKey, ownerSection, caption string) CanonicalTable {
	tbl := CanonicalTable{
		ID:           s.NextTableID(),
		SemanticKey:  semanticKey,
		OwnerSection: ownerSection,
		Caption:      caption,
	}
	s.Tables = append(s.Tables, tbl)
	return tbl
}

// FindFigureBySemanticKey returns the first figure with the given key.
func (s *State) FindFigureBySemanticKey(key string) (CanonicalFigure, bool) {
	for _, fig := range s.Figures {
		if fig.SemanticKey == key {
			return fig, true
		}
	}
	return CanonicalFigure{}, false
}

// FindFigureByChartID returns the first figure sourced from the chart.
func (s *State) FindFigureByChartID(chartID string) (CanonicalFigure, bool) {
	for _, fig := range s.Figures {
		if fig.ChartID == chartID {
			return fig, true
		}
	}
	return CanonicalFigure{}, false
}

// FindTableBySemanticKey returns the first table with the given key.
func (s *State) FindTableBySemanticKey(key string) (CanonicalTable, bool) {
	for _, tbl := range s.Tables {
		if tbl.SemanticKey == key {
			return tbl, true
		}
	}
	return CanonicalTable{}, false
}

// GetSectionMeta returns the section's metadata, creating it on first use.
func (s *State) GetSectionMeta(sectionID string) *SectionMeta {
	if meta, ok := s.SectionMeta[sectionID]; ok {
		return meta
	}
	meta := &SectionMeta{SectionID: sectionID, Version: 1}
	s.SectionMeta[sectionID] = meta
	return meta
}

// IncrementSectionVersion bumps and returns the section's version.
func (s *State) IncrementSectionVersion(sectionID string) int {
	meta := s.GetSectionMeta(sectionID)
	meta.Version++
	return meta.Version
}

// MarkSectionIntegrated records that integration ran at the current version.
func (s *State) MarkSectionIntegrated(sectionID string) {
	meta := s.GetSectionMeta(sectionID)
	meta.LastIntegratedVersion = meta.Version
}

// IsSectionStale reports whether the section changed since integration.
func (s *State) IsSectionStale(sectionID string) bool {
	meta := s.GetSectionMeta(sectionID)
	return meta.Version > meta.LastIntegratedVersion
}

// FiguresForSection lists figures owned by the section.
func (s *State) FiguresForSection(sectionID string) []CanonicalFigure {
	var out []CanonicalFigure
	for _, fig := range s.Figures {
		if fig.OwnerSection == sectionID {
			out = append(out, fig)
		}
	}
	return out
}

// FiguresNotOwnedBy lists figures owned elsewhere, used to build integration
// hints about what a section should reference instead of recreating.
func (s *State) FiguresNotOwnedBy(sectionID string) []CanonicalFigure {
	var out []CanonicalFigure
	for _, fig := range s.Figures {
		if fig.OwnerSection != sectionID {
			out = append(out, fig)
		}
	}
	return out
}
