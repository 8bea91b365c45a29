package reportstate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_IDAllocation(t *testing.T) {
	s := NewState("annual-report")

	assert.Equal(t, "F1", s.NextFigureID())
	fig := s.RegisterFigure("emissions-by-sector", "results", "Emissions by sector", "emissions_by_sector")
	assert.Equal(t, "F1", fig.ID)
	assert.Equal(t, "F2", s.NextFigureID())

	// IDs are max+1, not count+1: a manually inserted high ID moves the
	// watermark.
	s.Figures = append(s.Figures, CanonicalFigure{ID: "F7", SemanticKey: "x", OwnerSection: "intro"})
	assert.Equal(t, "F8", s.NextFigureID())

	tbl := s.RegisterTable("costs", "economics", "Cost breakdown")
	assert.Equal(t, "T1", tbl.ID)
	assert.Equal(t, "T2", s.NextTableID())
}

func TestState_Lookups(t *testing.T) {
	s := NewState("r")
	s.RegisterFigure("gen-mix", "electricity", "Generation mix", "generation_mix")
	s.RegisterFigure("demand", "transport", "Transport demand", "")
	s.RegisterTable("capacity", "electricity", "Capacity by technology")

	fig, ok := s.FindFigureBySemanticKey("demand")
	require.True(t, ok)
	assert.Equal(t, "F2", fig.ID)

	fig, ok = s.FindFigureByChartID("generation_mix")
	require.True(t, ok)
	assert.Equal(t, "F1", fig.ID)

	_, ok = s.FindFigureByChartID("unknown")
	assert.False(t, ok)

	tbl, ok := s.FindTableBySemanticKey("capacity")
	require.True(t, ok)
	assert.Equal(t, "T1", tbl.ID)
}

func TestState_Ownership(t *testing.T) {
	s := NewState("r")
	s.RegisterFigure("a", "intro", "", "")
	s.RegisterFigure("b", "results", "", "")
	s.RegisterFigure("c", "results", "", "")

	owned := s.FiguresForSection("results")
	require.Len(t, owned, 2)
	assert.Equal(t, "F2", owned[0].ID)

	other := s.FiguresNotOwnedBy("results")
	require.Len(t, other, 1)
	assert.Equal(t, "intro", other[0].OwnerSection)
}

func TestState_SectionVersions(t *testing.T) {
	s := NewState("r")

	meta := s.GetSectionMeta("results")
	assert.Equal(t, 1, meta.Version)
	assert.True(t, s.IsSectionStale("results"), "nothing integrated yet")

	s.MarkSectionIntegrated("results")
	assert.False(t, s.IsSectionStale("results"))

	assert.Equal(t, 2, s.IncrementSectionVersion("results"))
	assert.True(t, s.IsSectionStale("results"))
}

func TestState_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report_state.json")

	s := NewState("annual-report")
	s.RegisterFigure("gen-mix", "electricity", "Generation mix", "generation_mix")
	s.RegisterTable("costs", "economics", "Cost breakdown")
	s.GetSectionMeta("results")
	s.MarkSectionIntegrated("results")
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "annual-report", loaded.ReportID)
	assert.Equal(t, s.Figures, loaded.Figures)
	assert.Equal(t, s.Tables, loaded.Tables)
	assert.False(t, loaded.IsSectionStale("results"))
	assert.Equal(t, s.CreatedAt, loaded.CreatedAt)
	assert.NotEmpty(t, loaded.UpdatedAt)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "report_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "invalid report state")
}

func TestLoad_NilSectionMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"report_id": "r"}`), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, s.SectionMeta)
	assert.Equal(t, 1, s.GetSectionMeta("intro").Version)
}
