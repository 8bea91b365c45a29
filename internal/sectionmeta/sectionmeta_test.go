package sectionmeta

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `<!-- REPORT_SECTION_META
{
  "section_id": "emissions-by-sector",
  "version": 3,
  "integration_hints": {
    "avoid_figures": ["F1"],
    "canonical_figures": [{"id": "F1", "owner_section": "intro"}],
    "notes": [{"type": "figure_replaced", "semantic_key": "gen-mix", "reason": "duplicate"}]
  }
}
-->

## Emissions by Sector

Body text.`

func TestParse(t *testing.T) {
	meta, ok := Parse(sampleBody)
	require.True(t, ok)
	assert.Equal(t, "emissions-by-sector", meta.SectionID)
	assert.Equal(t, 3, meta.Version)
	require.NotNil(t, meta.IntegrationHints)
	assert.Equal(t, []string{"F1"}, meta.IntegrationHints.AvoidFigures)
	require.Len(t, meta.IntegrationHints.Notes, 1)
	assert.Equal(t, "figure_replaced", meta.IntegrationHints.Notes[0].Type)
}

func TestParse_RequiredKeys(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing section_id", "<!-- REPORT_SECTION_META\n{\"version\": 1}\n-->"},
		{"missing version", "<!-- REPORT_SECTION_META\n{\"section_id\": \"x\"}\n-->"},
		{"invalid json", "<!-- REPORT_SECTION_META\n{nope\n-->"},
		{"no comment", "## Heading\n\nJust prose."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Parse(tt.body)
			assert.False(t, ok)
		})
	}
}

func TestExtractMetaAndBody(t *testing.T) {
	meta, ok, body := ExtractMetaAndBody(sampleBody)
	require.True(t, ok)
	assert.Equal(t, 3, meta.Version)
	assert.True(t, strings.HasPrefix(body, "## Emissions by Sector"))
	assert.NotContains(t, body, "REPORT_SECTION_META")
}

func TestSerializeParseRoundtrip(t *testing.T) {
	meta := Meta{
		SectionID: "results",
		Version:   2,
		IntegrationHints: &IntegrationHints{
			AvoidFigures:     []string{"F2"},
			CanonicalFigures: []map[string]any{},
			Notes:            []IntegrationNote{},
		},
	}
	parsed, ok := Parse(Serialize(meta))
	require.True(t, ok)
	assert.Equal(t, meta.SectionID, parsed.SectionID)
	assert.Equal(t, meta.Version, parsed.Version)
	assert.Equal(t, []string{"F2"}, parsed.IntegrationHints.AvoidFigures)
}

func TestInject(t *testing.T) {
	out := Inject("## Heading\n\nText.", Meta{SectionID: "s", Version: 1})
	assert.True(t, strings.HasPrefix(out, "<!-- REPORT_SECTION_META"))
	assert.True(t, strings.HasSuffix(out, "## Heading\n\nText."))
}

func TestInject_ReplacesExisting(t *testing.T) {
	out := Inject(sampleBody, Meta{SectionID: "emissions-by-sector", Version: 4})

	meta, ok := Parse(out)
	require.True(t, ok)
	assert.Equal(t, 4, meta.Version)
	assert.Equal(t, 1, strings.Count(out, "REPORT_SECTION_META"))
	assert.Contains(t, out, "## Emissions by Sector")
}

func TestInject_EmptyBody(t *testing.T) {
	out := Inject("", Meta{SectionID: "s", Version: 1})
	assert.True(t, strings.HasPrefix(out, "<!-- REPORT_SECTION_META"))
	assert.True(t, strings.HasSuffix(out, "-->"))
}
