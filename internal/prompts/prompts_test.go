package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	for _, name := range []string{
		"section_generation",
		"section_revision",
		"report_integration",
		"report_integration_simple",
	} {
		t.Run(name, func(t *testing.T) {
			text, err := Load(name)
			require.NoError(t, err)
			assert.NotEmpty(t, text)
		})
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("does_not_exist")
	assert.ErrorContains(t, err, `prompt "does_not_exist" not found`)
}

func TestFormat_Substitution(t *testing.T) {
	out, err := Format("section_generation", map[string]string{
		"section_title":          "Emissions by Sector",
		"heading_markers":        "##",
		"section_level":          "2",
		"parent_section_line":    "",
		"instructions_block":     "",
		"existing_content_block": "",
		"available_data_block":   "",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Emissions by Sector")
	assert.NotContains(t, out, "{section_title}")
	assert.NotContains(t, out, "{heading_markers}")
}

func TestFormat_EscapedBracesSurvive(t *testing.T) {
	// The stateful integration template shows a literal JSON example wrapped
	// in {{ }}; substitution must restore single braces without treating the
	// contents as placeholders.
	out, err := Format("report_integration", map[string]string{
		"section_count":       "4",
		"report_id":           "annual-report",
		"report_state_json":   "{}",
		"full_report_content": "# Report",
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "{{")
	assert.NotContains(t, out, "}}")
	assert.NotContains(t, out, "{report_id}")
	assert.True(t, strings.Contains(out, "annual-report"))
}
