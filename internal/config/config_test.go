package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `report:
  outline: outline.md
  data_root: data/export
  output_dir: out
ai:
  model: gemini-2.5-pro
  api_key: file-key
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "outline.md", cfg.Report.Outline)
	assert.Equal(t, "data/export", cfg.Report.DataRoot)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	assert.Equal(t, "medium", cfg.AI.ThinkingLevel, "defaulted when absent")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_MissingFileDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "medium", cfg.AI.ThinkingLevel)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  model: gemini-2.5-pro\n  api_key: file-key\n"), 0644))

	t.Setenv("REPORTWRITER_API_KEY", "env-key")
	t.Setenv("REPORTWRITER_MODEL", "gemini-2.5-flash")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(": not yaml ["), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
