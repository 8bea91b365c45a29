package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Annual Energy Report", "annual-energy-report"},
		{"2026 Emissions -- Update!", "2026-emissions-update"},
		{"  spaced  out  ", "spaced-out"},
		{"MixedCASE", "mixedcase"},
		{"!!!", "report"},
		{"", "report"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.name), "Slug(%q)", tt.name)
	}
}

func TestLoadReportMeta(t *testing.T) {
	dir := t.TempDir()
	content := `{"report_name": "Annual Energy Report", "slug": "annual-energy-report", "github_repo": "austimes/annual-energy-report", "created_at": "2026-01-01T00:00:00Z", "private": true}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFilename), []byte(content), 0644))

	meta, err := LoadReportMeta(dir)
	require.NoError(t, err)
	assert.Equal(t, "Annual Energy Report", meta.ReportName)
	assert.Equal(t, "austimes/annual-energy-report", meta.GitHubRepo)
	assert.True(t, meta.Private)
}

func TestLoadReportMeta_Missing(t *testing.T) {
	_, err := LoadReportMeta(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run init-report first")
}

func TestLoadReportMeta_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFilename), []byte("{"), 0644))

	_, err := LoadReportMeta(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestEnsureReportProject(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := EnsureReportProject(filepath.Join(t.TempDir(), "nope"))
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("no git repository", func(t *testing.T) {
		_, err := EnsureReportProject(t.TempDir())
		assert.ErrorContains(t, err, "not a git repository")
	})

	t.Run("valid project", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, MetaFilename),
			[]byte(`{"report_name": "r", "slug": "r"}`), 0644))

		meta, err := EnsureReportProject(dir)
		require.NoError(t, err)
		assert.Equal(t, "r", meta.Slug)
	})
}

func TestFindEnclosingRepo(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	assert.Equal(t, root, findEnclosingRepo(nested))
	assert.Equal(t, "", findEnclosingRepo(t.TempDir()))
}
