package exclusion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadRules_ParsesYAMLDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exclusions.yaml")
	doc := `
exclude_dirs:
  - node_modules
  - vendor
exclude_extensions:
  - png
exclude_globs:
  - "**/*_test.go"
include_extensions:
  - go
  - md
exclude_gitignore_patterns:
  - "*.log"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	r, err := LoadRules(path)
	require.NoError(t, err)
	require.Equal(t, []string{"node_modules", "vendor"}, r.ExcludeDirs)
	require.Equal(t, []string{"png"}, r.ExcludeExtensions)
	require.Equal(t, []string{"**/*_test.go"}, r.ExcludeGlobs)
	require.Equal(t, []string{"go", "md"}, r.IncludeExtensions)
	require.Equal(t, []string{"*.log"}, r.ExcludeGitignorePatterns)
}

func TestLoadRules_MissingFileErrors(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
