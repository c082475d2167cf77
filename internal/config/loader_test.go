package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytes_FileValuesOverrideDefaults(t *testing.T) {
	data := []byte(`{
		"anthropic_api_key": "sk-ant-test",
		"codebase": {"path": "/repo", "problem_id": "p1", "problem_statement": "fix it"},
		"relevance": {"max_workers": 4}
	}`)

	cfg, err := LoadFromBytes(data, "inline")
	require.NoError(t, err)

	assert.Equal(t, "sk-ant-test", cfg.AnthropicAPIKey)
	assert.Equal(t, "/repo", cfg.Codebase.Path)
	assert.Equal(t, 4, cfg.Relevance.MaxWorkers)
	// Fields the file omits keep their defaults.
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Relevance.Model)
	assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.Ranking.Model)
}

func TestLoadFromFile_ReadsAndParses(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"output_path": "/tmp/out"}`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutputPath)
}

func TestLoadFromFile_MissingFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadFromBytes_InvalidJSONErrors(t *testing.T) {
	_, err := LoadFromBytes([]byte(`{not json`), "inline")
	assert.Error(t, err)
}

func TestLoadFromBytes_UnknownKeysWarnButDoNotError(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`{"totally_unknown_key": 1}`), "inline")
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
}
