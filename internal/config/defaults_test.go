package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault_PopulatesPerStageSettings(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
	assert.Equal(t, 8, cfg.Relevance.MaxWorkers)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.Ranking.Model)
	assert.Equal(t, 4096, cfg.Dockerfile.MaxTokens)
	assert.Equal(t, 5, cfg.Relevance.MaxRetries)
	assert.Equal(t, 5, cfg.Scripts.MaxRetries)
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.OutputPath = "/mutated"

	b := Default()
	assert.Equal(t, DefaultOutputPath, b.OutputPath)
}
