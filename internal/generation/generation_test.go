package generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmvldz/enginebuilder/internal/llmprovider"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
	"github.com/jmvldz/enginebuilder/internal/store"
)

type fakeProvider struct {
	responses []string
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, system, user string, params llmprovider.Params) (*llmprovider.CompletionResult, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llmprovider.CompletionResult{Text: f.responses[i]}, nil
}

const completeResponse = `===DOCKERFILE===
FROM golang:1.24
WORKDIR /app
===LINT===
golangci-lint run
===TEST===
go test ./...
===END===`

func TestStage_Run_FullResponsePersistsAllThree(t *testing.T) {
	st := store.New(t.TempDir())
	p := &fakeProvider{responses: []string{completeResponse}}
	s := New(&llmprovider.Backends{Anthropic: p}, st)

	artifacts, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "fix it"}, nil, Options{Model: "claude-3-5-haiku-latest", ExcerptBudget: 1000})
	require.NoError(t, err)
	assert.Contains(t, artifacts.Containerfile, "FROM golang:1.24")
	assert.Contains(t, artifacts.LintScript, "#!/usr/bin/env sh")
	assert.Contains(t, artifacts.TestScript, "#!/usr/bin/env sh")

	df, ok, err := st.GetArtifact("p1", "dockerfiles", "Dockerfile")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(df), "FROM golang:1.24")

	lint, ok, err := st.GetArtifact("p1", "scripts", "lint.sh")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(lint), "golangci-lint")

	test, ok, err := st.GetArtifact("p1", "scripts", "test.sh")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(test), "go test")
}

func TestStage_Run_MissingSectionRetriesAndMerges(t *testing.T) {
	st := store.New(t.TempDir())
	firstResponse := `===DOCKERFILE===
FROM golang:1.24
===TEST===
go test ./...
===END===`
	retryResponse := `===LINT===
golangci-lint run
===END===`
	p := &fakeProvider{responses: []string{firstResponse, retryResponse}}
	s := New(&llmprovider.Backends{Anthropic: p}, st)

	artifacts, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "fix it"}, nil, Options{Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Contains(t, artifacts.LintScript, "golangci-lint")
	assert.Equal(t, 2, p.calls)
}

func TestStage_Run_StillMissingAfterRetryFails(t *testing.T) {
	st := store.New(t.TempDir())
	firstResponse := `===DOCKERFILE===
FROM golang:1.24
===TEST===
go test ./...
===END===`
	p := &fakeProvider{responses: []string{firstResponse, "still no lint section here"}}
	s := New(&llmprovider.Backends{Anthropic: p}, st)

	_, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "fix it"}, nil, Options{Model: "claude-3-5-haiku-latest"})
	assert.Error(t, err)
}

func TestStage_Run_MissingFromDirectiveFails(t *testing.T) {
	st := store.New(t.TempDir())
	response := `===DOCKERFILE===
# just a comment
===LINT===
lint
===TEST===
test
===END===`
	p := &fakeProvider{responses: []string{response}}
	s := New(&llmprovider.Backends{Anthropic: p}, st)

	_, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "fix it"}, nil, Options{Model: "claude-3-5-haiku-latest"})
	assert.Error(t, err)
}

func TestParseSections_ExtractsAllThree(t *testing.T) {
	artifacts, missing, ok := parseSections(completeResponse)
	require.True(t, ok)
	assert.Empty(t, missing)
	assert.Contains(t, artifacts.containerfile, "FROM golang:1.24")
	assert.Equal(t, "golangci-lint run", artifacts.lint)
	assert.Equal(t, "go test ./...", artifacts.test)
}

func TestEnsureShebang_AddsWhenMissing(t *testing.T) {
	assert.Equal(t, "#!/usr/bin/env sh\necho hi", ensureShebang("echo hi"))
	assert.Equal(t, "#!/bin/bash\necho hi", ensureShebang("#!/bin/bash\necho hi"))
}

func TestHasFromDirective(t *testing.T) {
	assert.True(t, hasFromDirective("# comment\nFROM golang:1.24\n"))
	assert.False(t, hasFromDirective("# just comments\n\n"))
}
