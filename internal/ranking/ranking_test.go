package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmvldz/enginebuilder/internal/llmprovider"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Complete(ctx context.Context, system, user string, params llmprovider.Params) (*llmprovider.CompletionResult, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llmprovider.CompletionResult{Text: f.responses[i]}, nil
}

func TestStage_Run_EmptyInputReturnsEmptyRanking(t *testing.T) {
	s := New(&llmprovider.Backends{Anthropic: &fakeProvider{}})
	ranking, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1"}, nil, Options{Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	require.NotNil(t, ranking)
	assert.Empty(t, ranking.Paths)
}

func TestStage_Run_OrdersAccordingToLLMResponse(t *testing.T) {
	p := &fakeProvider{responses: []string{`["b.go", "a.go"]`}}
	s := New(&llmprovider.Backends{Anthropic: p})

	files := []pipeline.CandidateFile{
		{Path: "a.go", TokenCount: 10},
		{Path: "b.go", TokenCount: 20},
	}
	ranking, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.go", "a.go"}, ranking.Paths)
}

func TestStage_Run_CoercesDropsUnknownAndDedups(t *testing.T) {
	p := &fakeProvider{responses: []string{`["c.go", "a.go", "a.go", "unknown.go"]`}}
	s := New(&llmprovider.Backends{Anthropic: p})

	files := []pipeline.CandidateFile{
		{Path: "a.go"},
		{Path: "b.go"},
		{Path: "c.go"},
	}
	ranking, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c.go", "a.go", "b.go"}, ranking.Paths)
}

func TestStage_Run_RetriesOnceOnParseFailure(t *testing.T) {
	p := &fakeProvider{responses: []string{"not an array", `["a.go"]`}}
	s := New(&llmprovider.Backends{Anthropic: p})

	files := []pipeline.CandidateFile{{Path: "a.go"}}
	ranking, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, ranking.Paths)
}

func TestStage_Run_FailsWhenRetryAlsoUnparseable(t *testing.T) {
	p := &fakeProvider{responses: []string{"nope", "still nope"}}
	s := New(&llmprovider.Backends{Anthropic: p})

	files := []pipeline.CandidateFile{{Path: "a.go"}}
	_, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{Model: "claude-3-5-haiku-latest"})
	assert.Error(t, err)
}

func TestCoerceToPermutation(t *testing.T) {
	known := []string{"a", "b", "c"}
	got := coerceToPermutation([]string{"c", "x", "a", "a"}, known)
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestSelectExcerpts_FitsWithinBudget(t *testing.T) {
	files := []pipeline.CandidateFile{
		{Path: "small.go", TokenCount: 10, Content: "small"},
		{Path: "big.go", TokenCount: 1000, Content: "big"},
	}
	excerpts := selectExcerpts(files, 300)
	require.Len(t, excerpts, 1)
	assert.Equal(t, "small.go", excerpts[0].Path)
}

func TestSelectExcerpts_ZeroBudgetReturnsNone(t *testing.T) {
	files := []pipeline.CandidateFile{{Path: "a.go", TokenCount: 10}}
	assert.Empty(t, selectExcerpts(files, 0))
}
