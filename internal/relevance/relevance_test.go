package relevance

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmvldz/enginebuilder/internal/llmprovider"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

// fakeProvider answers with a scripted response per call, keyed by call
// order, so tests can exercise retry-after-parse-failure behavior.
type fakeProvider struct {
	responses []string
	errs      []error
	calls     int32
}

func (f *fakeProvider) Complete(ctx context.Context, system, user string, params llmprovider.Params) (*llmprovider.CompletionResult, error) {
	i := int(atomic.AddInt32(&f.calls, 1)) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llmprovider.CompletionResult{Text: f.responses[i]}, nil
}

func newStageWithFake(p llmprovider.Provider) *Stage {
	return New(&llmprovider.Backends{Anthropic: p, OpenAI: p})
}

func TestStage_Run_EmptyInputReturnsNil(t *testing.T) {
	s := newStageWithFake(&fakeProvider{})
	decisions, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1"}, nil, Options{Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Nil(t, decisions)
}

func TestStage_Run_ClassifiesEachFile(t *testing.T) {
	p := &fakeProvider{responses: []string{
		`{"relevant": true, "justification": "entry point"}`,
		`{"relevant": false, "justification": "unrelated docs"}`,
	}}
	s := newStageWithFake(p)

	files := []pipeline.CandidateFile{
		{Path: "a.go", Content: "package main"},
		{Path: "b.md", Content: "readme"},
	}
	decisions, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "fix the bug"}, files, Options{Model: "claude-3-5-haiku-latest", MaxWorkers: 2})
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, "a.go", decisions[0].Path)
	assert.True(t, decisions[0].Relevant)
	assert.Equal(t, "b.md", decisions[1].Path)
	assert.False(t, decisions[1].Relevant)
}

func TestStage_Run_OnDecisionCalledOncePerFile(t *testing.T) {
	p := &fakeProvider{responses: []string{
		`{"relevant": true, "justification": "a"}`,
		`{"relevant": true, "justification": "b"}`,
	}}
	s := newStageWithFake(p)

	var count int32
	files := []pipeline.CandidateFile{{Path: "a.go"}, {Path: "b.go"}}
	_, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{
		Model:      "claude-3-5-haiku-latest",
		MaxWorkers: 2,
		OnDecision: func() { atomic.AddInt32(&count, 1) },
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&count))
}

func TestStage_Run_RetriesOnceOnParseFailureThenSucceeds(t *testing.T) {
	p := &fakeProvider{responses: []string{
		"not json at all",
		`{"relevant": true, "justification": "found it on retry"}`,
	}}
	s := newStageWithFake(p)

	files := []pipeline.CandidateFile{{Path: "a.go", Content: "x"}}
	decisions, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{Model: "claude-3-5-haiku-latest", MaxWorkers: 1})
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Relevant)
	assert.Equal(t, "found it on retry", decisions[0].Justification)
}

func TestStage_Run_DemotesToParseFailedAfterRetryStillFails(t *testing.T) {
	p := &fakeProvider{responses: []string{"nope", "still nope"}}
	s := newStageWithFake(p)

	files := []pipeline.CandidateFile{{Path: "a.go", Content: "x"}}
	decisions, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{Model: "claude-3-5-haiku-latest", MaxWorkers: 1})
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].Relevant)
	assert.Equal(t, "parse_failed", decisions[0].Justification)
}

func TestStage_Run_PartialLLMFailureDoesNotAbortStage(t *testing.T) {
	p := &fakeProvider{
		responses: []string{"", `{"relevant": true, "justification": "ok"}`},
		errs:      []error{fmt.Errorf("connection reset"), nil},
	}
	s := newStageWithFake(p)

	files := []pipeline.CandidateFile{
		{Path: "a.go", Content: "x"},
		{Path: "b.go", Content: "y"},
	}
	decisions, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{Model: "claude-3-5-haiku-latest", MaxWorkers: 2})
	require.NoError(t, err)
	require.Len(t, decisions, 2)
}

func TestStage_Run_AllFailuresAbortsStage(t *testing.T) {
	p := &fakeProvider{errs: []error{fmt.Errorf("down"), fmt.Errorf("down")}, responses: []string{""}}
	s := newStageWithFake(p)

	files := []pipeline.CandidateFile{
		{Path: "a.go", Content: "x"},
		{Path: "b.go", Content: "y"},
	}
	_, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{Model: "claude-3-5-haiku-latest", MaxWorkers: 2})
	assert.Error(t, err)
}

func TestStage_Run_MaxFailureFractionAbortsBelowAllFailures(t *testing.T) {
	p := &fakeProvider{
		responses: []string{"", `{"relevant": true, "justification": "ok"}`, `{"relevant": true, "justification": "ok"}`},
		errs:      []error{fmt.Errorf("down"), nil, nil},
	}
	s := newStageWithFake(p)

	files := []pipeline.CandidateFile{
		{Path: "a.go", Content: "x"},
		{Path: "b.go", Content: "y"},
		{Path: "c.go", Content: "z"},
	}
	_, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1", Statement: "s"}, files, Options{
		Model:              "claude-3-5-haiku-latest",
		MaxWorkers:         1,
		MaxFailureFraction: 0.3,
	})
	assert.Error(t, err, "1/3 failures exceeds a 0.3 threshold even though not every file failed")
}

func TestStage_Run_UnknownBackendErrors(t *testing.T) {
	s := New(&llmprovider.Backends{})
	files := []pipeline.CandidateFile{{Path: "a.go", Content: "x"}}
	_, err := s.Run(context.Background(), &pipeline.Problem{ID: "p1"}, files, Options{Model: "claude-3-5-haiku-latest"})
	assert.Error(t, err)
}
