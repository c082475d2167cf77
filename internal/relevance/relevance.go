// Package relevance implements the Relevance Stage: one LLM call per
// candidate file, classifying it relevant/not-relevant to a problem
// statement with bounded concurrency and per-item partial-failure
// tolerance.
package relevance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jmvldz/enginebuilder/internal/jsonutil"
	"github.com/jmvldz/enginebuilder/internal/llmprovider"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

// Options configures one Run call.
type Options struct {
	Model      string
	MaxWorkers int
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	ProblemID  string

	// MaxFailureFraction bounds what fraction of files may hard-fail (LLM
	// transport error, not just a negative verdict) before Run aborts the
	// whole stage. Zero or a value >= 1 means the default: the stage only
	// fails when every file's classification hard-failed.
	MaxFailureFraction float64

	// OnDecision, when non-nil, is called once per file as its decision
	// lands, from whichever goroutine completed it. Callers use this to
	// drive a progress indicator; Run itself never blocks on it.
	OnDecision func()
}

// Stage fans out relevance classification across a bounded worker pool.
type Stage struct {
	backends *llmprovider.Backends
	logger   *slog.Logger
}

// New constructs a Stage backed by the given provider backends.
func New(backends *llmprovider.Backends) *Stage {
	return &Stage{
		backends: backends,
		logger:   slog.Default().With("component", "relevance"),
	}
}

// decisionResponse is the structured answer the LLM is instructed to emit.
type decisionResponse struct {
	Relevant      bool   `json:"relevant"`
	Justification string `json:"justification"`
}

// Run classifies every file in files against problem.Statement. Output
// order always matches the input order regardless of completion order.
// Per-file LLM failures are demoted to negative decisions rather than
// aborting the stage; the stage fails only once the fraction of files that
// errored reaches opts.MaxFailureFraction (by default, when every file errored).
func (s *Stage) Run(ctx context.Context, problem *pipeline.Problem, files []pipeline.CandidateFile, opts Options) ([]pipeline.RelevanceDecision, error) {
	if len(files) == 0 {
		return nil, nil
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	provider, err := s.backends.Select(opts.Model)
	if err != nil {
		return nil, pipeline.NewLLMError("selecting relevance backend", err)
	}

	sem := semaphore.NewWeighted(int64(maxWorkers))
	results := make([]pipeline.RelevanceDecision, len(files))
	var failed int32

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return fmt.Errorf("acquiring relevance worker slot: %w", err)
			}
			defer sem.Release(1)

			decision, hardErr := s.classify(gctx, provider, problem, f, opts)
			if hardErr {
				atomic.AddInt32(&failed, 1)
			}
			results[i] = decision
			if opts.OnDecision != nil {
				opts.OnDecision()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pipeline.NewLLMError("relevance stage fan-out", err)
	}

	threshold := opts.MaxFailureFraction
	if threshold <= 0 || threshold >= 1 {
		threshold = 1 // default: only abort once every file has hard-failed
	}
	if float64(failed)/float64(len(files)) >= threshold {
		return nil, pipeline.NewLLMError(fmt.Sprintf("relevance stage: %d/%d file classifications failed, exceeding the configured threshold", failed, len(files)), nil)
	}

	s.logger.Info("relevance stage complete", "files", len(files), "failed", failed)
	return results, nil
}

// classify runs the full per-file pipeline: render prompt, call the LLM,
// parse the response with one corrective retry on parse failure. The
// second return value is true when the decision reflects an LLM transport
// error (as opposed to a clean negative verdict or a parse failure), which
// Run uses to decide whether the whole stage should fail.
func (s *Stage) classify(ctx context.Context, provider llmprovider.Provider, problem *pipeline.Problem, file pipeline.CandidateFile, opts Options) (pipeline.RelevanceDecision, bool) {
	params := llmprovider.Params{
		Model:      opts.Model,
		MaxTokens:  opts.MaxTokens,
		Timeout:    opts.Timeout,
		MaxRetries: opts.MaxRetries,
		ProblemID:  opts.ProblemID,
		Stage:      "relevance",
	}

	result, err := provider.Complete(ctx, relevanceSystemPrompt, renderRelevancePrompt(problem.Statement, file), params)
	if err != nil {
		return pipeline.RelevanceDecision{
			Path:          file.Path,
			Relevant:      false,
			Justification: fmt.Sprintf("llm_error: %v", err),
		}, true
	}

	decision, ok := parseDecision(result.Text)
	if ok {
		decision.Path = file.Path
		decision.RawResponse = result.Text
		return decision, false
	}

	// One corrective retry asking for only JSON.
	retryResult, retryErr := provider.Complete(ctx, relevanceSystemPrompt, renderRelevanceRetryPrompt(problem.Statement, file), params)
	if retryErr != nil {
		return pipeline.RelevanceDecision{
			Path:          file.Path,
			Relevant:      false,
			Justification: fmt.Sprintf("llm_error: %v", retryErr),
			RawResponse:   result.Text,
		}, true
	}

	decision, ok = parseDecision(retryResult.Text)
	if !ok {
		return pipeline.RelevanceDecision{
			Path:          file.Path,
			Relevant:      false,
			Justification: "parse_failed",
			RawResponse:   retryResult.Text,
		}, false
	}
	decision.Path = file.Path
	decision.RawResponse = retryResult.Text
	return decision, false
}

// parseDecision extracts and unmarshals a decisionResponse from text,
// tolerating leading/trailing prose and fenced code blocks.
func parseDecision(text string) (pipeline.RelevanceDecision, bool) {
	obj, found := jsonutil.ExtractObject(text)
	if !found {
		return pipeline.RelevanceDecision{}, false
	}

	var dr decisionResponse
	if err := json.Unmarshal([]byte(obj), &dr); err != nil {
		return pipeline.RelevanceDecision{}, false
	}

	return pipeline.RelevanceDecision{
		Relevant:      dr.Relevant,
		Justification: dr.Justification,
	}, true
}
