// Package ranking implements the Ranking Stage: a single LLM call that
// orders the positively-decided files by likely edit priority, with the
// response coerced into a strict permutation of the input set.
package ranking

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jmvldz/enginebuilder/internal/jsonutil"
	"github.com/jmvldz/enginebuilder/internal/llmprovider"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
	"github.com/jmvldz/enginebuilder/internal/tokenizer"
)

// Options configures one Run call.
type Options struct {
	Model              string
	MaxTokens          int
	Timeout            time.Duration
	MaxRetries         int
	ProblemID          string
	ExcerptTokenBudget int // token budget for embedded file excerpts, fitted via the Token Counter
}

// Stage issues the single ranking prompt and coerces its response.
type Stage struct {
	backends *llmprovider.Backends
	logger   *slog.Logger
}

// New constructs a Stage backed by the given provider backends.
func New(backends *llmprovider.Backends) *Stage {
	return &Stage{
		backends: backends,
		logger:   slog.Default().With("component", "ranking"),
	}
}

// Run produces a Ranking for the positively-decided files. relevant holds
// the CandidateFile for every path with a positive RelevanceDecision, in
// File Selection order; excerptBudget bounds how many of the highest
// token-count files get their content embedded in the prompt.
func (s *Stage) Run(ctx context.Context, problem *pipeline.Problem, relevant []pipeline.CandidateFile, opts Options) (*pipeline.Ranking, error) {
	if len(relevant) == 0 {
		return &pipeline.Ranking{Paths: nil}, nil
	}

	provider, err := s.backends.Select(opts.Model)
	if err != nil {
		return nil, pipeline.NewLLMError("selecting ranking backend", err)
	}

	excerpts := selectExcerpts(relevant, opts.ExcerptTokenBudget)
	paths := candidatePaths(relevant)

	params := llmprovider.Params{
		Model:      opts.Model,
		MaxTokens:  opts.MaxTokens,
		Timeout:    opts.Timeout,
		MaxRetries: opts.MaxRetries,
		ProblemID:  opts.ProblemID,
		Stage:      "ranking",
	}

	result, err := provider.Complete(ctx, rankingSystemPrompt, renderRankingPrompt(problem.Statement, paths, excerpts), params)
	if err != nil {
		return nil, pipeline.NewLLMError("ranking stage", err)
	}

	order, ok := parseRanking(result.Text)
	if !ok {
		result, err = provider.Complete(ctx, rankingSystemPrompt, renderRankingRetryPrompt(problem.Statement, paths, excerpts), params)
		if err != nil {
			return nil, pipeline.NewLLMError("ranking stage retry", err)
		}
		order, ok = parseRanking(result.Text)
		if !ok {
			return nil, pipeline.NewParseError("ranking response did not contain a parseable JSON array", nil)
		}
	}

	coerced := coerceToPermutation(order, paths)
	s.logger.Info("ranking stage complete", "files", len(coerced))
	return &pipeline.Ranking{Paths: coerced}, nil
}

// selectExcerpts orders files by TokenCount descending and greedily fits as
// many as possible into budget via the Token Counter's budget fitter, so
// the prompt favors excerpting the files most likely to matter for ranking
// without blowing the model's context window.
func selectExcerpts(files []pipeline.CandidateFile, budget int) []pipeline.CandidateFile {
	if budget <= 0 {
		return nil
	}
	sorted := make([]pipeline.CandidateFile, len(files))
	copy(sorted, files)
	for i := 0; i < len(sorted); i++ {
		maxIdx := i
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j].TokenCount > sorted[maxIdx].TokenCount {
				maxIdx = j
			}
		}
		sorted[i], sorted[maxIdx] = sorted[maxIdx], sorted[i]
	}

	fitted := tokenizer.FitToBudget(sorted, budget, tokenizer.EstimateOverhead(len(sorted)))
	return fitted.Included
}

func candidatePaths(files []pipeline.CandidateFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}

// parseRanking extracts a JSON array of strings from text.
func parseRanking(text string) ([]string, bool) {
	arr, found := jsonutil.ExtractArray(text)
	if !found {
		return nil, false
	}
	var order []string
	if err := json.Unmarshal([]byte(arr), &order); err != nil {
		return nil, false
	}
	return order, true
}

// coerceToPermutation filters order to paths that exist in known, dedups to
// the first occurrence, and appends any known path missing from order in
// its original order. The result is always a permutation of known.
func coerceToPermutation(order, known []string) []string {
	inKnown := make(map[string]bool, len(known))
	for _, p := range known {
		inKnown[p] = true
	}

	seen := make(map[string]bool, len(order))
	result := make([]string, 0, len(known))
	for _, p := range order {
		if !inKnown[p] || seen[p] {
			continue
		}
		seen[p] = true
		result = append(result, p)
	}

	for _, p := range known {
		if !seen[p] {
			result = append(result, p)
			seen[p] = true
		}
	}

	return result
}
