// Package generation implements the Script & Containerfile Generation
// Stage: one LLM call asking for three delimited sections (a containerfile,
// a lint script, a test script), parsed with one corrective retry on a
// missing section, then persisted as a group so readers never observe a
// partial set.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmvldz/enginebuilder/internal/llmprovider"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
	"github.com/jmvldz/enginebuilder/internal/store"
	"github.com/jmvldz/enginebuilder/internal/tokenizer"
)

// Options configures one Run call.
type Options struct {
	Model         string
	MaxTokens     int
	Timeout       time.Duration
	MaxRetries    int
	ProblemID     string
	ExcerptBudget int // token budget for the top-ranked files' content
}

// Stage issues the generation prompt, parses its response, and persists the
// resulting artifacts.
type Stage struct {
	backends *llmprovider.Backends
	store    *store.Store
	logger   *slog.Logger
}

// New constructs a Stage backed by the given provider backends and store.
func New(backends *llmprovider.Backends, st *store.Store) *Stage {
	return &Stage{
		backends: backends,
		store:    st,
		logger:   slog.Default().With("component", "generation"),
	}
}

// Run generates and persists the Containerfile, lint script, and test
// script for one problem. ranked holds the CandidateFile for every path in
// the ranking, highest-priority first; it is fitted into ExcerptBudget
// tokens via the Token Counter before being embedded in the prompt.
func (s *Stage) Run(ctx context.Context, problem *pipeline.Problem, ranked []pipeline.CandidateFile, opts Options) (*pipeline.GeneratedArtifacts, error) {
	provider, err := s.backends.Select(opts.Model)
	if err != nil {
		return nil, pipeline.NewLLMError("selecting generation backend", err)
	}

	overhead := tokenizer.EstimateOverhead(len(ranked))
	fitted := tokenizer.FitToBudget(ranked, opts.ExcerptBudget, overhead)
	if len(fitted.Excluded) > 0 {
		s.logger.Info("generation prompt excerpt budget exceeded", "included", len(fitted.Included), "excluded", len(fitted.Excluded))
	}

	params := llmprovider.Params{
		Model:      opts.Model,
		MaxTokens:  opts.MaxTokens,
		Timeout:    opts.Timeout,
		MaxRetries: opts.MaxRetries,
		ProblemID:  opts.ProblemID,
		Stage:      "generation",
	}

	result, err := provider.Complete(ctx, generationSystemPrompt, renderGenerationPrompt(problem.Statement, fitted.Included), params)
	if err != nil {
		return nil, pipeline.NewLLMError("generation stage", err)
	}

	artifacts, missing, ok := parseSections(result.Text)
	if !ok {
		retryResult, retryErr := provider.Complete(ctx, generationSystemPrompt, renderMissingSectionPrompt(missing, problem.Statement, fitted.Included), params)
		if retryErr != nil {
			return nil, pipeline.NewLLMError("generation stage retry", retryErr)
		}
		patched, stillMissing, retryOK := mergeSections(artifacts, retryResult.Text)
		if !retryOK {
			return nil, pipeline.NewParseError(fmt.Sprintf("generation response missing section(s): %s", strings.Join(stillMissing, ", ")), nil)
		}
		artifacts = patched
	}

	containerfile := artifacts.containerfile
	lint := ensureShebang(artifacts.lint)
	test := ensureShebang(artifacts.test)

	if !hasFromDirective(containerfile) {
		return nil, pipeline.NewParseError("generated containerfile has no FROM directive", nil)
	}

	generated := &pipeline.GeneratedArtifacts{
		ProblemID:     problem.ID,
		Containerfile: containerfile,
		LintScript:    lint,
		TestScript:    test,
	}

	if err := s.persist(problem.ID, generated); err != nil {
		return nil, err
	}

	s.logger.Info("generation stage complete", "problem_id", problem.ID)
	return generated, nil
}

// persist writes all three artifacts as one atomic group via the store. The
// two scripts are marked executable (0o755) before they are renamed into
// place, so a reader never observes a script that exists but can't run.
func (s *Stage) persist(problemID string, artifacts *pipeline.GeneratedArtifacts) error {
	writes := []store.ArtifactWrite{
		{Subtree: "dockerfiles", Name: "Dockerfile", Data: []byte(artifacts.Containerfile)},
		{Subtree: "scripts", Name: "lint.sh", Data: []byte(artifacts.LintScript), Mode: 0o755},
		{Subtree: "scripts", Name: "test.sh", Data: []byte(artifacts.TestScript), Mode: 0o755},
	}
	if err := s.store.PutArtifactGroup(problemID, writes); err != nil {
		return pipeline.NewIOError("persisting generated artifacts", err)
	}
	return nil
}

func ensureShebang(script string) string {
	if strings.HasPrefix(script, "#!") {
		return script
	}
	return "#!/usr/bin/env sh\n" + script
}

func hasFromDirective(containerfile string) bool {
	for _, line := range strings.Split(containerfile, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(trimmed), "FROM ") || strings.EqualFold(trimmed, "FROM") {
			return true
		}
	}
	return false
}
