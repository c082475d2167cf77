// Package orchestrator implements the Pipeline Orchestrator: the DAG driver
// that runs file_selection -> relevance -> ranking -> generation in order,
// skipping any stage whose declared artifact is already present in the
// trajectory store, and invoking the Container Execution Stage on demand.
//
// It depends on every stage package and on pipeline for the shared DTOs;
// it is deliberately its own package rather than living inside pipeline,
// since the stage packages already import pipeline for those DTOs and a
// pipeline package importing them back would cycle.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmvldz/enginebuilder/internal/config"
	"github.com/jmvldz/enginebuilder/internal/container"
	"github.com/jmvldz/enginebuilder/internal/discovery"
	"github.com/jmvldz/enginebuilder/internal/exclusion"
	"github.com/jmvldz/enginebuilder/internal/generation"
	"github.com/jmvldz/enginebuilder/internal/llmprovider"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
	"github.com/jmvldz/enginebuilder/internal/ranking"
	"github.com/jmvldz/enginebuilder/internal/relevance"
	"github.com/jmvldz/enginebuilder/internal/store"
	"github.com/jmvldz/enginebuilder/internal/tokenizer"
)

// Stage names, used both as the --force target and as the trajectory store
// artifact name each stage's completion is keyed on.
const (
	StageFileSelection = "file_selection"
	StageRelevance      = "relevance"
	StageRanking        = "ranking"
	StageGeneration     = "generation"
)

var stageOrder = []string{StageFileSelection, StageRelevance, StageRanking, StageGeneration}

const (
	artifactSelectedFiles = "selected_files.json"
	artifactRelevance     = "relevance_decisions.json"
	artifactRanking       = "ranking.json"
)

// Force names a stage whose cached artifact should be ignored. Every stage
// at or after Stage in stageOrder is re-run; an empty Force runs nothing
// that already has an artifact.
type Force struct {
	Stage string
}

// active reports whether skip-checking is disabled for stage, because
// Force names it or an earlier stage in the DAG.
func (f Force) active(stage string) bool {
	if f.Stage == "" {
		return false
	}
	for _, s := range stageOrder {
		if s == f.Stage {
			return true
		}
		if s == stage {
			return false
		}
	}
	return false
}

// Orchestrator wires the trajectory store, the LLM provider backends, and
// the four pipeline stages together and drives them across one Problem.
type Orchestrator struct {
	store    *store.Store
	backends *llmprovider.Backends

	relevanceStage  *relevance.Stage
	rankingStage    *ranking.Stage
	generationStage *generation.Stage
	container       *container.Executor

	cfg    *config.Config
	logger *slog.Logger

	onRelevanceDecision func()
}

// New builds an Orchestrator from a resolved Config. The container executor
// is constructed with cfg's build/run timeouts left at their defaults since
// Config does not carry a dedicated container section; callers that need
// non-default timeouts can replace the executor via WithContainerOptions.
func New(cfg *config.Config, st *store.Store, backends *llmprovider.Backends) *Orchestrator {
	return &Orchestrator{
		store:           st,
		backends:        backends,
		relevanceStage:  relevance.New(backends),
		rankingStage:    ranking.New(backends),
		generationStage: generation.New(backends, st),
		container:       container.New(st, container.Options{}),
		cfg:             cfg,
		logger:          slog.Default().With("component", "orchestrator"),
	}
}

// WithContainerOptions replaces the Container Execution Stage's Executor
// with one built from opts, returning the same Orchestrator for chaining.
func (o *Orchestrator) WithContainerOptions(opts container.Options) *Orchestrator {
	o.container = container.New(o.store, opts)
	return o
}

// WithRelevanceProgress registers a callback invoked once per file as the
// Relevance Stage classifies it, for driving a CLI progress indicator.
func (o *Orchestrator) WithRelevanceProgress(onDecision func()) *Orchestrator {
	o.onRelevanceDecision = onDecision
	return o
}

// BuildImage, RunLint, RunTest, and RunAll expose the Container Execution
// Stage directly: unlike file_selection/relevance/ranking/generation, this
// stage runs on demand rather than as part of the DAG, so the CLI layer
// calls these instead of Run.
func (o *Orchestrator) BuildImage(ctx context.Context, problemID, tag, buildContextDir string) (pipeline.RunResult, error) {
	return o.container.BuildImage(ctx, problemID, tag, buildContextDir)
}

func (o *Orchestrator) RunLint(ctx context.Context, problemID, tag string) (pipeline.RunResult, error) {
	return o.container.RunLint(ctx, problemID, tag)
}

func (o *Orchestrator) RunTest(ctx context.Context, problemID, tag string) (pipeline.RunResult, error) {
	return o.container.RunTest(ctx, problemID, tag)
}

func (o *Orchestrator) RunAll(ctx context.Context, problemID, tag string, parallel bool) (*pipeline.RunResults, error) {
	return o.container.RunAll(ctx, problemID, tag, parallel)
}

// Result summarizes one Run call: which stages actually executed versus
// were skipped because a prior artifact satisfied them.
type Result struct {
	Ran     []string
	Skipped []string
}

// Run drives file_selection -> relevance -> ranking -> generation for
// problem, honoring force's skip override. A hard stage failure writes
// pipeline_error.json via the store and returns the *pipeline.EngineError
// wrapped with the stage name; the caller (the CLI layer) extracts it with
// errors.As to map it to an exit code.
func (o *Orchestrator) Run(ctx context.Context, problem *pipeline.Problem, force Force) (*Result, error) {
	if err := problem.Validate(); err != nil {
		return nil, pipeline.NewConfigError("invalid problem", err)
	}

	result := &Result{}

	candidates, ran, err := o.runFileSelection(ctx, problem, force)
	if err != nil {
		return nil, o.fail(problem.ID, StageFileSelection, err)
	}
	result.record(StageFileSelection, ran)

	relevant, ran, err := o.runRelevance(ctx, problem, candidates, force)
	if err != nil {
		return nil, o.fail(problem.ID, StageRelevance, err)
	}
	result.record(StageRelevance, ran)

	rankedPaths, ran, err := o.runRanking(ctx, problem, relevant, force)
	if err != nil {
		return nil, o.fail(problem.ID, StageRanking, err)
	}
	result.record(StageRanking, ran)

	ranked := orderByRanking(relevant, rankedPaths)

	_, ran, err = o.runGeneration(ctx, problem, ranked, force)
	if err != nil {
		return nil, o.fail(problem.ID, StageGeneration, err)
	}
	result.record(StageGeneration, ran)

	o.logger.Info("pipeline run complete", "problem_id", problem.ID, "ran", result.Ran, "skipped", result.Skipped)
	return result, nil
}

func (r *Result) record(stage string, ran bool) {
	if ran {
		r.Ran = append(r.Ran, stage)
	} else {
		r.Skipped = append(r.Skipped, stage)
	}
}

// runFileSelection runs the File Selection Stage, or loads its cached
// artifact when present and force does not name it.
func (o *Orchestrator) runFileSelection(ctx context.Context, problem *pipeline.Problem, force Force) ([]pipeline.CandidateFile, bool, error) {
	if !force.active(StageFileSelection) {
		if cached, ok, err := o.loadCandidates(problem.ID); err != nil {
			return nil, false, err
		} else if ok {
			hydrated, err := hydrateContent(problem.CodebaseRoot, cached)
			if err != nil {
				return nil, false, pipeline.NewIOError("re-reading cached candidate file contents", err)
			}
			return hydrated, false, nil
		}
	}

	rules := &exclusion.Rules{IncludeExtensions: problem.IncludeExtensions}
	if problem.ExclusionsPath != "" {
		loaded, err := exclusion.LoadRules(problem.ExclusionsPath)
		if err != nil {
			return nil, false, pipeline.NewConfigError("loading exclusion rules", err)
		}
		loaded.IncludeExtensions = append(loaded.IncludeExtensions, problem.IncludeExtensions...)
		rules = loaded
	}

	tok, err := tokenizer.NewTokenizer("")
	if err != nil {
		return nil, false, pipeline.NewConfigError("constructing tokenizer", err)
	}

	walker := discovery.NewWalker(tok)
	candidates, err := walker.Walk(ctx, discovery.WalkerConfig{
		Root:          problem.CodebaseRoot,
		Exclusions:    exclusion.New(rules),
		MaxFileTokens: o.cfg.Relevance.MaxFileTokens,
	})
	if err != nil {
		return nil, false, pipeline.NewIOError("file selection stage", err)
	}

	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return nil, false, pipeline.NewIOError("marshaling selected files", err)
	}
	if err := o.store.Put(problem.ID, artifactSelectedFiles, data); err != nil {
		return nil, false, pipeline.NewIOError("persisting selected files", err)
	}

	return candidates, true, nil
}

// hydrateContent re-reads each candidate's file content from disk. The
// selected_files.json artifact never carries Content (pipeline.CandidateFile
// excludes it from its JSON encoding on purpose), so resuming from a cached
// file-selection artifact needs this to make candidates usable by the
// downstream stages, all of which read file.Content to build their prompts.
func hydrateContent(codebaseRoot string, candidates []pipeline.CandidateFile) ([]pipeline.CandidateFile, error) {
	hydrated := make([]pipeline.CandidateFile, len(candidates))
	for i, c := range candidates {
		data, err := os.ReadFile(filepath.Join(codebaseRoot, filepath.FromSlash(c.Path)))
		if err != nil {
			return nil, err
		}
		c.Content = string(data)
		hydrated[i] = c
	}
	return hydrated, nil
}

func (o *Orchestrator) loadCandidates(problemID string) ([]pipeline.CandidateFile, bool, error) {
	data, ok, err := o.store.Get(problemID, artifactSelectedFiles)
	if err != nil {
		return nil, false, pipeline.NewIOError("reading cached selected files", err)
	}
	if !ok {
		return nil, false, nil
	}
	var candidates []pipeline.CandidateFile
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, false, nil
	}
	return candidates, true, nil
}

// runRelevance runs the Relevance Stage over every candidate file, or loads
// its cached decisions, then filters to the subset marked relevant.
func (o *Orchestrator) runRelevance(ctx context.Context, problem *pipeline.Problem, candidates []pipeline.CandidateFile, force Force) ([]pipeline.CandidateFile, bool, error) {
	var decisions []pipeline.RelevanceDecision
	ran := false

	if !force.active(StageRelevance) {
		if cached, ok, err := o.loadDecisions(problem.ID); err != nil {
			return nil, false, err
		} else if ok {
			decisions = cached
		}
	}

	if decisions == nil {
		stageCfg := o.cfg.Relevance
		out, err := o.relevanceStage.Run(ctx, problem, candidates, relevance.Options{
			Model:      stageCfg.Model,
			MaxWorkers: stageCfg.MaxWorkers,
			MaxTokens:  stageCfg.MaxTokens,
			Timeout:    time.Duration(stageCfg.TimeoutSecs) * time.Second,
			MaxRetries: stageCfg.MaxRetries,
			ProblemID:  problem.ID,
			OnDecision: o.onRelevanceDecision,
		})
		if err != nil {
			return nil, false, err
		}
		decisions = out
		ran = true

		data, err := json.MarshalIndent(decisions, "", "  ")
		if err != nil {
			return nil, false, pipeline.NewIOError("marshaling relevance decisions", err)
		}
		if err := o.store.Put(problem.ID, artifactRelevance, data); err != nil {
			return nil, false, pipeline.NewIOError("persisting relevance decisions", err)
		}
	}

	byPath := make(map[string]pipeline.CandidateFile, len(candidates))
	for _, c := range candidates {
		byPath[c.Path] = c
	}

	relevant := make([]pipeline.CandidateFile, 0, len(decisions))
	for _, d := range decisions {
		if !d.Relevant {
			continue
		}
		if c, ok := byPath[d.Path]; ok {
			relevant = append(relevant, c)
		}
	}

	return relevant, ran, nil
}

func (o *Orchestrator) loadDecisions(problemID string) ([]pipeline.RelevanceDecision, bool, error) {
	data, ok, err := o.store.Get(problemID, artifactRelevance)
	if err != nil {
		return nil, false, pipeline.NewIOError("reading cached relevance decisions", err)
	}
	if !ok {
		return nil, false, nil
	}
	var decisions []pipeline.RelevanceDecision
	if err := json.Unmarshal(data, &decisions); err != nil {
		return nil, false, nil
	}
	return decisions, true, nil
}

// runRanking runs the Ranking Stage over the relevant files, or loads its
// cached path order.
func (o *Orchestrator) runRanking(ctx context.Context, problem *pipeline.Problem, relevant []pipeline.CandidateFile, force Force) ([]string, bool, error) {
	if !force.active(StageRanking) {
		if cached, ok, err := o.loadRanking(problem.ID); err != nil {
			return nil, false, err
		} else if ok {
			return cached, false, nil
		}
	}

	stageCfg := o.cfg.Ranking
	result, err := o.rankingStage.Run(ctx, problem, relevant, ranking.Options{
		Model:              stageCfg.Model,
		MaxTokens:          stageCfg.MaxTokens,
		Timeout:            time.Duration(stageCfg.TimeoutSecs) * time.Second,
		MaxRetries:         stageCfg.MaxRetries,
		ProblemID:          problem.ID,
		ExcerptTokenBudget: stageCfg.MaxTokens,
	})
	if err != nil {
		return nil, false, err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, false, pipeline.NewIOError("marshaling ranking", err)
	}
	if err := o.store.Put(problem.ID, artifactRanking, data); err != nil {
		return nil, false, pipeline.NewIOError("persisting ranking", err)
	}

	return result.Paths, true, nil
}

func (o *Orchestrator) loadRanking(problemID string) ([]string, bool, error) {
	data, ok, err := o.store.Get(problemID, artifactRanking)
	if err != nil {
		return nil, false, pipeline.NewIOError("reading cached ranking", err)
	}
	if !ok {
		return nil, false, nil
	}
	var r pipeline.Ranking
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, nil
	}
	return r.Paths, true, nil
}

// orderByRanking reorders relevant to match order, appending any relevant
// file the ranking omitted at the end in its original order. This keeps the
// Generation Stage's file selection well-defined even when the Ranking
// Stage's coercion dropped an unknown path.
func orderByRanking(relevant []pipeline.CandidateFile, order []string) []pipeline.CandidateFile {
	byPath := make(map[string]pipeline.CandidateFile, len(relevant))
	for _, c := range relevant {
		byPath[c.Path] = c
	}

	seen := make(map[string]bool, len(order))
	ranked := make([]pipeline.CandidateFile, 0, len(relevant))
	for _, path := range order {
		if c, ok := byPath[path]; ok && !seen[path] {
			ranked = append(ranked, c)
			seen[path] = true
		}
	}
	for _, c := range relevant {
		if !seen[c.Path] {
			ranked = append(ranked, c)
			seen[c.Path] = true
		}
	}
	return ranked
}

// runGeneration runs the Generation Stage, or treats the stage as already
// satisfied when all three generated artifacts are already on disk.
func (o *Orchestrator) runGeneration(ctx context.Context, problem *pipeline.Problem, ranked []pipeline.CandidateFile, force Force) (*pipeline.GeneratedArtifacts, bool, error) {
	if !force.active(StageGeneration) && o.generationArtifactsExist(problem.ID) {
		return nil, false, nil
	}

	stageCfg := o.cfg.Scripts
	artifacts, err := o.generationStage.Run(ctx, problem, ranked, generation.Options{
		Model:         stageCfg.Model,
		MaxTokens:     stageCfg.MaxTokens,
		Timeout:       time.Duration(stageCfg.TimeoutSecs) * time.Second,
		MaxRetries:    stageCfg.MaxRetries,
		ProblemID:     problem.ID,
		ExcerptBudget: stageCfg.MaxTokens,
	})
	if err != nil {
		return nil, false, err
	}
	return artifacts, true, nil
}

func (o *Orchestrator) generationArtifactsExist(problemID string) bool {
	if _, ok, err := o.store.GetArtifact(problemID, "dockerfiles", "Dockerfile"); err != nil || !ok {
		return false
	}
	if _, ok, err := o.store.GetArtifact(problemID, "scripts", "lint.sh"); err != nil || !ok {
		return false
	}
	if _, ok, err := o.store.GetArtifact(problemID, "scripts", "test.sh"); err != nil || !ok {
		return false
	}
	return true
}

// pipelineError is the structure written to pipeline_error.json.
type pipelineError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// fail records a hard stage failure to pipeline_error.json and returns err
// wrapped as "stage <name>: <err>"; the *pipeline.EngineError inside stays
// reachable with errors.As so the caller can extract its exit code.
func (o *Orchestrator) fail(problemID, stage string, err error) error {
	o.logger.Error("pipeline stage failed", "stage", stage, "error", err)

	record := pipelineError{Stage: stage, Message: err.Error()}
	data, marshalErr := json.MarshalIndent(record, "", "  ")
	if marshalErr == nil {
		if putErr := o.store.Put(problemID, "pipeline_error.json", data); putErr != nil {
			o.logger.Error("failed to persist pipeline_error.json", "error", putErr)
		}
	}

	return fmt.Errorf("stage %s: %w", stage, err)
}

// RunFileSelection runs only the File Selection Stage (the CLI's
// file-selection subcommand), honoring force the same way Run does.
func (o *Orchestrator) RunFileSelection(ctx context.Context, problem *pipeline.Problem, force Force) ([]pipeline.CandidateFile, error) {
	if err := problem.Validate(); err != nil {
		return nil, pipeline.NewConfigError("invalid problem", err)
	}
	candidates, _, err := o.runFileSelection(ctx, problem, force)
	if err != nil {
		return nil, o.fail(problem.ID, StageFileSelection, err)
	}
	return candidates, nil
}

// RunRelevance runs only the Relevance Stage (the CLI's relevance
// subcommand). It requires a prior file-selection artifact; unlike Run, it
// never performs file selection itself.
func (o *Orchestrator) RunRelevance(ctx context.Context, problem *pipeline.Problem, force Force) ([]pipeline.RelevanceDecision, error) {
	if err := problem.Validate(); err != nil {
		return nil, pipeline.NewConfigError("invalid problem", err)
	}

	candidates, ok, err := o.loadCandidates(problem.ID)
	if err != nil {
		return nil, o.fail(problem.ID, StageRelevance, err)
	}
	if !ok {
		return nil, o.fail(problem.ID, StageRelevance, pipeline.NewConfigError("no selected_files.json artifact; run file-selection first", nil))
	}
	candidates, err = hydrateContent(problem.CodebaseRoot, candidates)
	if err != nil {
		return nil, o.fail(problem.ID, StageRelevance, pipeline.NewIOError("re-reading candidate file contents", err))
	}

	if !force.active(StageRelevance) {
		if cached, ok, err := o.loadDecisions(problem.ID); err != nil {
			return nil, o.fail(problem.ID, StageRelevance, err)
		} else if ok {
			return cached, nil
		}
	}

	_, _, err = o.runRelevance(ctx, problem, candidates, Force{Stage: StageRelevance})
	if err != nil {
		return nil, o.fail(problem.ID, StageRelevance, err)
	}
	decisions, ok, err := o.loadDecisions(problem.ID)
	if err != nil {
		return nil, o.fail(problem.ID, StageRelevance, err)
	}
	if !ok {
		return nil, o.fail(problem.ID, StageRelevance, pipeline.NewIOError("reading freshly written relevance decisions", nil))
	}
	return decisions, nil
}

// RunRanking runs only the Ranking Stage (the CLI's ranking subcommand). It
// requires prior file-selection and relevance artifacts.
func (o *Orchestrator) RunRanking(ctx context.Context, problem *pipeline.Problem, force Force) ([]string, error) {
	if err := problem.Validate(); err != nil {
		return nil, pipeline.NewConfigError("invalid problem", err)
	}

	relevantFiles, err := o.loadRelevantCandidates(problem)
	if err != nil {
		return nil, o.fail(problem.ID, StageRanking, err)
	}

	paths, _, err := o.runRanking(ctx, problem, relevantFiles, force)
	if err != nil {
		return nil, o.fail(problem.ID, StageRanking, err)
	}
	return paths, nil
}

// RunGeneration runs only the Generation Stage (the CLI's generate-scripts
// and dockerfile subcommands, which both trigger the same underlying call
// and each report one half of its output). It requires prior
// file-selection, relevance, and ranking artifacts.
func (o *Orchestrator) RunGeneration(ctx context.Context, problem *pipeline.Problem, force Force) (*pipeline.GeneratedArtifacts, error) {
	if err := problem.Validate(); err != nil {
		return nil, pipeline.NewConfigError("invalid problem", err)
	}

	relevantFiles, err := o.loadRelevantCandidates(problem)
	if err != nil {
		return nil, o.fail(problem.ID, StageGeneration, err)
	}

	order, ok, err := o.loadRanking(problem.ID)
	if err != nil {
		return nil, o.fail(problem.ID, StageGeneration, err)
	}
	if !ok {
		return nil, o.fail(problem.ID, StageGeneration, pipeline.NewConfigError("no ranking.json artifact; run ranking first", nil))
	}
	ranked := orderByRanking(relevantFiles, order)

	artifacts, _, err := o.runGeneration(ctx, problem, ranked, force)
	if err != nil {
		return nil, o.fail(problem.ID, StageGeneration, err)
	}
	if artifacts == nil {
		// Already satisfied by a prior run; read it back so the caller
		// (a CLI subcommand printing one half of it) has something to show.
		data, ok, getErr := o.store.GetArtifact(problem.ID, "dockerfiles", "Dockerfile")
		if getErr != nil || !ok {
			return nil, o.fail(problem.ID, StageGeneration, pipeline.NewIOError("reading cached Dockerfile", getErr))
		}
		lintData, _, _ := o.store.GetArtifact(problem.ID, "scripts", "lint.sh")
		testData, _, _ := o.store.GetArtifact(problem.ID, "scripts", "test.sh")
		artifacts = &pipeline.GeneratedArtifacts{
			ProblemID:     problem.ID,
			Containerfile: string(data),
			LintScript:    string(lintData),
			TestScript:    string(testData),
		}
	}
	return artifacts, nil
}

// loadRelevantCandidates reconstructs the relevant candidate file set (with
// Content hydrated) from the cached file-selection and relevance artifacts,
// failing if either is missing.
func (o *Orchestrator) loadRelevantCandidates(problem *pipeline.Problem) ([]pipeline.CandidateFile, error) {
	candidates, ok, err := o.loadCandidates(problem.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pipeline.NewConfigError("no selected_files.json artifact; run file-selection first", nil)
	}
	candidates, err = hydrateContent(problem.CodebaseRoot, candidates)
	if err != nil {
		return nil, pipeline.NewIOError("re-reading candidate file contents", err)
	}

	decisions, ok, err := o.loadDecisions(problem.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pipeline.NewConfigError("no relevance_decisions.json artifact; run relevance first", nil)
	}

	byPath := make(map[string]pipeline.CandidateFile, len(candidates))
	for _, c := range candidates {
		byPath[c.Path] = c
	}
	relevant := make([]pipeline.CandidateFile, 0, len(decisions))
	for _, d := range decisions {
		if d.Relevant {
			if c, ok := byPath[d.Path]; ok {
				relevant = append(relevant, c)
			}
		}
	}
	return relevant, nil
}
