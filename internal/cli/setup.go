// Package cli assembles the command tree: one subcommand per pipeline
// stage plus the full pipeline and container operations, all sharing the
// global -c/-b/-p/-s flags and the same config resolution and exit-code
// mapping.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmvldz/enginebuilder/internal/buildinfo"
	"github.com/jmvldz/enginebuilder/internal/config"
	"github.com/jmvldz/enginebuilder/internal/llmprovider"
	"github.com/jmvldz/enginebuilder/internal/metrics"
	"github.com/jmvldz/enginebuilder/internal/orchestrator"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
	"github.com/jmvldz/enginebuilder/internal/store"
)

// app bundles everything a subcommand needs to run: the resolved Problem
// and Config, a ready Orchestrator, and anything that needs closing once
// the command returns.
type app struct {
	cfg        *config.Config
	problem    *pipeline.Problem
	orc        *orchestrator.Orchestrator
	metricsReg *metrics.Registry
}

// resolve loads and validates configuration from gf, applies environment
// overrides, builds the Problem and Orchestrator, and starts the metrics
// listener if observability.metrics_addr is set.
func resolve(gf *config.GlobalFlags) (*app, error) {
	cfg := config.Default()
	if gf.ConfigPath != "" {
		loaded, err := config.LoadFromFile(gf.ConfigPath)
		if err != nil {
			return nil, pipeline.NewConfigError("loading config file", err)
		}
		cfg = loaded
	}

	config.ApplyEnvOverrides(cfg)
	gf.Overlay(cfg)

	config.SetupLogging(config.ResolveLogLevel(gf.Verbose, gf.Quiet), config.ResolveLogFormat())

	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, pipeline.NewConfigError(fmt.Sprintf("invalid configuration: %v", msgs), nil)
	}

	problem := &pipeline.Problem{
		ID:                cfg.Codebase.ProblemID,
		Statement:         cfg.Codebase.ProblemStatement,
		CodebaseRoot:      cfg.Codebase.Path,
		IncludeExtensions: cfg.Codebase.IncludeExtensions,
		ExclusionsPath:    cfg.Codebase.ExclusionsPath,
	}
	if err := problem.Validate(); err != nil {
		return nil, pipeline.NewConfigError("invalid problem", err)
	}

	st := store.New(cfg.OutputPath)

	var tracer llmprovider.Tracer = llmprovider.NoopTracer{}
	if cfg.Observability.Langfuse.Enabled {
		tracer = llmprovider.NewSlogTracer()
	}
	var metricsReg *metrics.Registry
	if cfg.Observability.MetricsAddr != "" {
		metricsReg = metrics.New()
		if err := metricsReg.Serve(cfg.Observability.MetricsAddr); err != nil {
			return nil, pipeline.NewConfigError("starting metrics listener", err)
		}
		tracer = metricsReg
	}

	backends := llmprovider.NewBackends(cfg.AnthropicAPIKey, cfg.OpenAIAPIKey, tracer)
	orc := orchestrator.New(cfg, st, backends)

	return &app{cfg: cfg, problem: problem, orc: orc, metricsReg: metricsReg}, nil
}

// forceFor builds the orchestrator.Force a subcommand should pass to Run:
// the named stage when --force was given, or a no-op Force otherwise. Each
// subcommand names the stage it concerns; "pipeline" names the first stage
// in the DAG so --force reruns the whole thing.
func forceFor(gf *config.GlobalFlags, stage string) orchestrator.Force {
	if !gf.Force {
		return orchestrator.Force{}
	}
	return orchestrator.Force{Stage: stage}
}

// close shuts down anything resolve started, such as the metrics listener.
func (a *app) close(ctx context.Context) {
	if a.metricsReg != nil {
		_ = a.metricsReg.Shutdown(ctx)
	}
}

// exitCodeFor maps err to a process exit code, defaulting to 1 for an error
// that never surfaced as a *pipeline.EngineError.
func exitCodeFor(err error) int {
	if err == nil {
		return int(pipeline.ExitSuccess)
	}
	var engErr *pipeline.EngineError
	if errors.As(err, &engErr) {
		return engErr.Code
	}
	return int(pipeline.ExitError)
}

// versionString renders the build-info banner the version subcommand prints.
func versionString() string {
	return fmt.Sprintf("enginebuilder %s (commit %s, built %s, %s, %s/%s)",
		buildinfo.Version, buildinfo.Commit, buildinfo.Date, buildinfo.GoVersion, buildinfo.OS(), buildinfo.Arch())
}

// ExitCode maps a cobra Execute() error to a process exit code, for main
// to pass to os.Exit.
func ExitCode(err error) int {
	return exitCodeFor(err)
}
