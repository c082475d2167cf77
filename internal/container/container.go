// Package container implements the Container Execution Stage: building the
// generated image and running the generated lint/test scripts inside
// ephemeral containers via the host container CLI, with wall-clock timeouts
// and a SIGTERM-then-SIGKILL grace period on expiry.
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmvldz/enginebuilder/internal/pipeline"
	"github.com/jmvldz/enginebuilder/internal/store"
)

// Options configures the Executor's timeouts and the host CLI binary.
type Options struct {
	// Binary is the container CLI executable, e.g. "docker" or "podman".
	Binary string

	// BuildTimeout and RunTimeout bound a single build_image / run_lint /
	// run_test invocation's wall clock. Zero means no timeout.
	BuildTimeout time.Duration
	RunTimeout   time.Duration

	// GracePeriod is how long a forcibly-terminated process is given to
	// exit after SIGTERM before SIGKILL is sent.
	GracePeriod time.Duration
}

func (o Options) binary() string {
	if o.Binary == "" {
		return "docker"
	}
	return o.Binary
}

func (o Options) gracePeriod() time.Duration {
	if o.GracePeriod <= 0 {
		return 5 * time.Second
	}
	return o.GracePeriod
}

// Executor runs container operations for one codebase/problem via the host
// container CLI.
type Executor struct {
	store  *store.Store
	opts   Options
	logger *slog.Logger
}

// New constructs an Executor backed by st for reading generated artifacts
// and recording results.
func New(st *store.Store, opts Options) *Executor {
	return &Executor{
		store:  st,
		opts:   opts,
		logger: slog.Default().With("component", "container"),
	}
}

// BuildImage builds tag from the generated Containerfile using
// buildContextDir (the analyzed codebase root) as the build context.
func (e *Executor) BuildImage(ctx context.Context, problemID, tag, buildContextDir string) (pipeline.RunResult, error) {
	dockerfile := e.store.ArtifactPath(problemID, "dockerfiles", "Dockerfile")
	args := []string{"build", "-t", tag, "-f", dockerfile, buildContextDir}

	result := e.run(ctx, "build", tag, e.opts.BuildTimeout, args...)
	if err := e.persistResult(problemID, result); err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		return result, pipeline.NewContainerError(fmt.Sprintf("build_image failed for tag %s", tag), errors.New(result.Stderr))
	}
	return result, nil
}

// RunLint runs the generated lint script inside an ephemeral container
// created from tag.
func (e *Executor) RunLint(ctx context.Context, problemID, tag string) (pipeline.RunResult, error) {
	return e.runScript(ctx, problemID, tag, "lint", "lint.sh")
}

// RunTest runs the generated test script inside an ephemeral container
// created from tag.
func (e *Executor) RunTest(ctx context.Context, problemID, tag string) (pipeline.RunResult, error) {
	return e.runScript(ctx, problemID, tag, "test", "test.sh")
}

func (e *Executor) runScript(ctx context.Context, problemID, tag, kind, scriptName string) (pipeline.RunResult, error) {
	scriptPath := e.store.ArtifactPath(problemID, "scripts", scriptName)
	containerPath := "/" + scriptName
	args := []string{
		"run", "--rm",
		"-v", fmt.Sprintf("%s:%s:ro", scriptPath, containerPath),
		tag, "sh", containerPath,
	}

	result := e.run(ctx, kind, tag, e.opts.RunTimeout, args...)
	if err := e.persistResult(problemID, result); err != nil {
		return result, err
	}
	return result, nil
}

// RunAll runs lint and test against tag, sequentially (lint first) or
// concurrently. A failure of one run never cancels the other; the
// aggregate RunResults always includes both, and an error is returned only
// if persisting the aggregate artifact itself fails.
func (e *Executor) RunAll(ctx context.Context, problemID, tag string, parallel bool) (*pipeline.RunResults, error) {
	var lint, test pipeline.RunResult

	if parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			r, _ := e.RunLint(gctx, problemID, tag)
			lint = r
			return nil
		})
		g.Go(func() error {
			r, _ := e.RunTest(gctx, problemID, tag)
			test = r
			return nil
		})
		_ = g.Wait()
	} else {
		lint, _ = e.RunLint(ctx, problemID, tag)
		test, _ = e.RunTest(ctx, problemID, tag)
	}

	results := &pipeline.RunResults{Results: []pipeline.RunResult{lint, test}}
	data, err := marshalResults(results)
	if err != nil {
		return results, pipeline.NewIOError("marshaling run_all results", err)
	}
	if err := e.store.Put(problemID, "run_all.json", data); err != nil {
		return results, pipeline.NewIOError("persisting run_all results", err)
	}

	return results, nil
}

// run executes the container CLI with args, bounded by timeout (zero means
// unbounded), returning a RunResult that always carries captured
// stdout/stderr regardless of success.
func (e *Executor) run(ctx context.Context, kind, tag string, timeout time.Duration, args ...string) pipeline.RunResult {
	start := time.Now()

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.opts.binary(), args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.opts.gracePeriod()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Info("running container operation", "kind", kind, "tag", tag, "binary", e.opts.binary())
	runErr := cmd.Run()

	result := pipeline.RunResult{
		Kind:       kind,
		ImageTag:   tag,
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		result.Timeout = true
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result
	}
	if runErr != nil {
		result.ExitCode = -1
		result.Stderr += "\n" + runErr.Error()
		return result
	}

	result.ExitCode = 0
	return result
}

func (e *Executor) persistResult(problemID string, result pipeline.RunResult) error {
	data, err := marshalResult(result)
	if err != nil {
		return pipeline.NewIOError("marshaling run result", err)
	}
	if err := e.store.Put(problemID, result.Kind+"_result.json", data); err != nil {
		return pipeline.NewIOError("persisting run result", err)
	}
	return nil
}
