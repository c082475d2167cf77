package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jmvldz/enginebuilder/internal/config"
	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

// printRunResult prints a colorized pass/fail banner for r (colors degrade
// automatically to plain text when stdout is not a terminal, per fatih/color's
// own NO_COLOR and isatty detection).
func printRunResult(cmd *cobra.Command, r pipeline.RunResult) {
	banner := color.GreenString("PASS")
	if r.Timeout {
		banner = color.YellowString("TIMEOUT")
	} else if r.ExitCode != 0 {
		banner = color.RedString("FAIL")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s (exit %d, %dms)\n", banner, r.Kind, r.ExitCode, r.DurationMS)
	if r.Stdout != "" {
		fmt.Fprintln(cmd.OutOrStdout(), r.Stdout)
	}
	if r.Stderr != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), r.Stderr)
	}
}

func newBuildImageCmd(gf *config.GlobalFlags) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "build-image",
		Short: "Build the generated containerfile as an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			result, err := a.orc.BuildImage(cmd.Context(), a.problem.ID, tag, a.problem.CodebaseRoot)
			printRunResult(cmd, result)
			return err
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "image tag to build (required)")
	cmd.MarkFlagRequired("tag")
	return cmd
}

func newRunLintCmd(gf *config.GlobalFlags) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "run-lint",
		Short: "Run the generated lint script in an ephemeral container",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			result, err := a.orc.RunLint(cmd.Context(), a.problem.ID, tag)
			printRunResult(cmd, result)
			return err
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "image tag to run against (required)")
	cmd.MarkFlagRequired("tag")
	return cmd
}

func newRunTestCmd(gf *config.GlobalFlags) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "run-test",
		Short: "Run the generated test script in an ephemeral container",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			result, err := a.orc.RunTest(cmd.Context(), a.problem.ID, tag)
			printRunResult(cmd, result)
			return err
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "image tag to run against (required)")
	cmd.MarkFlagRequired("tag")
	return cmd
}

func newRunAllCmd(gf *config.GlobalFlags) *cobra.Command {
	var tag string
	var parallel bool
	cmd := &cobra.Command{
		Use:   "run-all",
		Short: "Run the generated lint and test scripts, sequentially or in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			results, err := a.orc.RunAll(cmd.Context(), a.problem.ID, tag, parallel)
			if err != nil {
				return err
			}
			for _, r := range results.Results {
				printRunResult(cmd, r)
			}
			if !results.Succeeded() {
				return pipeline.NewContainerError("run-all: one or more runs failed", nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "image tag to run against (required)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "run lint and test concurrently")
	cmd.MarkFlagRequired("tag")
	return cmd
}
