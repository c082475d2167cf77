package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmvldz/enginebuilder/internal/config"
	"github.com/jmvldz/enginebuilder/internal/orchestrator"
)

// newGenerateScriptsCmd and newDockerfileCmd both drive the single
// Generation Stage call (it produces all three artifacts together) and
// each print one half of the result, since they are separate subcommands
// over one stage.

func newGenerateScriptsCmd(gf *config.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-scripts",
		Short: "Generate the lint and test scripts (and the containerfile alongside them)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			artifacts, err := a.orc.RunGeneration(cmd.Context(), a.problem, forceFor(gf, orchestrator.StageGeneration))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "--- lint.sh ---")
			fmt.Fprintln(cmd.OutOrStdout(), artifacts.LintScript)
			fmt.Fprintln(cmd.OutOrStdout(), "--- test.sh ---")
			fmt.Fprintln(cmd.OutOrStdout(), artifacts.TestScript)
			return nil
		},
	}
}

func newDockerfileCmd(gf *config.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dockerfile",
		Short: "Generate the containerfile (and the lint/test scripts alongside it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			artifacts, err := a.orc.RunGeneration(cmd.Context(), a.problem, forceFor(gf, orchestrator.StageGeneration))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), artifacts.Containerfile)
			return nil
		},
	}
}
