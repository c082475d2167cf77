package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmvldz/enginebuilder/internal/config"
	"github.com/jmvldz/enginebuilder/internal/orchestrator"
)

func newFileSelectionCmd(gf *config.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "file-selection",
		Short: "Walk the codebase and write the candidate file set",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			candidates, err := a.orc.RunFileSelection(cmd.Context(), a.problem, forceFor(gf, orchestrator.StageFileSelection))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d candidate files selected\n", len(candidates))
			return nil
		},
	}
}
