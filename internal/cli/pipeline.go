package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jmvldz/enginebuilder/internal/config"
	"github.com/jmvldz/enginebuilder/internal/orchestrator"
)

func newPipelineCmd(gf *config.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Run file-selection, relevance, ranking, and generation in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			bar := progressbar.Default(-1, "classifying files for relevance")
			a.orc.WithRelevanceProgress(func() { _ = bar.Add(1) })

			result, err := a.orc.Run(cmd.Context(), a.problem, forceFor(gf, orchestrator.StageFileSelection))
			_ = bar.Finish()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ran: %v\nskipped: %v\n", result.Ran, result.Skipped)
			return nil
		},
	}
}
