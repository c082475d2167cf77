package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jmvldz/enginebuilder/internal/config"
	"github.com/jmvldz/enginebuilder/internal/orchestrator"
)

func newRelevanceCmd(gf *config.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "relevance",
		Short: "Classify each selected file's relevance to the problem statement",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			bar := progressbar.Default(-1, "classifying files")
			a.orc.WithRelevanceProgress(func() { _ = bar.Add(1) })

			decisions, err := a.orc.RunRelevance(cmd.Context(), a.problem, forceFor(gf, orchestrator.StageRelevance))
			_ = bar.Finish()
			if err != nil {
				return err
			}

			relevant := 0
			for _, d := range decisions {
				if d.Relevant {
					relevant++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d files marked relevant\n", relevant, len(decisions))
			return nil
		},
	}
}
