package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmvldz/enginebuilder/internal/config"
	"github.com/jmvldz/enginebuilder/internal/orchestrator"
)

func newRankingCmd(gf *config.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ranking",
		Short: "Order relevant files by likelihood a fix requires editing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolve(gf)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			paths, err := a.orc.RunRanking(cmd.Context(), a.problem, forceFor(gf, orchestrator.StageRanking))
			if err != nil {
				return err
			}
			for i, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, p)
			}
			return nil
		},
	}
}
