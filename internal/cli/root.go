package cli

import (
	"github.com/spf13/cobra"

	"github.com/jmvldz/enginebuilder/internal/config"
)

// Execute builds the command tree and runs it against os.Args. Errors are
// returned rather than printed by cobra itself (SilenceErrors/SilenceUsage
// are set) so main can print the message once and map it to an exit code
// via ExitCode.
func Execute(args []string) error {
	root := newRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "engine",
		Short:         "Analyze a codebase and generate a containerized lint/test harness for a problem statement",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	gf := config.BindGlobalFlags(root)

	root.AddCommand(
		newPipelineCmd(gf),
		newFileSelectionCmd(gf),
		newRelevanceCmd(gf),
		newRankingCmd(gf),
		newGenerateScriptsCmd(gf),
		newDockerfileCmd(gf),
		newBuildImageCmd(gf),
		newRunLintCmd(gf),
		newRunTestCmd(gf),
		newRunAllCmd(gf),
		newVersionCmd(),
	)

	return root
}
