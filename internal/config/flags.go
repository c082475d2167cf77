package config

import (
	"github.com/spf13/cobra"
)

// GlobalFlags collects the persistent flags shared by every subcommand. The
// -b/-p/-s values are overlaid onto the loaded Config: a non-empty flag value
// always wins over the corresponding config file field.
type GlobalFlags struct {
	ConfigPath       string
	CodebasePath     string
	ProblemID        string
	ProblemStatement string
	Force            bool
	Verbose          bool
	Quiet            bool
}

// BindGlobalFlags registers the global persistent flags on cmd and returns
// the struct they populate once Cobra parses arguments.
func BindGlobalFlags(cmd *cobra.Command) *GlobalFlags {
	gf := &GlobalFlags{}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&gf.ConfigPath, "config", "c", "", "path to JSON config file")
	pf.StringVarP(&gf.CodebasePath, "codebase", "b", "", "codebase root path (overrides config)")
	pf.StringVarP(&gf.ProblemID, "problem-id", "p", "", "problem id (overrides config)")
	pf.StringVarP(&gf.ProblemStatement, "statement", "s", "", "problem statement (overrides config)")
	pf.BoolVar(&gf.Force, "force", false, "rerun this stage and downstream stages even if artifacts already exist")
	pf.BoolVarP(&gf.Verbose, "verbose", "v", false, "enable debug-level logging")
	pf.BoolVarP(&gf.Quiet, "quiet", "q", false, "suppress all but error-level logging")
	return gf
}

// Overlay applies any non-empty global flag value onto cfg, taking priority
// over whatever the config file set.
func (gf *GlobalFlags) Overlay(cfg *Config) {
	if gf.CodebasePath != "" {
		cfg.Codebase.Path = gf.CodebasePath
	}
	if gf.ProblemID != "" {
		cfg.Codebase.ProblemID = gf.ProblemID
	}
	if gf.ProblemStatement != "" {
		cfg.Codebase.ProblemStatement = gf.ProblemStatement
	}
}
