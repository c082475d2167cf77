package ranking

import (
	"fmt"
	"strings"

	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

const rankingSystemPrompt = `You rank a set of files by how likely a fix to the given problem statement requires editing them, most likely first. Respond with a single JSON array of file paths, drawn only from the paths provided, and nothing else.`

func renderRankingPrompt(statement string, paths []string, excerpts []pipeline.CandidateFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem statement:\n%s\n\n", statement)
	fmt.Fprintf(&b, "Candidate files (%d), already confirmed relevant:\n", len(paths))
	for _, p := range paths {
		fmt.Fprintf(&b, "- %s\n", p)
	}
	if len(excerpts) > 0 {
		b.WriteString("\nExcerpts of the largest candidate files:\n")
		for _, f := range excerpts {
			fmt.Fprintf(&b, "\n### %s\n```\n%s\n```\n", f.Path, f.Content)
		}
	}
	b.WriteString("\nReturn a JSON array containing every path above, ordered from most to least likely to need editing.")
	return b.String()
}

func renderRankingRetryPrompt(statement string, paths []string, excerpts []pipeline.CandidateFile) string {
	base := renderRankingPrompt(statement, paths, excerpts)
	return "Your previous answer could not be parsed as a JSON array. Reply with ONLY a JSON array of paths -- no prose, no code fences.\n\n" + base
}
