package generation

import (
	"fmt"
	"strings"

	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

const generationSystemPrompt = `You generate a containerization recipe for a codebase given a problem statement and its highest-priority files. Respond with exactly three labeled sections and nothing else, in this form:

===DOCKERFILE===
<containerfile body>
===LINT===
<lint script body>
===TEST===
<test script body>
===END===`

func renderGenerationPrompt(statement string, files []pipeline.CandidateFile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem statement:\n%s\n\n", statement)
	b.WriteString("Highest-priority files:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "\n### %s\n```\n%s\n```\n", f.Path, f.Content)
	}
	b.WriteString("\nProduce a Dockerfile that builds this codebase, a lint script, and a test script, using the exact section format described in the system prompt.")
	return b.String()
}

func renderMissingSectionPrompt(missing []string, statement string, files []pipeline.CandidateFile) string {
	base := renderGenerationPrompt(statement, files)
	return fmt.Sprintf(
		"Your previous response was missing the following section(s): %s. Reply again with ONLY those section(s), using the exact marker format from the system prompt.\n\n%s",
		strings.Join(missing, ", "), base,
	)
}
