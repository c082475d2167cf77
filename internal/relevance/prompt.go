package relevance

import (
	"fmt"

	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

const relevanceSystemPrompt = `You are assessing whether a single file from a codebase is relevant to a problem statement. Respond with a single JSON object of the form {"relevant": bool, "justification": string} and nothing else.`

// renderRelevancePrompt builds the initial per-file classification prompt.
func renderRelevancePrompt(statement string, file pipeline.CandidateFile) string {
	return fmt.Sprintf(
		"Problem statement:\n%s\n\nFile: %s\n\n```\n%s\n```\n\nIs this file relevant to resolving the problem statement? Reply with only the JSON object described in the system prompt.",
		statement, file.Path, file.Content,
	)
}

// renderRelevanceRetryPrompt asks for the same classification again, after
// the first response failed to parse as JSON.
func renderRelevanceRetryPrompt(statement string, file pipeline.CandidateFile) string {
	return fmt.Sprintf(
		"Your previous answer could not be parsed as JSON. Reply with ONLY the JSON object {\"relevant\": bool, \"justification\": string} -- no prose, no code fences.\n\nProblem statement:\n%s\n\nFile: %s\n\n```\n%s\n```",
		statement, file.Path, file.Content,
	)
}
