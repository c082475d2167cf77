package tokenizer

import (
	"log/slog"

	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

// BudgetResult is the outcome of fitting an ordered file list into a fixed
// token budget.
type BudgetResult struct {
	// Included holds files that fit, in the order they were considered.
	Included []pipeline.CandidateFile

	// Excluded holds files that did not fit because the budget was already
	// consumed by higher-priority files ahead of them.
	Excluded []pipeline.CandidateFile

	// TotalTokens is the sum of TokenCount across Included.
	TotalTokens int
}

// FitToBudget walks files in the given order and greedily includes each one
// whose TokenCount still fits within the remaining budget, skipping (not
// truncating) any file that doesn't -- smaller files later in the list may
// still be included. overhead is subtracted from maxTokens up front to
// account for the fixed cost of prompt scaffolding around the file
// contents. maxTokens <= 0 means unlimited: every file is included.
//
// This is what the Generation stage uses to decide how many of the
// top-ranked files' contents it can afford to embed in its prompt.
func FitToBudget(files []pipeline.CandidateFile, maxTokens, overhead int) *BudgetResult {
	result := &BudgetResult{
		Included: make([]pipeline.CandidateFile, 0, len(files)),
	}

	if maxTokens <= 0 {
		result.Included = append(result.Included, files...)
		for _, f := range files {
			result.TotalTokens += f.TokenCount
		}
		return result
	}

	remaining := maxTokens - overhead

	for _, f := range files {
		if f.TokenCount <= remaining {
			result.Included = append(result.Included, f)
			result.TotalTokens += f.TokenCount
			remaining -= f.TokenCount
		} else {
			result.Excluded = append(result.Excluded, f)
		}
	}

	slog.Debug("token budget applied",
		"included", len(result.Included),
		"excluded", len(result.Excluded),
		"total_tokens", result.TotalTokens,
		"max_tokens", maxTokens,
	)

	return result
}

// EstimateOverhead estimates the token overhead introduced by prompt
// scaffolding around a set of embedded files: instructions, delimiters, and
// per-file section headers.
func EstimateOverhead(fileCount int) int {
	return 200 + (fileCount * 35)
}
