package tokenizer

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

// Counter wraps a Tokenizer and provides parallel per-file token counting
// over the pipeline's candidate file set. It is safe for concurrent use.
type Counter struct {
	tokenizer Tokenizer
}

// NewCounter creates a new Counter using the given Tokenizer. The provided
// Tokenizer must be safe for concurrent use; all built-in implementations
// satisfy this requirement.
func NewCounter(t Tokenizer) *Counter {
	return &Counter{tokenizer: t}
}

// CountFile sets f.TokenCount from f.Content. Empty content results in a
// token count of zero.
func (c *Counter) CountFile(f *pipeline.CandidateFile) {
	f.TokenCount = c.tokenizer.Count(f.Content)
}

// CountFiles counts tokens for all files in parallel and returns the total
// token count across all of them. Workers are bounded to runtime.NumCPU()
// concurrent goroutines. Context cancellation is respected.
func (c *Counter) CountFiles(ctx context.Context, files []*pipeline.CandidateFile) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	totals := make(chan int, len(files))

	for _, f := range files {
		f := f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("token counting cancelled: %w", err)
			}
			c.CountFile(f)
			totals <- f.TokenCount
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		close(totals)
		return 0, err
	}
	close(totals)

	total := 0
	for n := range totals {
		total += n
	}
	return total, nil
}
