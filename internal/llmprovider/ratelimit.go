package llmprovider

import (
	"golang.org/x/time/rate"
)

// defaultQPS caps steady-state request throughput per Provider instance,
// independent of how many workers the Relevance Stage's semaphore admits at
// once: the semaphore bounds concurrency, this bounds rate.
const defaultQPS = 4

// newLimiter returns a token-bucket limiter sized for defaultQPS with a
// burst of one, so retries and the worker pool both compose against one
// steady cap rather than bursting past a provider's own rate limit.
func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(defaultQPS), 1)
}
