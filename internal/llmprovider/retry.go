package llmprovider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// defaultMaxRetries bounds how many times a transient failure is retried
// before the call surfaces as a terminal error, when a caller's Params
// doesn't set MaxRetries.
const defaultMaxRetries = 5

// retryableStatus reports whether an HTTP status code is worth retrying:
// 429 (rate limited) and any 5xx (server-side failure). Other 4xx codes are
// treated as permanent -- retrying a bad request or an auth failure never
// helps.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// isRetryableErr reports whether a transport-level error (as opposed to an
// HTTP status) is worth retrying: connection resets, timeouts, and other
// net.Error instances.
func isRetryableErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// withRetry runs attempt with exponential backoff and jitter, stopping after
// maxRetries retries, i.e. maxRetries+1 attempts (defaultMaxRetries is used
// when maxRetries <= 0), or when
// attempt returns a backoff.Permanent error. attempt is expected to wrap any
// terminal failure in backoff.Permanent itself; retryable failures are
// returned bare.
func withRetry(ctx context.Context, maxRetries int, attempt func() error) (int, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 // bounded by retry count below, not elapsed time

	bctx := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return attempt()
	}, bctx)

	return attempts - 1, err
}

// backoffPermanent marks err as non-retryable so withRetry stops immediately
// instead of burning through its retry budget on a failure that will never
// succeed (bad request, auth failure, malformed response).
func backoffPermanent(err error) error {
	return backoff.Permanent(err)
}
