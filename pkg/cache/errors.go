package cache

import (
	"context"
	"errors"

	"github.com/matzehuels/flametower/pkg/httputil"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache closed")

// Retryable marks err as transient. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &httputil.RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with [Retryable].
func IsRetryable(err error) bool {
	return httputil.IsRetryable(err)
}

// RetryWithBackoff retries fn up to 3 times, starting at one second and
// doubling. Only errors marked with [Retryable] are retried.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return httputil.RetryWithBackoff(ctx, fn)
}
