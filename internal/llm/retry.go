package llm

import (
	"errors"
	"math/rand"
	"time"
)

const maxRetries = 3

// retryableError marks a provider failure worth retrying, typically a 429
// or a 5xx.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }

func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// backoff returns the wait before retry number attempt (0-based):
// exponential with jitter, capped at 30 seconds.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}
