package workbenchbridge

import (
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned once a call's retry budget goes negative.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RequestError reports a terminal HTTP failure (status >= 400 other than the
// locally recovered 401/429 cases).
type RequestError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request to %s failed: %s", e.URL, e.Status)
}

// RateLimitedError is the distinguished signal a queued unit returns after a
// 429 so the queue re-inserts it at the front and backs off harder.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %v", e.RetryAfter)
}

// IsRateLimited reports whether err carries a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
