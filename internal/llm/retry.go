// Package llm - retry.go provides bounded retry for transient provider errors.
package llm

import (
	"context"
	"errors"
	"net"
	"time"

	"google.golang.org/api/googleapi"
)

// DefaultMaxAttempts is the number of attempts per model call, including the first.
const DefaultMaxAttempts = 3

// DefaultBaseDelay is the initial backoff delay; it doubles after each failure.
const DefaultBaseDelay = 1 * time.Second

// IsTransient reports whether an error is worth retrying: rate limits,
// provider 5xx responses, and network timeouts. Anything else (bad request,
// auth failure, cancellation) is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// WithRetry invokes fn up to maxAttempts times, sleeping with exponential
// backoff between attempts. Only transient errors are retried; permanent
// errors and context cancellation return immediately.
func WithRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() (string, error)) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", lastErr
}
