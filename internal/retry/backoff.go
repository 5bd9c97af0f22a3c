package retry

import (
	"context"
	"time"
)

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}

// Retryable reports whether an error is worth another attempt.
type Retryable func(error) bool

// Do runs fn up to attempts times, sleeping with exponential backoff between
// attempts. It stops early when fn succeeds, when shouldRetry reports the
// error as permanent, or when ctx is done. The last error is returned.
func Do(ctx context.Context, attempts int, base time.Duration, shouldRetry Retryable, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ExponentialBackoff(attempt, base)):
		}
	}
	return err
}
