package core

import (
	"context"
	"time"
)

// RetryOptions bounds a Retry loop. The zero value retries forever with no
// delay, so any operation with real-world side effects must set MaxTries.
type RetryOptions struct {
	// MaxTries is the total number of attempts before the last error is
	// returned. Zero means unbounded.
	MaxTries int

	// WaitBetween is slept between attempts. Zero means retry immediately.
	WaitBetween time.Duration
}

// Retry invokes fn until it succeeds, the attempt budget is exhausted, or the
// context is canceled. The callback receives the previous attempt's error
// (nil on the first call) and the number of failures so far, letting callers
// vary behavior across attempts.
//
// On exhaustion the last error from fn is returned; on context cancellation
// the context's error is returned.
func Retry[T any](ctx context.Context, opts RetryOptions, fn func(lastErr error, fails int) (T, error)) (T, error) {
	var zero T
	var lastErr error
	fails := 0

	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(lastErr, fails)
		if err == nil {
			return result, nil
		}

		fails++
		lastErr = err

		if opts.MaxTries > 0 && fails >= opts.MaxTries {
			return zero, lastErr
		}

		if opts.WaitBetween > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(opts.WaitBetween):
			}
		}
	}
}
