package util

import (
	"context"
	"time"
)

// RetryWithBackoff calls fn up to maxTries times, sleeping between attempts
// with exponential backoff starting at baseDelay and capped at maxDelay.
// After each failed attempt, shouldRetry decides whether the error is worth
// another try; a false answer returns that error immediately. A nil
// shouldRetry retries every error.
//
// An error that merely wraps a deadline is still handed to shouldRetry:
// fn may run under its own per-attempt timeout, and tripping it should
// not end the outer loop. Cancellation of ctx itself always stops the
// loop.
func RetryWithBackoff[T any](ctx context.Context, maxTries int, baseDelay, maxDelay time.Duration, shouldRetry func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	delay := baseDelay
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return zero, err
		}
		lastErr = err
		if i == maxTries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if maxDelay > 0 && delay > maxDelay {
			delay = maxDelay
		}
	}
	return zero, lastErr
}
