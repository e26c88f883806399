package services

import (
	"context"
	"errors"
	"time"
)

const defaultMaxAttempts = 3

// retryable reports whether an error is worth another attempt.
//
// Provider errors retry only on 429 and 5xx; other 4xx responses indicate a
// bad request that repeating cannot fix. Anything that is not a
// [*CatalogError] is treated as a transport failure and retried.
func retryable(err error) bool {
	var catErr *CatalogError
	if errors.As(err, &catErr) {
		return catErr.Temporary()
	}
	return true
}

// withRetry invokes fn up to maxAttempts times, waiting baseDelay*(i+1)
// between attempt i and i+1 (linear backoff). The last error propagates
// unchanged once attempts are exhausted or the error is not retryable.
func withRetry[T any](ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !retryable(err) || i == maxAttempts-1 {
			break
		}

		delay := baseDelay * time.Duration(i+1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}
