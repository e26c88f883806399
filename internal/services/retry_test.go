package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestWithRetry(t *testing.T) {
	t.Run("succeeds on first attempt", func(t *testing.T) {
		calls := 0
		result, err := withRetry(context.Background(), 3, time.Millisecond, func(ctx context.Context) (string, error) {
			calls++
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "ok" || calls != 1 {
			t.Errorf("result = %q after %d calls", result, calls)
		}
	})

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		result, err := withRetry(context.Background(), 3, time.Millisecond, func(ctx context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", &CatalogError{StatusCode: http.StatusTooManyRequests}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "ok" {
			t.Errorf("result = %q", result)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("linear backoff between attempts", func(t *testing.T) {
		base := 20 * time.Millisecond
		start := time.Now()
		_, err := withRetry(context.Background(), 3, base, func(ctx context.Context) (int, error) {
			return 0, &CatalogError{StatusCode: http.StatusInternalServerError}
		})
		elapsed := time.Since(start)

		if err == nil {
			t.Fatal("expected error after exhausting attempts")
		}
		// Two waits: base*1 + base*2
		if min := 3 * base; elapsed < min {
			t.Errorf("elapsed %v, want at least %v", elapsed, min)
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), 3, time.Millisecond, func(ctx context.Context) (int, error) {
			calls++
			return 0, &CatalogError{StatusCode: http.StatusNotFound, Message: "no such artist"}
		})

		var catErr *CatalogError
		if !errors.As(err, &catErr) || catErr.StatusCode != http.StatusNotFound {
			t.Fatalf("expected the 404 to propagate unchanged, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call for a non-retryable error, got %d", calls)
		}
	})

	t.Run("retries transport errors", func(t *testing.T) {
		calls := 0
		_, err := withRetry(context.Background(), 2, time.Millisecond, func(ctx context.Context) (int, error) {
			calls++
			return 0, fmt.Errorf("connection reset")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("last error propagates unchanged", func(t *testing.T) {
		sentinel := &CatalogError{StatusCode: http.StatusServiceUnavailable, Message: "down"}
		_, err := withRetry(context.Background(), 2, time.Millisecond, func(ctx context.Context) (int, error) {
			return 0, sentinel
		})
		var catErr *CatalogError
		if !errors.As(err, &catErr) || catErr != sentinel {
			t.Errorf("expected the original error value, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		_, err := withRetry(ctx, 5, time.Second, func(ctx context.Context) (int, error) {
			calls++
			return 0, &CatalogError{StatusCode: http.StatusTooManyRequests}
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call before cancellation, got %d", calls)
		}
	})

	t.Run("zero attempts falls back to default", func(t *testing.T) {
		calls := 0
		_, _ = withRetry(context.Background(), 0, time.Millisecond, func(ctx context.Context) (int, error) {
			calls++
			return 0, &CatalogError{StatusCode: http.StatusInternalServerError}
		})
		if calls != defaultMaxAttempts {
			t.Errorf("expected %d calls, got %d", defaultMaxAttempts, calls)
		}
	})
}

func TestCatalogErrorTemporary(t *testing.T) {
	tests := []struct {
		status    int
		temporary bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		err := &CatalogError{StatusCode: tt.status}
		if err.Temporary() != tt.temporary {
			t.Errorf("Temporary() for status %d = %v, want %v", tt.status, err.Temporary(), tt.temporary)
		}
	}
}
