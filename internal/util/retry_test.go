package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoffStopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	_, err := RetryWithBackoff(context.Background(), 5, time.Millisecond, 10*time.Millisecond,
		func(err error) bool { return !errors.Is(err, permanent) },
		func(context.Context) (int, error) {
			calls++
			return 0, permanent
		})
	if !errors.Is(err, permanent) {
		t.Errorf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestRetryWithBackoffRetriesTransient(t *testing.T) {
	calls := 0
	result, err := RetryWithBackoff(context.Background(), 4, time.Millisecond, 5*time.Millisecond, nil,
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "done", nil
		})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != "done" {
		t.Errorf("expected done, got %q", result)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := RetryWithBackoff(ctx, 5, time.Millisecond, 5*time.Millisecond, nil,
		func(context.Context) (int, error) {
			calls++
			return 0, errors.New("boom")
		})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no calls after cancel, got %d", calls)
	}
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, 2*time.Millisecond, nil,
		func(context.Context) (int, error) {
			calls++
			return 0, errors.New("always")
		})
	if err == nil || err.Error() != "always" {
		t.Errorf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}
