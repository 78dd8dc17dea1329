// internal/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func quickConfig(attempts int) Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestWithRetry_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickConfig(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestWithRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickConfig(3), func() error {
		calls++
		if calls < 3 {
			return NewHTTPError(http.StatusServiceUnavailable, "503 Service Unavailable", "")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected recovery, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickConfig(3), func() error {
		calls++
		return NewHTTPError(http.StatusInternalServerError, "500 Internal Server Error", "https://x.test")
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Error should report the attempt count: %v", err)
	}
	var httpErr HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Wrapped error should expose the HTTP failure: %v", err)
	}
}

func TestWithRetry_PermanentStatusNotRetried(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), quickConfig(3), func() error {
		calls++
		return NewHTTPError(http.StatusNotFound, "404 Not Found", "")
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("404 must not be retried, got %d calls", calls)
	}
}

func TestWithRetry_CancelledDuringBackoff(t *testing.T) {
	cfg := quickConfig(5)
	cfg.InitialBackoff = time.Minute
	cfg.MaxBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := WithRetry(ctx, cfg, func() error {
		calls++
		return NewHTTPError(http.StatusBadGateway, "502 Bad Gateway", "")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Cancellation should stop further attempts, got %d calls", calls)
	}
}

func TestShouldRetry(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable status", NewHTTPError(429, "Too Many Requests", ""), true},
		{"client error", NewHTTPError(403, "Forbidden", ""), false},
		{"deadline", context.DeadlineExceeded, true},
		{"opaque error", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldRetry(tc.err, cfg); got != tc.want {
				t.Errorf("shouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestCalculateBackoff_CappedAtMax(t *testing.T) {
	cfg := Config{InitialBackoff: time.Second, MaxBackoff: 4 * time.Second, Multiplier: 2.0}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for attempt, expected := range want {
		if got := calculateBackoff(attempt, cfg); got != expected {
			t.Errorf("Attempt %d: backoff %v, want %v", attempt, got, expected)
		}
	}
}
