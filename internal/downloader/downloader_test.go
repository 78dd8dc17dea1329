// internal/downloader/downloader_test.go
package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/echo-works/reviewcrawl/internal/cache"
	"github.com/echo-works/reviewcrawl/internal/retry"
)

func fastRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:          attempts,
		InitialBackoff:       time.Millisecond,
		MaxBackoff:           5 * time.Millisecond,
		Multiplier:           2.0,
		RetryableStatusCodes: []int{429, 500, 502, 503, 504},
	}
}

func TestDownloader_FetchBytes_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	d := NewDownloader(5*time.Second, "", WithRetryConfig(fastRetry(3)))

	body, attempts, err := d.FetchBytes(context.Background(), server.URL+"/photo.jpg")
	if err != nil {
		t.Fatalf("FetchBytes failed: %v", err)
	}
	if string(body) != "image-bytes" {
		t.Errorf("Unexpected body: %q", body)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDownloader_FetchBytes_RetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("eventually"))
	}))
	defer server.Close()

	d := NewDownloader(5*time.Second, "", WithRetryConfig(fastRetry(3)))

	body, attempts, err := d.FetchBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchBytes failed after transient errors: %v", err)
	}
	if string(body) != "eventually" {
		t.Errorf("Unexpected body: %q", body)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDownloader_FetchBytes_GivesUpAfterRetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	d := NewDownloader(5*time.Second, "", WithRetryConfig(fastRetry(3)))

	_, attempts, err := d.FetchBytes(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after retries exhausted")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDownloader_FetchBytes_NotFoundNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDownloader(5*time.Second, "", WithRetryConfig(fastRetry(3)))

	_, _, err := d.FetchBytes(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("404 must not be retried, server saw %d requests", got)
	}
}

func TestDownloader_FetchBytes_CacheHitSkipsNetwork(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("cached-body"))
	}))
	defer server.Close()

	c := cache.NewMemoryCache(1024 * 1024)
	d := NewDownloader(5*time.Second, "", WithCache(c), WithRetryConfig(fastRetry(3)))

	if _, _, err := d.FetchBytes(context.Background(), server.URL); err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	body, attempts, err := d.FetchBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}

	if string(body) != "cached-body" {
		t.Errorf("Unexpected cached body: %q", body)
	}
	if attempts != 0 {
		t.Errorf("Cache hit must report 0 attempts, got %d", attempts)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected a single network request, server saw %d", got)
	}
}

func TestDownloader_FetchBytes_SendsHeaders(t *testing.T) {
	var gotAgent, gotReferer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := NewDownloader(5*time.Second, "TestAgent/1.0",
		WithHeaders(map[string]string{"Referer": "https://maps.example.com/"}),
		WithRetryConfig(fastRetry(1)),
	)

	if _, _, err := d.FetchBytes(context.Background(), server.URL); err != nil {
		t.Fatalf("FetchBytes failed: %v", err)
	}
	if gotAgent != "TestAgent/1.0" {
		t.Errorf("Expected custom user agent, got %q", gotAgent)
	}
	if gotReferer != "https://maps.example.com/" {
		t.Errorf("Expected custom header forwarded, got %q", gotReferer)
	}
}
