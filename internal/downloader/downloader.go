// internal/downloader/downloader.go
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/echo-works/reviewcrawl/internal/cache"
	"github.com/echo-works/reviewcrawl/internal/ratelimit"
	"github.com/echo-works/reviewcrawl/internal/retry"
)

// maxImageBytes caps a single fetched body. Review photos are served as
// sized thumbnails, anything larger than this is not one of them.
const maxImageBytes = 32 * 1024 * 1024

// Downloader fetches media bodies over HTTP with rate limiting, retry
// and an in-run byte cache so repeated references hit the network once.
type Downloader struct {
	client    *http.Client
	userAgent string
	limiter   ratelimit.RateLimiter
	cache     cache.ByteCache
	retryCfg  retry.Config
	headers   map[string]string
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithRateLimiter sets the per-host rate limiter.
func WithRateLimiter(rl ratelimit.RateLimiter) Option {
	return func(d *Downloader) { d.limiter = rl }
}

// WithCache sets the byte cache consulted before each fetch.
func WithCache(c cache.ByteCache) Option {
	return func(d *Downloader) { d.cache = c }
}

// WithRetryConfig overrides the retry policy for transient failures.
func WithRetryConfig(cfg retry.Config) Option {
	return func(d *Downloader) { d.retryCfg = cfg }
}

// WithHeaders sets extra headers applied to every fetch.
func WithHeaders(h map[string]string) Option {
	return func(d *Downloader) { d.headers = h }
}

// NewDownloader creates a new Downloader instance
func NewDownloader(timeout time.Duration, userAgent string, opts ...Option) *Downloader {
	if userAgent == "" {
		userAgent = "ReviewCrawl/1.0 (https://github.com/echo-works/reviewcrawl)"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	d := &Downloader{
		client:    client,
		userAgent: userAgent,
		retryCfg:  retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FetchBytes retrieves the body at fileURL, retrying transient failures
// per the configured policy. Returns the body and the number of attempts
// actually made.
func (d *Downloader) FetchBytes(ctx context.Context, fileURL string) ([]byte, int, error) {
	if d.cache != nil {
		if data, ok := d.cache.Get(fileURL); ok {
			return data, 0, nil
		}
	}

	attempts := 0
	var body []byte
	err := retry.WithRetry(ctx, d.retryCfg, func() error {
		attempts++
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx, fileURL); err != nil {
				return err
			}
		}
		data, err := d.fetchOnce(ctx, fileURL)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, attempts, err
	}

	if d.cache != nil {
		d.cache.Set(fileURL, body)
	}

	log.Debug().
		Str("url", fileURL).
		Int("bytes", len(body)).
		Int("attempts", attempts).
		Msg("Fetch completed")

	return body, attempts, nil
}

// fetchOnce performs a single GET without retry
func (d *Downloader) fetchOnce(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	for key, value := range d.headers {
		req.Header.Set(key, value)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, retry.NewHTTPError(resp.StatusCode, resp.Status, fileURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("body exceeds %d bytes: %s", maxImageBytes, fileURL)
	}

	return body, nil
}
