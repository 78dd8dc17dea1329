// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/echo-works/reviewcrawl/internal/cache"
	"github.com/echo-works/reviewcrawl/internal/config"
	"github.com/echo-works/reviewcrawl/internal/downloader"
	"github.com/echo-works/reviewcrawl/internal/ratelimit"
	"github.com/echo-works/reviewcrawl/internal/retry"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	ImageCache  cache.ByteCache
	RateLimiter ratelimit.RateLimiter
	Downloader  *downloader.Downloader
	Collector   *downloader.Collector
	startTime   time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Creates the in-memory byte cache for fetched images
//   - Creates the rate limiter for domain-based request throttling
//   - Builds the downloader and the image collector on top of them
//
// If any step fails, an error is returned and no resources are allocated.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	// Initialize logger based on config
	logLevel := zerolog.ErrorLevel // default: suppress non-verbose info logs
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	// Treat "info" as non-verbose (don't display info logs unless -v is used)
	default:
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		// JSON logs to stderr
		logWriter = os.Stderr
	} else {
		// Human-friendly console output otherwise
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	// Create image byte cache
	imageCache := cache.NewMemoryCache(cfg.ImageCacheMaxBytes)
	logger.Debug().
		Int64("max_size_bytes", cfg.ImageCacheMaxBytes).
		Msg("Image cache initialized")

	// Create rate limiter
	rateLimiter := ratelimit.NewDomainLimiter(cfg.ImageRateRPS, cfg.ImageRateBurst)
	logger.Debug().
		Float64("rps", cfg.ImageRateRPS).
		Int("burst", cfg.ImageRateBurst).
		Msg("Rate limiter initialized")

	// Create downloader and collector
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.ImageRetries
	dl := downloader.NewDownloader(cfg.HTTPTimeout, cfg.UserAgent,
		downloader.WithCache(imageCache),
		downloader.WithRateLimiter(rateLimiter),
		downloader.WithRetryConfig(retryCfg),
	)
	collector := downloader.NewCollector(dl)
	logger.Debug().
		Dur("timeout", cfg.HTTPTimeout).
		Int("retries", cfg.ImageRetries).
		Msg("Downloader initialized")

	app := &Application{
		Config:      cfg,
		Logger:      &logger,
		ImageCache:  imageCache,
		RateLimiter: rateLimiter,
		Downloader:  dl,
		Collector:   collector,
		startTime:   time.Now(),
	}

	logger.Info().Msg("Application initialized successfully")
	return app, nil
}

// Close gracefully shuts down the application and all its resources.
// Any errors during shutdown are logged but do not prevent other shutdown steps.
func (a *Application) Close(ctx context.Context) error {
	a.Logger.Info().Msg("Shutting down application")

	if a.ImageCache != nil {
		a.ImageCache.Clear()
	}

	uptime := time.Since(a.startTime)
	a.Logger.Info().Dur("uptime", uptime).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
