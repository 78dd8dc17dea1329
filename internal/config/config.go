package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Browser
	Headless   bool
	ChromePath string
	Proxy      string
	UserAgent  string

	// Loading
	MaxRounds          int
	IdleRoundThreshold int
	ScrollSettle       time.Duration

	// Images
	CollectImages      bool
	HTTPTimeout        time.Duration
	ImageConcurrency   int
	ImageRetries       int
	ImageRateRPS       float64
	ImageRateBurst     int
	ImageCacheMaxBytes int64

	// Output
	OutputDir  string
	DebugTrace bool
	ZipBundle  bool
}

// Load builds a Config by combining defaults, environment variables, and CLI flags.
// Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:           DefaultLogLevel,
		JSONLog:            DefaultJSONLog,
		Headless:           DefaultBrowserHeadless,
		UserAgent:          DefaultUserAgent,
		MaxRounds:          DefaultMaxRounds,
		IdleRoundThreshold: DefaultIdleRoundThreshold,
		ScrollSettle:       DefaultScrollSettle,
		CollectImages:      DefaultCollectImages,
		HTTPTimeout:        DefaultHTTPTimeout,
		ImageConcurrency:   DefaultImageConcurrency,
		ImageRetries:       DefaultImageRetries,
		ImageRateRPS:       DefaultImageRateRPS,
		ImageRateBurst:     DefaultImageRateBurst,
		ImageCacheMaxBytes: DefaultImageCacheMaxBytes,
		OutputDir:          DefaultOutputDir,
	}

	// Override from environment variables (simple helpers)
	if v := os.Getenv("REVIEWCRAWL_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("REVIEWCRAWL_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("REVIEWCRAWL_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("REVIEWCRAWL_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("REVIEWCRAWL_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxRounds = n
		}
	}

	// Read CLI flags if provided
	if cmd != nil {
		if f := cmd.Flags().Lookup("user-agent"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.UserAgent = s
			}
		}
		if f := cmd.Flags().Lookup("proxy"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.Proxy = s
			}
		}
		if f := cmd.Flags().Lookup("chrome-path"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.ChromePath = s
			}
		}
		if f := cmd.Flags().Lookup("timeout"); f != nil {
			if s := f.Value.String(); s != "" {
				if d, err := time.ParseDuration(s); err == nil {
					cfg.HTTPTimeout = d
				}
			}
		}
		if f := cmd.Flags().Lookup("output"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.OutputDir = s
			}
		}
		if f := cmd.Flags().Lookup("max-rounds"); f != nil && f.Changed {
			if n, err := strconv.Atoi(f.Value.String()); err == nil {
				cfg.MaxRounds = n
			}
		}
		if f := cmd.Flags().Lookup("idle-rounds"); f != nil && f.Changed {
			if n, err := strconv.Atoi(f.Value.String()); err == nil {
				cfg.IdleRoundThreshold = n
			}
		}
		if f := cmd.Flags().Lookup("settle"); f != nil && f.Changed {
			if d, err := time.ParseDuration(f.Value.String()); err == nil {
				cfg.ScrollSettle = d
			}
		}
		if f := cmd.Flags().Lookup("no-images"); f != nil {
			if f.Value.String() == "true" {
				cfg.CollectImages = false
			}
		}
		if f := cmd.Flags().Lookup("no-headless"); f != nil {
			if f.Value.String() == "true" {
				cfg.Headless = false
			}
		}
		if f := cmd.Flags().Lookup("trace"); f != nil {
			if f.Value.String() == "true" {
				cfg.DebugTrace = true
			}
		}
		if f := cmd.Flags().Lookup("zip"); f != nil {
			if f.Value.String() == "true" {
				cfg.ZipBundle = true
			}
		}
		if f := cmd.Flags().Lookup("json"); f != nil {
			if f.Value.String() == "true" {
				cfg.JSONLog = true
			}
		}
		if f := cmd.Flags().Lookup("verbose"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "debug"
			}
		}
		if f := cmd.Flags().Lookup("quiet"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "error"
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
