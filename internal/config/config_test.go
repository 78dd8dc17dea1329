package config

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load(nil) failed: %v", err)
	}

	if cfg.MaxRounds != DefaultMaxRounds {
		t.Errorf("MaxRounds = %d, want %d", cfg.MaxRounds, DefaultMaxRounds)
	}
	if cfg.IdleRoundThreshold != DefaultIdleRoundThreshold {
		t.Errorf("IdleRoundThreshold = %d, want %d", cfg.IdleRoundThreshold, DefaultIdleRoundThreshold)
	}
	if !cfg.Headless {
		t.Error("Headless should default to true")
	}
	if !cfg.CollectImages {
		t.Error("CollectImages should default to true")
	}
	if cfg.ScrollSettle != DefaultScrollSettle {
		t.Errorf("ScrollSettle = %v, want %v", cfg.ScrollSettle, DefaultScrollSettle)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REVIEWCRAWL_USER_AGENT", "EnvAgent/2.0")
	t.Setenv("REVIEWCRAWL_OUTPUT_DIR", "/tmp/out")
	t.Setenv("REVIEWCRAWL_MAX_ROUNDS", "25")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.UserAgent != "EnvAgent/2.0" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.OutputDir != "/tmp/out" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.MaxRounds != 25 {
		t.Errorf("MaxRounds = %d", cfg.MaxRounds)
	}
}

func TestLoad_FlagOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	cmd.Flags().Int("max-rounds", DefaultMaxRounds, "")
	cmd.Flags().Int("idle-rounds", DefaultIdleRoundThreshold, "")
	cmd.Flags().Bool("no-images", false, "")
	cmd.Flags().Bool("trace", false, "")
	// Merge persistent flags into the command's flag set, as execution would.
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}

	if err := cmd.Flags().Set("max-rounds", "10"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("no-images", "true"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("trace", "true"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("timeout", "45s"); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxRounds != 10 {
		t.Errorf("MaxRounds = %d, want 10", cfg.MaxRounds)
	}
	if cfg.IdleRoundThreshold != DefaultIdleRoundThreshold {
		t.Errorf("Untouched flag should keep the default, got %d", cfg.IdleRoundThreshold)
	}
	if cfg.CollectImages {
		t.Error("no-images flag should disable image collection")
	}
	if !cfg.DebugTrace {
		t.Error("trace flag should enable the debug trace")
	}
	if cfg.HTTPTimeout != 45*time.Second {
		t.Errorf("HTTPTimeout = %v, want 45s", cfg.HTTPTimeout)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			HTTPTimeout:        30 * time.Second,
			MaxRounds:          60,
			IdleRoundThreshold: 3,
			ImageConcurrency:   4,
			ImageRetries:       3,
			ImageCacheMaxBytes: 1 << 20,
		}
	}

	if err := validate(base()); err != nil {
		t.Fatalf("Baseline config should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"zero max rounds", func(c *Config) { c.MaxRounds = 0 }},
		{"idle above max", func(c *Config) { c.IdleRoundThreshold = c.MaxRounds + 1 }},
		{"zero idle", func(c *Config) { c.IdleRoundThreshold = 0 }},
		{"concurrency too high", func(c *Config) { c.ImageConcurrency = DefaultMaxImageConcurrency + 1 }},
		{"zero retries", func(c *Config) { c.ImageRetries = 0 }},
		{"zero cache", func(c *Config) { c.ImageCacheMaxBytes = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}
