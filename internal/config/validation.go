package config

import "fmt"

func validate(c *Config) error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.MaxRounds <= 0 {
		return fmt.Errorf("max rounds must be > 0")
	}
	if c.IdleRoundThreshold <= 0 || c.IdleRoundThreshold > c.MaxRounds {
		return fmt.Errorf("idle round threshold must be between 1 and max rounds (%d)", c.MaxRounds)
	}
	if c.ImageConcurrency <= 0 || c.ImageConcurrency > DefaultMaxImageConcurrency {
		return fmt.Errorf("image concurrency must be between 1 and %d", DefaultMaxImageConcurrency)
	}
	if c.ImageRetries <= 0 {
		return fmt.Errorf("image retries must be > 0")
	}
	if c.ImageCacheMaxBytes <= 0 {
		return fmt.Errorf("image cache max size must be > 0")
	}
	return nil
}
