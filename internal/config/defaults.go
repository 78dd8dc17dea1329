package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel            = "info"
	DefaultJSONLog             = false
	DefaultUserAgent           = "ReviewCrawl/1.0 (https://github.com/echo-works/reviewcrawl)"
	DefaultHTTPTimeout         = 30 * time.Second
	DefaultBrowserHeadless     = true
	DefaultMaxRounds           = 60
	DefaultIdleRoundThreshold  = 3
	DefaultScrollSettle        = 1500 * time.Millisecond
	DefaultCollectImages       = true
	DefaultImageConcurrency    = 4
	DefaultMaxImageConcurrency = 16
	DefaultImageRetries        = 3
	DefaultImageRateRPS        = 5.0
	DefaultImageRateBurst      = 10
	DefaultImageCacheMaxBytes  = 64 * 1024 * 1024 // 64MB
	DefaultOutputDir           = "."
)
