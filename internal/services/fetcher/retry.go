package fetcher

import (
	"time"

	"github.com/ternarybob/scriba/internal/common"
)

// RetryConfig defines retry behavior for transient API failures.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3)
	MaxRetries int

	// InitialBackoff is the initial wait time before first retry (default: 2s)
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait time between retries (default: 30s)
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to backoff on each retry (default: 2.0)
	BackoffMultiplier float64
}

// Default retry constants for the notes API.
const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// NewDefaultRetryConfig returns a RetryConfig with sensible defaults.
func NewDefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// RetryConfigFromAPI builds a RetryConfig from API configuration,
// falling back to defaults for missing or invalid values.
func RetryConfigFromAPI(api common.APIConfig) RetryConfig {
	cfg := NewDefaultRetryConfig()

	if api.MaxRetries > 0 {
		cfg.MaxRetries = api.MaxRetries
	}
	if d, err := time.ParseDuration(api.InitialBackoff); err == nil && d > 0 {
		cfg.InitialBackoff = d
	}
	if d, err := time.ParseDuration(api.MaxBackoff); err == nil && d > 0 {
		cfg.MaxBackoff = d
	}

	return cfg
}

// CalculateBackoff computes the backoff duration for a given attempt.
// The first retry waits InitialBackoff; each subsequent retry multiplies
// the wait, capped at MaxBackoff.
func (c RetryConfig) CalculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(c.InitialBackoff) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}
