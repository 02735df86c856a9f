package llm

import (
	"sync"
	"time"
)

// RetryConfig holds the retry policy applied per endpoint. The develop loop
// makes a single Complete call per turn; any retrying happens here, inside
// the client, under an explicit, configurable policy. MaxAttempts of 1
// disables retries entirely.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per endpoint.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

var (
	defaultRetryMu sync.RWMutex
	defaultRetry   = RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
)

// DefaultRetryConfig returns the retry policy applied to clients that don't
// configure one explicitly.
func DefaultRetryConfig() RetryConfig {
	defaultRetryMu.RLock()
	defer defaultRetryMu.RUnlock()
	return defaultRetry
}

// SetDefaultRetryConfig replaces the process-wide retry policy. Call during
// startup, before clients are created. Invalid fields keep their current
// values.
func SetDefaultRetryConfig(cfg RetryConfig) {
	defaultRetryMu.Lock()
	defer defaultRetryMu.Unlock()

	if cfg.MaxAttempts >= 1 {
		defaultRetry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BackoffBase > 0 {
		defaultRetry.BackoffBase = cfg.BackoffBase
	}
	if cfg.BackoffMultiplier >= 1 {
		defaultRetry.BackoffMultiplier = cfg.BackoffMultiplier
	}
	if cfg.MaxBackoff > 0 {
		defaultRetry.MaxBackoff = cfg.MaxBackoff
	}
}
