package config

import (
	"fmt"
	"time"
)

// QuotaConfig controls client-side rate limiting and retry behavior.
type QuotaConfig struct {
	// RequestsPerMinute over a sliding 60s window. 0 disables the check.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// RequestsPerDay over a rolling 24h window. 0 disables the check.
	RequestsPerDay int `json:"requests_per_day" yaml:"requests_per_day"`

	// MaxRetries is the total number of attempts made for a rate-limited
	// call before giving up.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BaseBackoff is the first exponential backoff delay when the provider
	// does not suggest one.
	BaseBackoff time.Duration `json:"base_backoff" yaml:"base_backoff"`

	// MaxBackoff caps the exponential backoff delay.
	MaxBackoff time.Duration `json:"max_backoff" yaml:"max_backoff"`
}

// DefaultQuotaConfig returns free-tier friendly defaults.
func DefaultQuotaConfig() QuotaConfig {
	return QuotaConfig{
		RequestsPerMinute: 10,
		RequestsPerDay:    250,
		MaxRetries:        3,
		BaseBackoff:       2 * time.Second,
		MaxBackoff:        60 * time.Second,
	}
}

// Validate checks quota settings.
func (q QuotaConfig) Validate() error {
	if q.RequestsPerMinute < 0 || q.RequestsPerDay < 0 {
		return fmt.Errorf("request limits must be non-negative")
	}
	if q.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", q.MaxRetries)
	}
	if q.BaseBackoff <= 0 || q.MaxBackoff < q.BaseBackoff {
		return fmt.Errorf("invalid backoff range [%v, %v]", q.BaseBackoff, q.MaxBackoff)
	}
	return nil
}
