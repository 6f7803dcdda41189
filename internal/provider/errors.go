package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// QuotaScope identifies which client-side quota window was exhausted.
type QuotaScope string

const (
	ScopeMinute QuotaScope = "minute"
	ScopeDay    QuotaScope = "day"
)

// QuotaError is returned before any network call when the client-side quota
// tracker predicts the request would exceed a limit.
type QuotaError struct {
	Scope   QuotaScope
	Limit   int
	ResetIn time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("client-side quota exhausted: %d requests per %s, resets in %v",
		e.Limit, e.Scope, e.ResetIn.Round(time.Second))
}

// RateLimitError wraps a provider 429 (or equivalent) response. SuggestedDelay
// is set when the provider's error message named a retry delay.
type RateLimitError struct {
	StatusCode     int
	Message        string
	SuggestedDelay time.Duration
	HasSuggestion  bool
}

func (e *RateLimitError) Error() string {
	if e.HasSuggestion {
		return fmt.Sprintf("rate limited (status %d, retry in %v): %s", e.StatusCode, e.SuggestedDelay, e.Message)
	}
	return fmt.Sprintf("rate limited (status %d): %s", e.StatusCode, e.Message)
}

// RetriesExhaustedError is returned by the invoker when every attempt was
// rate limited.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

// ProviderError is a non-rate-limit API failure.
type ProviderError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("provider error (status %d, %s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimit reports whether err represents a provider rate limit. Covers
// HTTP 429, RESOURCE_EXHAUSTED status, and textual rate-limit markers -
// providers are not consistent about how they surface it.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}

	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.StatusCode == http.StatusTooManyRequests {
			return true
		}
		if strings.EqualFold(pe.Status, "RESOURCE_EXHAUSTED") {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "quota")
}
