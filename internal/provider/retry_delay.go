package provider

import (
	"regexp"
	"strconv"
	"time"
)

// Provider rate-limit messages name a suggested delay in a few known shapes.
// Patterns are tried in order; the first match wins.
var retryDelayPatterns = []*regexp.Regexp{
	// "Please retry in 4.2s" / "retry in 10s"
	regexp.MustCompile(`(?i)retry in ([0-9]+(?:\.[0-9]+)?)s`),
	// "Please retry after 30 seconds"
	regexp.MustCompile(`(?i)retry after ([0-9]+(?:\.[0-9]+)?) seconds?`),
	// structured RetryInfo embedded in the error body: "retryDelay":"14s"
	regexp.MustCompile(`"retryDelay"\s*:\s*"([0-9]+(?:\.[0-9]+)?)s"`),
}

// ParseRetryDelay scans a provider error message for a suggested retry delay.
// Returns (0, false) when no delay can be extracted; extraction never fails
// the caller.
func ParseRetryDelay(message string) (time.Duration, bool) {
	for _, pattern := range retryDelayPatterns {
		m := pattern.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		seconds, err := strconv.ParseFloat(m[1], 64)
		if err != nil || seconds < 0 {
			continue
		}
		return time.Duration(seconds * float64(time.Second)), true
	}
	return 0, false
}
