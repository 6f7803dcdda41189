package provider

import (
	"context"
	"errors"
	"time"

	"clauseguard/internal/config"
	"clauseguard/internal/logging"
)

// Invoker wraps a Client with client-side quota enforcement and bounded
// retry on rate limits. Backoff honors the provider's suggested delay when
// one is present, falling back to capped exponential backoff.
type Invoker struct {
	client  Client
	quota   *QuotaTracker
	retries int
	base    time.Duration
	max     time.Duration
}

// NewInvoker creates an invoker from quota config. quota may be shared
// across invokers targeting the same API key.
func NewInvoker(client Client, quota *QuotaTracker, cfg config.QuotaConfig) *Invoker {
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	base := cfg.BaseBackoff
	if base <= 0 {
		base = 2 * time.Second
	}
	max := cfg.MaxBackoff
	if max < base {
		max = 60 * time.Second
	}
	return &Invoker{
		client:  client,
		quota:   quota,
		retries: retries,
		base:    base,
		max:     max,
	}
}

// Model returns the underlying client's model identifier.
func (inv *Invoker) Model() string {
	return inv.client.Model()
}

// Invoke performs a generation call with quota checks and rate-limit retry.
// It makes at most MaxRetries attempts total; non-rate-limit errors
// propagate immediately without consuming further attempts.
func (inv *Invoker) Invoke(ctx context.Context, prompt string, opts GenerateOptions) (*RawResponse, error) {
	var lastErr error

	for attempt := 0; attempt < inv.retries; attempt++ {
		if attempt > 0 {
			delay := inv.backoffDelay(attempt, lastErr)
			logging.API("Rate limited, attempt %d/%d, backing off %v", attempt+1, inv.retries, delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		// Refuse calls the server would predictably reject. A quota error
		// is not retryable within this invocation.
		if inv.quota != nil {
			if err := inv.quota.Check(); err != nil {
				return nil, err
			}
			inv.quota.Record()
		}

		resp, err := inv.client.Generate(ctx, prompt, opts)
		if err == nil {
			return resp, nil
		}
		if !IsRateLimit(err) {
			return nil, err
		}
		lastErr = err
	}

	logging.Get(logging.CategoryAPI).Error("Rate limit retries exhausted after %d attempts: %v", inv.retries, lastErr)
	return nil, &RetriesExhaustedError{Attempts: inv.retries, Last: lastErr}
}

// backoffDelay picks the wait before retry number `attempt`. The provider's
// suggested delay wins; otherwise exponential backoff capped at max.
func (inv *Invoker) backoffDelay(attempt int, lastErr error) time.Duration {
	var rle *RateLimitError
	if errors.As(lastErr, &rle) && rle.HasSuggestion {
		return rle.SuggestedDelay
	}
	delay := inv.base << uint(attempt-1)
	if delay > inv.max || delay <= 0 {
		delay = inv.max
	}
	return delay
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
