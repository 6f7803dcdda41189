package provider

import (
	"sync"
	"time"

	"clauseguard/internal/config"
	"clauseguard/internal/logging"
)

// QuotaTracker tracks client-side request quotas: a sliding 60-second window
// for the per-minute limit and a rolling 24-hour window for the per-day
// limit. It never observes server-side state; it exists to refuse calls that
// would predictably be rejected.
type QuotaTracker struct {
	mu      sync.Mutex
	rpm     int
	rpd     int
	minute  []time.Time
	day     []time.Time
	nowFunc func() time.Time
}

// NewQuotaTracker creates a tracker from quota config. A limit of 0 disables
// that window's check.
func NewQuotaTracker(cfg config.QuotaConfig) *QuotaTracker {
	return &QuotaTracker{
		rpm:     cfg.RequestsPerMinute,
		rpd:     cfg.RequestsPerDay,
		nowFunc: time.Now,
	}
}

// Check reports whether a request may proceed right now. Returns a
// *QuotaError naming the exhausted window otherwise.
func (t *QuotaTracker) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	t.prune(now)

	if t.rpm > 0 && len(t.minute) >= t.rpm {
		resetIn := t.minute[0].Add(time.Minute).Sub(now)
		logging.API("Quota check failed: %d/%d requests in last minute", len(t.minute), t.rpm)
		return &QuotaError{Scope: ScopeMinute, Limit: t.rpm, ResetIn: resetIn}
	}
	if t.rpd > 0 && len(t.day) >= t.rpd {
		resetIn := t.day[0].Add(24 * time.Hour).Sub(now)
		logging.API("Quota check failed: %d/%d requests in last 24h", len(t.day), t.rpd)
		return &QuotaError{Scope: ScopeDay, Limit: t.rpd, ResetIn: resetIn}
	}
	return nil
}

// Record notes that a request was sent. Call once per actual network call,
// including retries.
func (t *QuotaTracker) Record() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	t.prune(now)
	t.minute = append(t.minute, now)
	t.day = append(t.day, now)
}

// Remaining returns how many requests are left in each window.
func (t *QuotaTracker) Remaining() (perMinute, perDay int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(t.nowFunc())
	perMinute, perDay = -1, -1
	if t.rpm > 0 {
		perMinute = t.rpm - len(t.minute)
	}
	if t.rpd > 0 {
		perDay = t.rpd - len(t.day)
	}
	return perMinute, perDay
}

// prune drops timestamps outside both windows. Caller holds the lock.
func (t *QuotaTracker) prune(now time.Time) {
	minuteCutoff := now.Add(-time.Minute)
	i := 0
	for i < len(t.minute) && !t.minute[i].After(minuteCutoff) {
		i++
	}
	t.minute = t.minute[i:]

	dayCutoff := now.Add(-24 * time.Hour)
	i = 0
	for i < len(t.day) && !t.day[i].After(dayCutoff) {
		i++
	}
	t.day = t.day[i:]
}
