package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type contextKey struct{}

type regionKey struct{}
type batchKey struct{}

// Tracker manages token usage recording and persistence.
type Tracker struct {
	mu       sync.Mutex
	data     UsageData
	filePath string
	dirty    bool
}

// NewTracker creates a new usage tracker using the specified workspace
// persistence path.
func NewTracker(workspacePath string) (*Tracker, error) {
	guardDir := filepath.Join(workspacePath, ".clauseguard")
	if err := os.MkdirAll(guardDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .clauseguard dir: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(guardDir, "usage.json"),
		data: UsageData{
			Version: "1.0",
			Aggregate: AggregatedStats{
				ByProvider:  make(map[string]TokenCounts),
				ByModel:     make(map[string]TokenCounts),
				ByRegion:    make(map[string]TokenCounts),
				ByOperation: make(map[string]TokenCounts),
				ByBatch:     make(map[string]TokenCounts),
			},
		},
	}

	// A corrupt or missing file starts the tracker empty.
	_ = t.Load()

	return t, nil
}

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &t.data); err != nil {
		return err
	}

	// Ensure maps are initialized if file was empty/partial
	if t.data.Aggregate.ByProvider == nil {
		t.data.Aggregate.ByProvider = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.ByModel == nil {
		t.data.Aggregate.ByModel = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.ByRegion == nil {
		t.data.Aggregate.ByRegion = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.ByOperation == nil {
		t.data.Aggregate.ByOperation = make(map[string]TokenCounts)
	}
	if t.data.Aggregate.ByBatch == nil {
		t.data.Aggregate.ByBatch = make(map[string]TokenCounts)
	}

	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Track records a new usage event. Region and batch ID are read from the
// context when present (see WithBatchContext).
func (t *Tracker) Track(ctx context.Context, model, provider string, input, output int, operation string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	region := "unknown"
	if val, ok := ctx.Value(regionKey{}).(string); ok && val != "" {
		region = val
	}
	batchID := "unknown"
	if val, ok := ctx.Value(batchKey{}).(string); ok && val != "" {
		batchID = val
	}

	t.data.Aggregate.TotalProject.Add(input, output)

	addToMap(t.data.Aggregate.ByProvider, provider, input, output)
	addToMap(t.data.Aggregate.ByModel, model, input, output)
	addToMap(t.data.Aggregate.ByRegion, region, input, output)
	addToMap(t.data.Aggregate.ByOperation, operation, input, output)
	addToMap(t.data.Aggregate.ByBatch, batchID, input, output)

	// Debounced auto-save
	if !t.dirty {
		t.dirty = true
		time.AfterFunc(5*time.Second, func() {
			t.Save()
			t.mu.Lock()
			t.dirty = false
			t.mu.Unlock()
		})
	}
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByProvider = copyTokenCountsMap(stats.ByProvider)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByRegion = copyTokenCountsMap(stats.ByRegion)
	stats.ByOperation = copyTokenCountsMap(stats.ByOperation)
	stats.ByBatch = copyTokenCountsMap(stats.ByBatch)
	return stats
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, input, output int) {
	entry := m[key]
	entry.Add(input, output)
	m[key] = entry
}

// Context Helpers

// NewContext returns a new context carrying the tracker.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext retrieves the tracker from the context.
func FromContext(ctx context.Context) *Tracker {
	val := ctx.Value(contextKey{})
	if val == nil {
		return nil
	}
	return val.(*Tracker)
}

// WithBatchContext adds batch metadata to the context so tracked calls can
// be attributed to a region and batch run.
func WithBatchContext(ctx context.Context, region, batchID string) context.Context {
	ctx = context.WithValue(ctx, regionKey{}, region)
	ctx = context.WithValue(ctx, batchKey{}, batchID)
	return ctx
}
