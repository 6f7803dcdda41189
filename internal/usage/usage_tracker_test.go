package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	// Avoid background autosave during the test (debounce uses AfterFunc).
	tracker.dirty = true

	ctx := WithBatchContext(context.Background(), "eu", "batch_1")
	tracker.Track(ctx, "gemini-2.5-flash", "gemini", 10, 5, "batch_analysis")
	tracker.Track(ctx, "gemini-2.5-flash", "gemini", 2, 3, "batch_analysis")

	stats := tracker.Stats()
	if stats.TotalProject.Input != 12 || stats.TotalProject.Output != 8 || stats.TotalProject.Total != 20 {
		t.Fatalf("TotalProject=%+v, want input=12 output=8 total=20", stats.TotalProject)
	}
	if got := stats.ByProvider["gemini"]; got.Total != 20 {
		t.Fatalf("ByProvider[gemini]=%+v, want total=20", got)
	}
	if got := stats.ByModel["gemini-2.5-flash"]; got.Total != 20 {
		t.Fatalf("ByModel[gemini-2.5-flash]=%+v, want total=20", got)
	}
	if got := stats.ByRegion["eu"]; got.Total != 20 {
		t.Fatalf("ByRegion[eu]=%+v, want total=20", got)
	}
	if got := stats.ByOperation["batch_analysis"]; got.Total != 20 {
		t.Fatalf("ByOperation[batch_analysis]=%+v, want total=20", got)
	}
	if got := stats.ByBatch["batch_1"]; got.Total != 20 {
		t.Fatalf("ByBatch[batch_1]=%+v, want total=20", got)
	}

	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws, ".clauseguard", "usage.json"))
	if err != nil {
		t.Fatalf("read usage.json: %v", err)
	}
	var persisted UsageData
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal usage.json: %v", err)
	}
	if persisted.Aggregate.TotalProject.Total != 20 {
		t.Fatalf("persisted total=%d, want 20", persisted.Aggregate.TotalProject.Total)
	}
}

func TestTracker_UntaggedContextDefaults(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	tracker.dirty = true

	tracker.Track(context.Background(), "gemini-2.5-flash", "gemini", 1, 1, "classification")

	stats := tracker.Stats()
	if got := stats.ByRegion["unknown"]; got.Total != 2 {
		t.Fatalf("ByRegion[unknown]=%+v, want total=2", got)
	}
	if got := stats.ByBatch["unknown"]; got.Total != 2 {
		t.Fatalf("ByBatch[unknown]=%+v, want total=2", got)
	}
}

func TestTracker_LoadMergesExistingFile(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	tracker.dirty = true
	tracker.Track(context.Background(), "gemini-2.5-flash", "gemini", 4, 6, "batch_analysis")
	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker (reload): %v", err)
	}
	if got := reloaded.Stats().TotalProject.Total; got != 10 {
		t.Fatalf("reloaded total=%d, want 10", got)
	}
}

func TestTracker_ContextHelpers(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	ctx := NewContext(context.Background(), tracker)
	if got := FromContext(ctx); got != tracker {
		t.Fatalf("FromContext mismatch")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("FromContext on empty context should return nil")
	}
}
