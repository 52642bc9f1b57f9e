package pipeline

import (
	"testing"
	"time"
)

func TestStatsSnapshotPercentiles(t *testing.T) {
	stats := NewStats(time.Hour)
	for i, ms := range []int{100, 200, 300, 400, 500} {
		stats.RecordDocument(time.Duration(ms)*time.Millisecond, i+1, 10*(i+1), i == 4)
	}

	snap := stats.Snapshot()
	if snap.Documents != 5 {
		t.Fatalf("expected documents=5, got %d", snap.Documents)
	}
	if snap.Failed != 1 {
		t.Fatalf("expected failed=1, got %d", snap.Failed)
	}
	if snap.Chunks != 15 || snap.Tokens != 150 {
		t.Fatalf("expected chunks=15 tokens=150, got %d/%d", snap.Chunks, snap.Tokens)
	}
	if snap.AvgChunks != 3 {
		t.Fatalf("expected avg chunks=3, got %f", snap.AvgChunks)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
	if snap.MaxMs != 500 {
		t.Fatalf("expected max=500, got %d", snap.MaxMs)
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	stats := NewStats(10 * time.Minute)
	stats.now = func() time.Time { return now }

	stats.RecordDocument(time.Second, 1, 1, false)
	now = now.Add(11 * time.Minute)

	if snap := stats.Snapshot(); snap.Documents != 0 {
		t.Fatalf("expected documents=0 after prune, got %d", snap.Documents)
	}

	stats.RecordDocument(2*time.Second, 2, 2, false)
	snap := stats.Snapshot()
	if snap.Documents != 1 || snap.MaxMs != 2000 {
		t.Fatalf("expected one fresh sample of 2000ms, got %+v", snap)
	}
}

func TestStatsClampsNegativeDuration(t *testing.T) {
	stats := NewStats(time.Hour)
	stats.RecordDocument(-time.Second, 0, 0, false)
	if snap := stats.Snapshot(); snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got %d", snap.MaxMs)
	}
}

func TestStatsEmpty(t *testing.T) {
	if snap := NewStats(0).Snapshot(); snap != (StatsSnapshot{}) {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}
