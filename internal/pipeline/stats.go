package pipeline

import (
	"slices"
	"sync"
	"time"
)

type docSample struct {
	at       time.Time
	duration time.Duration
	chunks   int
	tokens   int
	failed   bool
}

// StatsSnapshot aggregates the documents processed within the window.
type StatsSnapshot struct {
	Documents   int     `json:"documents"`
	Failed      int     `json:"failed"`
	Chunks      int     `json:"chunks"`
	Tokens      int     `json:"tokens"`
	AvgChunks   float64 `json:"avg_chunks"`
	AvgMs       float64 `json:"avg_ms"`
	P50Ms       float64 `json:"p50_ms"`
	P95Ms       float64 `json:"p95_ms"`
	MaxMs       int64   `json:"max_ms"`
	WindowStart string  `json:"window_start,omitempty"`
}

// Stats keeps a rolling window of per-document processing results.
type Stats struct {
	mu      sync.Mutex
	samples []docSample
	window  time.Duration
	now     func() time.Time
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{
		samples: make([]docSample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// RecordDocument records a processed document. chunks and tokens are the
// totals produced for it; failed marks documents that did not complete.
func (s *Stats) RecordDocument(d time.Duration, chunks, tokens int, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, docSample{
		at:       now,
		duration: max(d, 0),
		chunks:   chunks,
		tokens:   tokens,
		failed:   failed,
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	snap := StatsSnapshot{
		Documents:   len(s.samples),
		WindowStart: s.samples[0].at.UTC().Format(time.RFC3339),
	}
	ms := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		v := sm.duration.Milliseconds()
		ms = append(ms, v)
		sum += v
		snap.Chunks += sm.chunks
		snap.Tokens += sm.tokens
		if sm.failed {
			snap.Failed++
		}
	}
	slices.Sort(ms)

	n := float64(len(ms))
	snap.AvgChunks = float64(snap.Chunks) / n
	snap.AvgMs = float64(sum) / n
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	snap.MaxMs = ms[len(ms)-1]
	return snap
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm docSample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	idx := float64(len(sorted)-1) * pct / 100
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(idx-float64(lower))
}
