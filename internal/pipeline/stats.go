package pipeline

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// StatsSnapshot aggregates the renders seen within the window. Latency
// figures cover successful renders only.
type StatsSnapshot struct {
	Window   string  `json:"window"`
	Count    int     `json:"count"`
	Failures int     `json:"failures"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// RenderStats keeps render latencies for a rolling window.
type RenderStats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
	now     func() time.Time
}

func NewRenderStats(window time.Duration) *RenderStats {
	if window <= 0 {
		window = time.Hour
	}
	return &RenderStats{
		samples: make([]sample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one render. failed renders count toward Failures only.
func (s *RenderStats) Record(d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{at: now, duration: max(d, 0), failed: failed})
}

func (s *RenderStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	snap := StatsSnapshot{Window: s.window.String()}

	var ms []float64
	var sum float64
	for _, sm := range s.samples {
		if sm.failed {
			snap.Failures++
			continue
		}
		v := float64(sm.duration) / float64(time.Millisecond)
		ms = append(ms, v)
		sum += v
	}
	snap.Count = len(ms)
	if len(ms) == 0 {
		return snap
	}
	slices.Sort(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = sum / float64(len(ms))
	snap.P50Ms = percentile(ms, 50)
	snap.P95Ms = percentile(ms, 95)
	snap.P99Ms = percentile(ms, 99)
	return snap
}

func (s *RenderStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm sample) bool { return sm.at.Before(cutoff) })
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return sorted[0]
	case pct >= 100:
		return sorted[len(sorted)-1]
	}
	rank := float64(len(sorted)-1) * pct / 100
	lower := int(rank)
	if lower+1 >= len(sorted) {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[lower+1]-sorted[lower])*frac
}
