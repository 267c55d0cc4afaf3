package pipeline

import (
	"testing"
	"time"
)

func TestRenderStats_Snapshot(t *testing.T) {
	s := NewRenderStats(time.Hour)
	for _, ms := range []int{40, 10, 30, 20} {
		s.Record(time.Duration(ms)*time.Millisecond, false)
	}
	s.Record(time.Second, true)

	snap := s.Snapshot()
	if snap.Count != 4 || snap.Failures != 1 {
		t.Fatalf("expected 4 renders and 1 failure, got %d and %d", snap.Count, snap.Failures)
	}
	if snap.MinMs != 10 || snap.MaxMs != 40 || snap.AvgMs != 25 {
		t.Errorf("unexpected min/max/avg %v/%v/%v", snap.MinMs, snap.MaxMs, snap.AvgMs)
	}
	if snap.P50Ms != 25 {
		t.Errorf("expected p50 25, got %v", snap.P50Ms)
	}
	if snap.Window != "1h0m0s" {
		t.Errorf("expected window %q, got %q", "1h0m0s", snap.Window)
	}
}

func TestRenderStats_WindowPrunes(t *testing.T) {
	s := NewRenderStats(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	s.Record(5*time.Millisecond, false)

	now = now.Add(2 * time.Minute)
	s.Record(7*time.Millisecond, false)

	snap := s.Snapshot()
	if snap.Count != 1 || snap.MinMs != 7 {
		t.Errorf("expected only the recent sample, got %+v", snap)
	}
}

func TestRenderStats_Empty(t *testing.T) {
	if snap := NewRenderStats(0).Snapshot(); snap.Count != 0 || snap.P99Ms != 0 {
		t.Errorf("expected an empty snapshot, got %+v", snap)
	}
}
