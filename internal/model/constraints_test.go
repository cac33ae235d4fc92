package model

import (
	"testing"
	"time"
)

// TestTimingWindowExpand_RepeatCount mirrors spec.md §8 Scenario 3: a
// window with repeat=2, period=24h covering 2018-10-01 must be visible on
// exactly 2018-10-01 and 2018-10-02, not a third day.
func TestTimingWindowExpand_RepeatCount(t *testing.T) {
	w := TimingWindow{
		Start:    time.Date(2018, 10, 1, 2, 0, 0, 0, time.UTC),
		Duration: 2 * time.Hour,
		Repeat:   2,
		Period:   24 * time.Hour,
	}

	intervals := w.Expand(10)
	if len(intervals) != 2 {
		t.Fatalf("Expand() returned %d intervals, want 2", len(intervals))
	}

	want := []time.Time{
		time.Date(2018, 10, 1, 2, 0, 0, 0, time.UTC),
		time.Date(2018, 10, 2, 2, 0, 0, 0, time.UTC),
	}
	for i, iv := range intervals {
		if !iv.Start.Equal(want[i]) {
			t.Errorf("interval %d start = %v, want %v", i, iv.Start, want[i])
		}
	}
}

func TestTimingWindowExpand_ZeroAndOneRepeatOnce(t *testing.T) {
	base := TimingWindow{
		Start:    time.Date(2018, 10, 1, 2, 0, 0, 0, time.UTC),
		Duration: time.Hour,
		Period:   24 * time.Hour,
	}

	for _, repeat := range []int{0, 1} {
		w := base
		w.Repeat = repeat
		if got := len(w.Expand(10)); got != 1 {
			t.Errorf("Repeat=%d: Expand() returned %d intervals, want 1", repeat, got)
		}
	}
}

func TestTimingWindowExpand_UnboundedClipsToMaxCopies(t *testing.T) {
	w := TimingWindow{
		Start:    time.Date(2018, 10, 1, 2, 0, 0, 0, time.UTC),
		Duration: time.Hour,
		Repeat:   -1,
		Period:   24 * time.Hour,
	}

	if got := len(w.Expand(5)); got != 5 {
		t.Errorf("unbounded Expand(5) returned %d intervals, want 5", got)
	}
}
