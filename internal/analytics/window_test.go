package analytics

import (
	"testing"
	"time"
)

// pinClock fixes the tracker's read-path clock so tests can use
// absolute timestamps.
func pinClock(wt *WindowTracker, at time.Time) {
	wt.nowFn = func() time.Time { return at }
}

func TestWindowTracker_AverageWithinWindow(t *testing.T) {
	wt := NewWindowTracker([]time.Duration{60 * time.Second})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pinClock(wt, now.Add(4*time.Second))

	for i, v := range []float64{100, 200, 150, 175} {
		wt.Observe("k", v, now.Add(time.Duration(i)*time.Second))
	}

	sum, count, ok := wt.Sum("k", 60*time.Second)
	if !ok {
		t.Fatal("Sum() reported no data")
	}
	if sum != 625 {
		t.Errorf("sum = %v, want 625", sum)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}

	avg, ok := wt.Average("k", 60*time.Second)
	if !ok {
		t.Fatal("Average() reported no data")
	}
	if avg != 156.25 {
		t.Errorf("average = %v, want 156.25", avg)
	}
}

func TestWindowTracker_EvictsOldEntries(t *testing.T) {
	wt := NewWindowTracker([]time.Duration{10 * time.Second})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pinClock(wt, now.Add(30*time.Second))

	wt.Observe("k", 100, now)
	wt.Observe("k", 50, now.Add(30*time.Second)) // first entry aged out

	sum, count, ok := wt.Sum("k", 10*time.Second)
	if !ok {
		t.Fatal("Sum() reported no data")
	}
	if count != 1 || sum != 50 {
		t.Errorf("after eviction sum/count = %v/%d, want 50/1", sum, count)
	}
}

func TestWindowTracker_EvictsOnReadWithoutNewSamples(t *testing.T) {
	wt := NewWindowTracker([]time.Duration{10 * time.Second})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	wt.Observe("k", 100, now)

	// Still in range just before the boundary.
	pinClock(wt, now.Add(10*time.Second))
	if avg, ok := wt.Average("k", 10*time.Second); !ok || avg != 100 {
		t.Errorf("in-window read avg = %v (ok=%v), want 100", avg, ok)
	}

	// The key receives nothing more; once the entry ages out, reads
	// must stop reporting it.
	pinClock(wt, now.Add(11*time.Second))
	if _, ok := wt.Average("k", 10*time.Second); ok {
		t.Error("Average() reported data for a fully aged-out key")
	}
	if _, _, ok := wt.Sum("k", 10*time.Second); ok {
		t.Error("Sum() reported data for a fully aged-out key")
	}
	if all := wt.Averages(); len(all) != 0 {
		t.Errorf("Averages() = %v, want empty", all)
	}
}

func TestWindowTracker_BoundaryEntryRetained(t *testing.T) {
	wt := NewWindowTracker([]time.Duration{10 * time.Second})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pinClock(wt, now.Add(10*time.Second))

	wt.Observe("k", 100, now)
	// Exactly windowSize later: the first entry sits on the boundary
	// and must still count.
	wt.Observe("k", 50, now.Add(10*time.Second))

	_, count, _ := wt.Sum("k", 10*time.Second)
	if count != 2 {
		t.Errorf("boundary entry evicted: count = %d, want 2", count)
	}
}

func TestWindowTracker_NoDataIsNotZero(t *testing.T) {
	wt := NewWindowTracker([]time.Duration{time.Minute})

	if _, ok := wt.Average("unknown", time.Minute); ok {
		t.Error("Average() of unknown key reported data")
	}

	wt.Observe("k", 1, time.Now())
	if _, ok := wt.Average("k", time.Second); ok {
		t.Error("Average() for unconfigured window reported data")
	}
}

func TestWindowTracker_PerWindowIsolation(t *testing.T) {
	wt := NewWindowTracker([]time.Duration{10 * time.Second, time.Minute})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	pinClock(wt, now.Add(30*time.Second))

	wt.Observe("k", 100, now)
	wt.Observe("k", 200, now.Add(30*time.Second))

	// Short window only holds the recent value; long window holds both.
	if avg, ok := wt.Average("k", 10*time.Second); !ok || avg != 200 {
		t.Errorf("10s window avg = %v (ok=%v), want 200", avg, ok)
	}
	if avg, ok := wt.Average("k", time.Minute); !ok || avg != 150 {
		t.Errorf("1m window avg = %v (ok=%v), want 150", avg, ok)
	}
}

func TestWindowTracker_Averages(t *testing.T) {
	wt := NewWindowTracker([]time.Duration{time.Minute})
	now := time.Now()
	wt.Observe("a", 10, now)
	wt.Observe("b", 20, now)

	all := wt.Averages()
	if len(all) != 2 {
		t.Fatalf("Averages() returned %d keys, want 2", len(all))
	}
	if all["a"][time.Minute] != 10 || all["b"][time.Minute] != 20 {
		t.Errorf("Averages() = %v", all)
	}
}
