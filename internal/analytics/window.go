package analytics

import (
	"sync"
	"time"
)

// WindowTracker maintains moving averages over fixed time windows, per
// metric key and per configured window size.
//
// Entries older than a window are evicted lazily, on each update and on
// each read, and the running sum is adjusted by exactly the evicted
// values, so the sum always equals the sum of retained entries. The
// tracker is read by the status surface only; the aggregator never
// touches it.
type WindowTracker struct {
	windows []time.Duration
	nowFn   func() time.Time

	mu   sync.Mutex
	keys map[string]map[time.Duration]*windowState
}

// windowState is one (key, windowSize) pair's retained entries.
type windowState struct {
	entries []windowEntry
	sum     float64
}

type windowEntry struct {
	value float64
	at    time.Time
}

// NewWindowTracker creates a tracker for the given window sizes.
func NewWindowTracker(windows []time.Duration) *WindowTracker {
	ws := make([]time.Duration, len(windows))
	copy(ws, windows)
	return &WindowTracker{
		windows: ws,
		nowFn:   time.Now,
		keys:    make(map[string]map[time.Duration]*windowState),
	}
}

// Observe records a value into every configured window for the key,
// evicting entries that have aged out as of now.
func (wt *WindowTracker) Observe(key string, value float64, now time.Time) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	states, ok := wt.keys[key]
	if !ok {
		states = make(map[time.Duration]*windowState, len(wt.windows))
		for _, w := range wt.windows {
			states[w] = &windowState{}
		}
		wt.keys[key] = states
	}

	for w, st := range states {
		st.evict(now.Add(-w))
		st.entries = append(st.entries, windowEntry{value: value, at: now})
		st.sum += value
	}
}

// evict drops entries strictly older than the cutoff and subtracts
// their values from the running sum. An entry exactly at the window
// boundary is retained.
func (st *windowState) evict(cutoff time.Time) {
	i := 0
	for ; i < len(st.entries); i++ {
		if !st.entries[i].at.Before(cutoff) {
			break
		}
		st.sum -= st.entries[i].value
	}
	if i > 0 {
		st.entries = append(st.entries[:0:0], st.entries[i:]...)
	}
	if len(st.entries) == 0 {
		// A drained window resets its sum exactly, shedding any
		// accumulated float error.
		st.sum = 0
	}
}

// Average returns the current in-window average for a key and window
// size. ok is false when the window holds no samples; "no data" is
// distinct from a numeric zero.
//
// Reads evict too: a key that stopped receiving samples must not keep
// reporting entries that have aged out since its last update.
func (wt *WindowTracker) Average(key string, window time.Duration) (avg float64, ok bool) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	states, found := wt.keys[key]
	if !found {
		return 0, false
	}
	st, found := states[window]
	if !found {
		return 0, false
	}
	st.evict(wt.nowFn().Add(-window))
	if len(st.entries) == 0 {
		return 0, false
	}
	return st.sum / float64(len(st.entries)), true
}

// Sum returns the current in-window sum and count for a key and window
// size. ok is false when the window holds no samples.
func (wt *WindowTracker) Sum(key string, window time.Duration) (sum float64, count int, ok bool) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	states, found := wt.keys[key]
	if !found {
		return 0, 0, false
	}
	st, found := states[window]
	if !found {
		return 0, 0, false
	}
	st.evict(wt.nowFn().Add(-window))
	if len(st.entries) == 0 {
		return 0, 0, false
	}
	return st.sum, len(st.entries), true
}

// Averages returns every key's current averages, keyed by window size.
// Windows with no in-range samples are omitted rather than reported as
// zero.
func (wt *WindowTracker) Averages() map[string]map[time.Duration]float64 {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	now := wt.nowFn()
	out := make(map[string]map[time.Duration]float64, len(wt.keys))
	for key, states := range wt.keys {
		for w, st := range states {
			st.evict(now.Add(-w))
			if len(st.entries) == 0 {
				continue
			}
			if out[key] == nil {
				out[key] = make(map[time.Duration]float64, len(states))
			}
			out[key][w] = st.sum / float64(len(st.entries))
		}
	}
	return out
}

// Windows returns the configured window sizes.
func (wt *WindowTracker) Windows() []time.Duration {
	ws := make([]time.Duration, len(wt.windows))
	copy(ws, wt.windows)
	return ws
}
