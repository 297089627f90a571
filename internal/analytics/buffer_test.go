package analytics

import (
	"sync"
	"testing"
	"time"
)

func TestBufferSet_AppendReturnsLength(t *testing.T) {
	bs := NewBufferSet()

	for i := 1; i <= 5; i++ {
		n := bs.Append("k", Sample{Value: float64(i), Timestamp: time.Now()})
		if n != i {
			t.Errorf("Append #%d returned length %d", i, n)
		}
	}
}

func TestBufferSet_DrainTakesOwnership(t *testing.T) {
	bs := NewBufferSet()
	bs.Append("k", Sample{Value: 1})
	bs.Append("k", Sample{Value: 2})

	drained := bs.Drain("k")
	if len(drained) != 2 {
		t.Fatalf("Drain() returned %d samples, want 2", len(drained))
	}
	if drained[0].Value != 1 || drained[1].Value != 2 {
		t.Errorf("Drain() order = %v, %v; want append order", drained[0].Value, drained[1].Value)
	}

	if again := bs.Drain("k"); again != nil {
		t.Errorf("second Drain() returned %d samples, want none", len(again))
	}
}

func TestBufferSet_DrainUnknownKey(t *testing.T) {
	bs := NewBufferSet()
	if got := bs.Drain("missing"); got != nil {
		t.Errorf("Drain of unknown key = %v, want nil", got)
	}
}

func TestBufferSet_ExactlyOnceUnderConcurrency(t *testing.T) {
	bs := NewBufferSet()

	const writers = 8
	const perWriter = 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				bs.Append("k", Sample{Value: 1, Timestamp: time.Now()})
			}
		}()
	}

	// Drain repeatedly while writers are still appending; every sample
	// must be seen exactly once across all drains.
	total := 0
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for drained := false; !drained; {
		select {
		case <-done:
			drained = true
		default:
		}
		total += len(bs.Drain("k"))
	}
	total += len(bs.Drain("k"))

	if total != writers*perWriter {
		t.Errorf("drained %d samples total, want %d (no loss, no double-count)", total, writers*perWriter)
	}
}

func TestBufferSet_DistinctKeysIndependent(t *testing.T) {
	bs := NewBufferSet()
	bs.Append("a", Sample{Value: 1})
	bs.Append("b", Sample{Value: 2})

	if got := bs.Drain("a"); len(got) != 1 || got[0].Value != 1 {
		t.Errorf("Drain(a) = %v", got)
	}
	if bs.Len("b") != 1 {
		t.Errorf("draining one key disturbed another: Len(b) = %d", bs.Len("b"))
	}
}

func TestBufferSet_Keys(t *testing.T) {
	bs := NewBufferSet()
	bs.Append("a", Sample{})
	bs.Append("b", Sample{})
	bs.Drain("a")

	keys := bs.Keys()
	if len(keys) != 2 {
		t.Errorf("Keys() = %v, want both keys (drained keys stay known)", keys)
	}
}
