package analytics

import (
	"sync"
)

// BufferSet holds the per-key append-only sample buffers awaiting
// aggregation.
//
// Appends and drains synchronize on the individual key's buffer, so the
// only global contention is the short read lock on the key map. The
// drain is a swap: the aggregator takes ownership of the filled slice
// and writers continue into a fresh one, which gives exactly-once
// consumption without holding any lock across aggregation itself.
type BufferSet struct {
	mu      sync.RWMutex
	buffers map[string]*keyBuffer
}

// keyBuffer is one key's pending samples. Order is append order; the
// aggregator relies on it for last-value and percentile semantics.
type keyBuffer struct {
	mu      sync.Mutex
	samples []Sample
}

// NewBufferSet creates an empty buffer set.
func NewBufferSet() *BufferSet {
	return &BufferSet{
		buffers: make(map[string]*keyBuffer),
	}
}

// Append adds a sample to the key's buffer and returns the buffer's
// length after the append. Appends never fail; backpressure is the
// caller's job (it forces an early drain when the returned length
// crosses the overflow threshold).
func (bs *BufferSet) Append(key string, s Sample) int {
	kb := bs.bufferFor(key)

	kb.mu.Lock()
	kb.samples = append(kb.samples, s)
	n := len(kb.samples)
	kb.mu.Unlock()

	return n
}

// Drain atomically swaps the key's buffer for a fresh one and returns
// the drained samples in append order. Returns nil when the key has no
// pending samples. Each sample is returned by exactly one Drain call.
func (bs *BufferSet) Drain(key string) []Sample {
	bs.mu.RLock()
	kb, ok := bs.buffers[key]
	bs.mu.RUnlock()
	if !ok {
		return nil
	}

	kb.mu.Lock()
	drained := kb.samples
	kb.samples = nil
	kb.mu.Unlock()

	return drained
}

// Len returns the number of pending samples for a key.
func (bs *BufferSet) Len(key string) int {
	bs.mu.RLock()
	kb, ok := bs.buffers[key]
	bs.mu.RUnlock()
	if !ok {
		return 0
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	return len(kb.samples)
}

// Keys returns all keys that have ever buffered a sample. The periodic
// scheduler iterates this; empty buffers drain to a no-op.
func (bs *BufferSet) Keys() []string {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	keys := make([]string, 0, len(bs.buffers))
	for k := range bs.buffers {
		keys = append(keys, k)
	}
	return keys
}

// bufferFor returns the key's buffer, creating it on first use.
func (bs *BufferSet) bufferFor(key string) *keyBuffer {
	bs.mu.RLock()
	kb, ok := bs.buffers[key]
	bs.mu.RUnlock()
	if ok {
		return kb
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	// Re-check: another writer may have created it between locks.
	if kb, ok = bs.buffers[key]; ok {
		return kb
	}
	kb = &keyBuffer{}
	bs.buffers[key] = kb
	return kb
}
