package analytics

import (
	"sync"

	"github.com/docpipe/metron/internal/stats"
)

// BaselineStore caches the per-key baseline statistics the anomaly
// detector judges against.
//
// The store itself owns no fold logic: the aggregator folds completed
// summaries and upserts the result. Load replaces the whole cache with
// baselines rehydrated from storage at startup.
type BaselineStore struct {
	mu        sync.RWMutex
	baselines map[string]stats.Baseline
}

// NewBaselineStore creates an empty baseline store.
func NewBaselineStore() *BaselineStore {
	return &BaselineStore{
		baselines: make(map[string]stats.Baseline),
	}
}

// Load replaces the cache with baselines reloaded from storage.
func (bst *BaselineStore) Load(loaded map[string]stats.Baseline) {
	next := make(map[string]stats.Baseline, len(loaded))
	for k, b := range loaded {
		next[k] = b
	}

	bst.mu.Lock()
	bst.baselines = next
	bst.mu.Unlock()
}

// Get returns the baseline for a key. ok is false when the key has no
// baseline yet (fewer than one completed aggregation and nothing
// persisted before startup).
func (bst *BaselineStore) Get(key string) (stats.Baseline, bool) {
	bst.mu.RLock()
	defer bst.mu.RUnlock()
	b, ok := bst.baselines[key]
	return b, ok
}

// Upsert stores the key's baseline, replacing any previous value.
func (bst *BaselineStore) Upsert(key string, b stats.Baseline) {
	bst.mu.Lock()
	bst.baselines[key] = b
	bst.mu.Unlock()
}

// Len returns the number of keys with a baseline.
func (bst *BaselineStore) Len() int {
	bst.mu.RLock()
	defer bst.mu.RUnlock()
	return len(bst.baselines)
}
