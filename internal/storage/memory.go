package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/docpipe/metron/internal/metrickey"
	"github.com/docpipe/metron/internal/stats"
)

// PersistedAggregation is one aggregation as recorded by MemoryStore,
// kept for test assertions.
type PersistedAggregation struct {
	Metric  string
	Tags    map[string]string
	Key     string
	Summary stats.Summary
}

// MemoryStore is an in-memory Store used as the default test fixture.
// It behaves as an always-succeeding backend unless failures are
// injected with FailNext.
type MemoryStore struct {
	mu           sync.Mutex
	records      []PersistedAggregation
	failNext     int
	failErr      error
	failNextLoad int
	failLoadErr  error
	closed       bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FailNext makes the next n PersistAggregation calls return err.
func (m *MemoryStore) FailNext(n int, err error) {
	m.mu.Lock()
	m.failNext = n
	m.failErr = err
	m.mu.Unlock()
}

// FailNextLoad makes the next n LoadBaselineStats calls return err.
func (m *MemoryStore) FailNextLoad(n int, err error) {
	m.mu.Lock()
	m.failNextLoad = n
	m.failLoadErr = err
	m.mu.Unlock()
}

// Records returns a copy of everything persisted so far.
func (m *MemoryStore) Records() []PersistedAggregation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PersistedAggregation, len(m.records))
	copy(out, m.records)
	return out
}

// PersistAggregation appends the aggregation, honoring injected
// failures.
func (m *MemoryStore) PersistAggregation(_ context.Context, metric string, tags map[string]string, agg stats.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.failNext > 0 {
		m.failNext--
		return m.failErr
	}

	m.records = append(m.records, PersistedAggregation{
		Metric:  metric,
		Tags:    tags,
		Key:     metrickey.Canonical(metric, tags),
		Summary: agg,
	})
	return nil
}

// LoadBaselineStats folds the recorded history per key, mirroring the
// SQL reduction of the production backend.
func (m *MemoryStore) LoadBaselineStats(_ context.Context) (map[string]stats.Baseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.failNextLoad > 0 {
		m.failNextLoad--
		return nil, m.failLoadErr
	}

	baselines := make(map[string]stats.Baseline)
	for _, r := range m.records {
		baselines[r.Key] = baselines[r.Key].Fold(r.Summary)
	}
	return baselines, nil
}

// QueryHistory buckets the recorded aggregations for the key.
func (m *MemoryStore) QueryHistory(_ context.Context, metric string, tags map[string]string, from, to time.Time, granularity time.Duration) ([]HistoryBucket, error) {
	if granularity <= 0 {
		granularity = time.Minute
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	key := metrickey.Canonical(metric, tags)
	buckets := make(map[int64]*HistoryBucket)
	for _, r := range m.records {
		if r.Key != key {
			continue
		}
		start := r.Summary.StartTime
		if start.Before(from) || !start.Before(to) {
			continue
		}
		aligned := start.UTC().Truncate(granularity)
		b, ok := buckets[aligned.UnixMilli()]
		if !ok {
			b = &HistoryBucket{Start: aligned}
			buckets[aligned.UnixMilli()] = b
		}
		mergeBucket(b, r.Summary)
	}
	return sortBuckets(buckets), nil
}

// ListKeys lists every key with persisted history, mirroring the SQL
// reduction of the production backend.
func (m *MemoryStore) ListKeys(_ context.Context) ([]KeyInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	byKey := make(map[string]*KeyInfo)
	for _, r := range m.records {
		info, ok := byKey[r.Key]
		if !ok {
			info = &KeyInfo{Key: r.Key, Metric: r.Metric}
			byKey[r.Key] = info
		}
		info.Count += r.Summary.Count
		if r.Summary.EndTime.After(info.LastSeen) {
			info.LastSeen = r.Summary.EndTime
		}
	}

	keys := make([]KeyInfo, 0, len(byKey))
	for _, info := range byKey {
		keys = append(keys, *info)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Key < keys[j].Key })
	return keys, nil
}

// Close marks the store closed; later operations fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
