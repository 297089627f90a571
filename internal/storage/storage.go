// Package storage defines the engine's narrow persistence boundary and
// its concrete backends.
//
// The engine sees only the Store interface: persist one aggregation,
// reload baseline statistics at startup, and answer history queries.
// SQLiteStore is the production backend; MemoryStore is the test
// double. WithRetry wraps any Store with bounded-backoff retries on
// the persistence and baseline-load paths.
package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/docpipe/metron/internal/stats"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage: store is closed")

// HistoryBucket is one granularity-sized bucket of a history query
// result. Bucket statistics are merged from every persisted
// aggregation whose interval starts inside the bucket.
type HistoryBucket struct {
	Start time.Time `json:"start"`
	Count int64     `json:"count"`
	Sum   float64   `json:"sum"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Avg   float64   `json:"avg"`
}

// KeyInfo describes one known metric key in the aggregate history.
type KeyInfo struct {
	Key      string    `json:"key"`
	Metric   string    `json:"metric"`
	Count    int64     `json:"count"`
	LastSeen time.Time `json:"lastSeen"`
}

// Store is the persistence boundary the engine writes aggregations to
// and reads history from. Implementations must be safe for concurrent
// use; the engine calls PersistAggregation from its aggregation
// goroutine while history queries arrive from caller goroutines.
type Store interface {
	// PersistAggregation durably records one aggregation for the
	// metric identified by name and tag set.
	PersistAggregation(ctx context.Context, metric string, tags map[string]string, agg stats.Summary) error

	// LoadBaselineStats reconstructs every key's baseline from the
	// persisted aggregate history. Called once at engine startup.
	LoadBaselineStats(ctx context.Context) (map[string]stats.Baseline, error)

	// QueryHistory returns bucketed summaries for a metric over a time
	// range. Buckets are granularity-aligned and sorted ascending.
	QueryHistory(ctx context.Context, metric string, tags map[string]string, from, to time.Time, granularity time.Duration) ([]HistoryBucket, error)

	// ListKeys returns every metric key with persisted history, sorted
	// by key, with total sample counts and last-seen times.
	ListKeys(ctx context.Context) ([]KeyInfo, error)

	// Close flushes and releases the backend.
	Close() error
}

// mergeBucket folds one aggregation into its history bucket.
func mergeBucket(b *HistoryBucket, agg stats.Summary) {
	if b.Count == 0 || agg.Min < b.Min {
		b.Min = agg.Min
	}
	if b.Count == 0 || agg.Max > b.Max {
		b.Max = agg.Max
	}
	b.Count += agg.Count
	b.Sum += agg.Sum
	b.Avg = b.Sum / float64(b.Count)
}

// sortBuckets flattens a bucket map into an ascending slice.
func sortBuckets(m map[int64]*HistoryBucket) []HistoryBucket {
	out := make([]HistoryBucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
