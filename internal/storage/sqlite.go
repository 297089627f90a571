package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"github.com/docpipe/metron/internal/metrickey"
	"github.com/docpipe/metron/internal/stats"
)

// Schema versions are tracked in schema_versions so upgrades are
// append-only.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metric_aggregates (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    metric_key  TEXT    NOT NULL,
    metric_name TEXT    NOT NULL,
    tags        TEXT    NOT NULL DEFAULT '',
    count       INTEGER NOT NULL,
    sum         REAL    NOT NULL,
    sum_squares REAL    NOT NULL,
    min         REAL    NOT NULL,
    max         REAL    NOT NULL,
    avg         REAL    NOT NULL,
    last        REAL    NOT NULL,
    p50         REAL    NOT NULL,
    p95         REAL    NOT NULL,
    p99         REAL    NOT NULL,
    start_ms    INTEGER NOT NULL,
    end_ms      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_aggregates_key_start ON metric_aggregates(metric_key, start_ms);
CREATE INDEX IF NOT EXISTS idx_aggregates_start     ON metric_aggregates(start_ms);
`,
	},
}

// aggregateRow mirrors the metric_aggregates table. Timestamps are
// stored as integer unix milliseconds to sidestep SQLite's textual
// datetime ambiguity.
type aggregateRow struct {
	MetricKey  string  `db:"metric_key"`
	MetricName string  `db:"metric_name"`
	Tags       string  `db:"tags"`
	Count      int64   `db:"count"`
	Sum        float64 `db:"sum"`
	SumSquares float64 `db:"sum_squares"`
	Min        float64 `db:"min"`
	Max        float64 `db:"max"`
	Avg        float64 `db:"avg"`
	Last       float64 `db:"last"`
	P50        float64 `db:"p50"`
	P95        float64 `db:"p95"`
	P99        float64 `db:"p99"`
	StartMS    int64   `db:"start_ms"`
	EndMS      int64   `db:"end_ms"`
}

// SQLiteStore persists aggregations in a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies
// pending migrations. Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// WAL keeps the writer from blocking history reads.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.Get(&count, `SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version); err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}

		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// PersistAggregation inserts one aggregation row.
func (s *SQLiteStore) PersistAggregation(ctx context.Context, metric string, tags map[string]string, agg stats.Summary) error {
	row := aggregateRow{
		MetricKey:  metrickey.Canonical(metric, tags),
		MetricName: metric,
		Tags:       metrickey.TagString(tags),
		Count:      agg.Count,
		Sum:        agg.Sum,
		SumSquares: agg.SumSquares,
		Min:        agg.Min,
		Max:        agg.Max,
		Avg:        agg.Avg,
		Last:       agg.Last,
		P50:        agg.P50,
		P95:        agg.P95,
		P99:        agg.P99,
		StartMS:    agg.StartTime.UnixMilli(),
		EndMS:      agg.EndTime.UnixMilli(),
	}

	_, err := s.db.NamedExecContext(ctx, `
        INSERT INTO metric_aggregates(metric_key, metric_name, tags, count, sum, sum_squares,
                                      min, max, avg, last, p50, p95, p99, start_ms, end_ms)
        VALUES(:metric_key, :metric_name, :tags, :count, :sum, :sum_squares,
               :min, :max, :avg, :last, :p50, :p95, :p99, :start_ms, :end_ms)
    `, row)
	if err != nil {
		return fmt.Errorf("insert aggregation for %s: %w", row.MetricKey, err)
	}
	return nil
}

// baselineRow is the per-key reduction of the aggregate history.
type baselineRow struct {
	MetricKey  string  `db:"metric_key"`
	Count      int64   `db:"count"`
	Sum        float64 `db:"sum"`
	SumSquares float64 `db:"sum_squares"`
}

// LoadBaselineStats rebuilds each key's baseline by reducing its full
// aggregate history in SQL.
func (s *SQLiteStore) LoadBaselineStats(ctx context.Context) (map[string]stats.Baseline, error) {
	var rows []baselineRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT metric_key,
               SUM(count)       AS count,
               SUM(sum)         AS sum,
               SUM(sum_squares) AS sum_squares
        FROM metric_aggregates
        GROUP BY metric_key
    `)
	if err != nil {
		return nil, fmt.Errorf("load baseline stats: %w", err)
	}

	baselines := make(map[string]stats.Baseline, len(rows))
	for _, r := range rows {
		baselines[r.MetricKey] = stats.Baseline{}.Fold(stats.Summary{
			Count:      r.Count,
			Sum:        r.Sum,
			SumSquares: r.SumSquares,
		})
	}
	return baselines, nil
}

// QueryHistory selects the key's aggregations in range and merges them
// into granularity-aligned buckets.
func (s *SQLiteStore) QueryHistory(ctx context.Context, metric string, tags map[string]string, from, to time.Time, granularity time.Duration) ([]HistoryBucket, error) {
	if granularity <= 0 {
		granularity = time.Minute
	}

	key := metrickey.Canonical(metric, tags)
	var rows []aggregateRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT metric_key, metric_name, tags, count, sum, sum_squares,
               min, max, avg, last, p50, p95, p99, start_ms, end_ms
        FROM metric_aggregates
        WHERE metric_key = ? AND start_ms >= ? AND start_ms < ?
        ORDER BY start_ms ASC
    `, key, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", key, err)
	}

	buckets := make(map[int64]*HistoryBucket)
	for _, r := range rows {
		start := time.UnixMilli(r.StartMS).UTC().Truncate(granularity)
		b, ok := buckets[start.UnixMilli()]
		if !ok {
			b = &HistoryBucket{Start: start}
			buckets[start.UnixMilli()] = b
		}
		mergeBucket(b, stats.Summary{
			Count: r.Count,
			Sum:   r.Sum,
			Min:   r.Min,
			Max:   r.Max,
		})
	}
	return sortBuckets(buckets), nil
}

// keyRow is the per-key reduction behind ListKeys.
type keyRow struct {
	MetricKey  string `db:"metric_key"`
	MetricName string `db:"metric_name"`
	Count      int64  `db:"count"`
	EndMS      int64  `db:"end_ms"`
}

// ListKeys lists every key with persisted history, with totals.
func (s *SQLiteStore) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	var rows []keyRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT metric_key,
               metric_name,
               SUM(count)  AS count,
               MAX(end_ms) AS end_ms
        FROM metric_aggregates
        GROUP BY metric_key
        ORDER BY metric_key ASC
    `)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	keys := make([]KeyInfo, len(rows))
	for i, r := range rows {
		keys[i] = KeyInfo{
			Key:      r.MetricKey,
			Metric:   r.MetricName,
			Count:    r.Count,
			LastSeen: time.UnixMilli(r.EndMS).UTC(),
		}
	}
	return keys, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
