package metron_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/metron"
)

func TestOpenRecordAndQuery(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "metron.db")
	cfgPath := filepath.Join(dir, "metron.yaml")

	cfg := `
flushInterval: 50ms
bufferLimit: 100
windows:
  - 1m
storage:
  path: ` + dbPath + `
logging:
  level: error
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	ctx := context.Background()
	eng, err := metron.Open(ctx, cfgPath)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		eng.RecordMetric("checkout.duration", float64(100+i), map[string]string{"env": "test"})
	}

	current := eng.CurrentMetrics()
	byWindow, ok := current["checkout.duration:env:test"]
	require.True(t, ok)
	assert.InDelta(t, 104.5, byWindow["1m0s"], 1e-9)

	require.NoError(t, eng.Shutdown(ctx))

	// History survives the engine: read it back through a fresh one.
	eng2, err := metron.Open(ctx, cfgPath)
	require.NoError(t, err)
	defer eng2.Shutdown(ctx)

	now := time.Now().UTC()
	buckets, err := eng2.MetricHistory(ctx, "checkout.duration", map[string]string{"env": "test"},
		now.Add(-time.Hour), now.Add(time.Minute), time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, buckets)
	var counted int64
	for _, b := range buckets {
		counted += b.Count
	}
	assert.Equal(t, int64(10), counted)

	// The second engine rehydrates the first one's baseline.
	b, ok := eng2.Baseline("checkout.duration", map[string]string{"env": "test"})
	require.True(t, ok)
	assert.Equal(t, uint64(10), b.Count)
	assert.InDelta(t, 104.5, b.Mean, 1e-9)
}

func TestNewWithCustomStore(t *testing.T) {
	ctx := context.Background()

	store, err := metron.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	eng, err := metron.New(ctx, metron.Options{
		Store:         store,
		FlushInterval: time.Hour,
	})
	require.NoError(t, err)

	eng.RecordMetric("jobs.done", 3, nil)
	require.NoError(t, eng.Shutdown(ctx))
	assert.Equal(t, int64(1), eng.Snapshot().AggregationsRun)
}

func TestOpenRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("flushInterval: -5s\nstorage:\n  path: x.db\n"), 0o644))

	_, err := metron.Open(context.Background(), cfgPath)
	assert.Error(t, err)
}
