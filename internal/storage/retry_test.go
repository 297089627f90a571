package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/metron/internal/stats"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	mem := NewMemoryStore()
	mem.FailNext(2, errors.New("disk full"))

	var retried int
	s := WithRetry(mem, RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      3,
		OnRetry:         func(error, time.Duration) { retried++ },
	})

	err := s.PersistAggregation(context.Background(), "m", nil, stats.Summary{Count: 1, Sum: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, retried)
	assert.Len(t, mem.Records(), 1)
}

func TestWithRetry_SurfacesErrorAfterBudget(t *testing.T) {
	mem := NewMemoryStore()
	persistErr := errors.New("disk full")
	mem.FailNext(10, persistErr)

	s := WithRetry(mem, RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      2,
	})

	err := s.PersistAggregation(context.Background(), "m", nil, stats.Summary{Count: 1, Sum: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, persistErr)
	assert.Empty(t, mem.Records())
}

func TestWithRetry_LoadSucceedsAfterTransientFailure(t *testing.T) {
	mem := NewMemoryStore()
	require.NoError(t, mem.PersistAggregation(context.Background(), "m", nil, stats.Summary{Count: 2, Sum: 20}))
	mem.FailNextLoad(1, errors.New("database is locked"))

	var retried int
	s := WithRetry(mem, RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      3,
		OnRetry:         func(error, time.Duration) { retried++ },
	})

	baselines, err := s.LoadBaselineStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	assert.Equal(t, uint64(2), baselines["m:"].Count)
}

func TestWithRetry_LoadSurfacesErrorAfterBudget(t *testing.T) {
	mem := NewMemoryStore()
	loadErr := errors.New("database is locked")
	mem.FailNextLoad(10, loadErr)

	s := WithRetry(mem, RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      2,
	})

	_, err := s.LoadBaselineStats(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, loadErr)
}

func TestMemoryStore_ListKeys(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	end := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, mem.PersistAggregation(ctx, "b.metric", nil, stats.Summary{Count: 2, EndTime: end}))
	require.NoError(t, mem.PersistAggregation(ctx, "a.metric", nil, stats.Summary{Count: 1, EndTime: end.Add(time.Minute)}))
	require.NoError(t, mem.PersistAggregation(ctx, "a.metric", nil, stats.Summary{Count: 4, EndTime: end}))

	keys, err := mem.ListKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	assert.Equal(t, "a.metric:", keys[0].Key)
	assert.Equal(t, int64(5), keys[0].Count)
	assert.True(t, keys[0].LastSeen.Equal(end.Add(time.Minute)))
	assert.Equal(t, "b.metric:", keys[1].Key)
}

func TestMemoryStore_ClosedRejectsWrites(t *testing.T) {
	mem := NewMemoryStore()
	require.NoError(t, mem.Close())

	err := mem.PersistAggregation(context.Background(), "m", nil, stats.Summary{Count: 1})
	assert.ErrorIs(t, err, ErrClosed)
}
