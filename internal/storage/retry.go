package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/docpipe/metron/internal/stats"
)

// RetryPolicy bounds the exponential backoff applied to failed
// persistence calls.
type RetryPolicy struct {
	// InitialInterval is the first retry delay (default 100ms).
	InitialInterval time.Duration

	// MaxInterval caps the delay between retries (default 2s).
	MaxInterval time.Duration

	// MaxRetries is the number of retries after the initial attempt
	// (default 3). The total attempt count is MaxRetries+1.
	MaxRetries uint64

	// OnRetry, when set, is invoked before each retry with the error
	// that triggered it. Used for logging and instrumentation.
	OnRetry func(err error, next time.Duration)
}

// DefaultRetryPolicy returns the default persistence retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		MaxRetries:      3,
	}
}

// retryStore decorates a Store with bounded-backoff retries on the
// persistence and baseline-load paths. History queries are not
// retried: a synchronous read's error belongs to its caller.
type retryStore struct {
	Store
	policy RetryPolicy
}

// WithRetry wraps the store's PersistAggregation with the policy.
// Retrying lives at the storage boundary so a failure never re-runs
// aggregation itself.
func WithRetry(s Store, policy RetryPolicy) Store {
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = DefaultRetryPolicy().InitialInterval
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = DefaultRetryPolicy().MaxInterval
	}
	if policy.MaxRetries == 0 {
		policy.MaxRetries = DefaultRetryPolicy().MaxRetries
	}
	return &retryStore{Store: s, policy: policy}
}

// retry runs op under the policy's bounded exponential backoff.
func (r *retryStore) retry(ctx context.Context, op backoff.Operation) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.policy.InitialInterval
	eb.MaxInterval = r.policy.MaxInterval

	notify := func(err error, next time.Duration) {
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(err, next)
		}
	}

	return backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(eb, r.policy.MaxRetries), ctx),
		notify)
}

func (r *retryStore) PersistAggregation(ctx context.Context, metric string, tags map[string]string, agg stats.Summary) error {
	return r.retry(ctx, func() error {
		return r.Store.PersistAggregation(ctx, metric, tags, agg)
	})
}

func (r *retryStore) LoadBaselineStats(ctx context.Context) (map[string]stats.Baseline, error) {
	var baselines map[string]stats.Baseline
	err := r.retry(ctx, func() error {
		var opErr error
		baselines, opErr = r.Store.LoadBaselineStats(ctx)
		return opErr
	})
	if err != nil {
		return nil, err
	}
	return baselines, nil
}
