// Package engine assembles the analytics components into the running
// metrics engine: hot-path recording, the periodic aggregation
// scheduler, anomaly/error event delivery, and lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"

	"github.com/docpipe/metron/internal/analytics"
	"github.com/docpipe/metron/internal/metrickey"
	"github.com/docpipe/metron/internal/stats"
	"github.com/docpipe/metron/internal/storage"
	"github.com/docpipe/metron/internal/telemetry"
)

// Defaults applied by New when an Options field is zero.
const (
	DefaultFlushInterval = 5 * time.Second
	DefaultBufferLimit   = 1000
)

// DefaultWindows are the moving-average window sizes used when none
// are configured.
var DefaultWindows = []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute}

// ErrClosed is reported when an operation reaches an engine that has
// been shut down.
var ErrClosed = errors.New("engine: closed")

// Options configures an Engine. Store is the only required field; zero
// values elsewhere take the package defaults.
type Options struct {
	// Store is the persistence boundary. Required.
	Store storage.Store

	// Logger receives lifecycle and aggregation logs. Defaults to a
	// no-op logger.
	Logger *zap.Logger

	// FlushInterval is the periodic aggregation interval.
	FlushInterval time.Duration

	// BufferLimit is the per-key buffered-sample count that triggers
	// an early aggregation ahead of the timer.
	BufferLimit int

	// MinimumSamples gates anomaly detection until a key's baseline
	// has seen this many values.
	MinimumSamples int

	// DeviationThreshold is the z-score at which a value becomes
	// anomalous.
	DeviationThreshold float64

	// Windows are the moving-average window sizes.
	Windows []time.Duration

	// Retry bounds persistence retries. Zero value takes the storage
	// package defaults.
	Retry storage.RetryPolicy
}

// Engine is the embedded metrics analytics engine.
//
// Producers call RecordMetric concurrently; a single background
// goroutine drains buffers on a timer or on overflow notifications.
// The hot path touches only in-memory per-key state and never performs
// I/O.
type Engine struct {
	store storage.Store
	log   *zap.Logger

	flushInterval time.Duration
	bufferLimit   int

	buffers   *analytics.BufferSet
	windows   *analytics.WindowTracker
	baselines *analytics.BaselineStore
	detector  *analytics.Detector

	subs subscribers

	// overflow carries keys whose buffer crossed the limit. Lossy: a
	// dropped notification is picked up by the next tick.
	overflow chan string

	// aggHist tracks single-key aggregation latency in microseconds
	// for the status snapshot.
	aggHist   *hdrhistogram.Histogram
	aggHistMu sync.Mutex

	samplesIngested  atomic.Int64
	samplesInvalid   atomic.Int64
	samplesDropped   atomic.Int64
	anomaliesEmitted atomic.Int64
	aggregationsRun  atomic.Int64

	startTime time.Time
	nowFn     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed       atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates the options, rehydrates baselines from storage, starts
// the aggregation scheduler, and returns an engine ready for writes.
//
// Startup order matters: the baseline load completes before the first
// RecordMetric can be accepted, so the detector never judges against a
// half-loaded reference. Configuration problems are fatal here, before
// any write is taken.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: Options.Store is required")
	}
	if opts.FlushInterval < 0 {
		return nil, fmt.Errorf("engine: flush interval %v must be positive", opts.FlushInterval)
	}
	if opts.FlushInterval == 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	if opts.BufferLimit < 0 {
		return nil, fmt.Errorf("engine: buffer limit %d must be positive", opts.BufferLimit)
	}
	if opts.BufferLimit == 0 {
		opts.BufferLimit = DefaultBufferLimit
	}
	if opts.MinimumSamples < 0 {
		return nil, fmt.Errorf("engine: minimum samples %d must be positive", opts.MinimumSamples)
	}
	if opts.DeviationThreshold < 0 {
		return nil, fmt.Errorf("engine: deviation threshold %g must be positive", opts.DeviationThreshold)
	}
	if len(opts.Windows) == 0 {
		opts.Windows = DefaultWindows
	}
	seen := make(map[time.Duration]bool, len(opts.Windows))
	for _, w := range opts.Windows {
		if w <= 0 {
			return nil, fmt.Errorf("engine: window size %v must be positive", w)
		}
		if seen[w] {
			return nil, fmt.Errorf("engine: duplicate window size %v", w)
		}
		seen[w] = true
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	baselines := analytics.NewBaselineStore()
	runCtx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		log:           opts.Logger,
		flushInterval: opts.FlushInterval,
		bufferLimit:   opts.BufferLimit,
		buffers:       analytics.NewBufferSet(),
		windows:       analytics.NewWindowTracker(opts.Windows),
		baselines:     baselines,
		detector:      analytics.NewDetector(baselines, opts.MinimumSamples, opts.DeviationThreshold),
		overflow:      make(chan string, 256),
		// 1µs to 1 hour, 3 significant figures.
		aggHist:   hdrhistogram.New(1, 3600000000, 3),
		startTime: time.Now(),
		nowFn:     time.Now,
		ctx:       runCtx,
		cancel:    cancel,
	}

	retry := opts.Retry
	userNotify := retry.OnRetry
	retry.OnRetry = func(err error, next time.Duration) {
		telemetry.StorageRetries.Inc()
		e.log.Warn("persistence retry",
			zap.Error(err),
			zap.Duration("next_attempt_in", next))
		if userNotify != nil {
			userNotify(err, next)
		}
	}
	e.store = storage.WithRetry(opts.Store, retry)

	loaded, err := e.store.LoadBaselineStats(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("engine: load baseline stats: %w", err)
	}
	e.baselines.Load(loaded)

	e.wg.Add(1)
	go e.run()

	e.log.Info("engine started",
		zap.Duration("flush_interval", e.flushInterval),
		zap.Int("buffer_limit", e.bufferLimit),
		zap.Int("baseline_keys", len(loaded)))

	return e, nil
}

// RecordMetric records one measurement. It is fire-and-forget: invalid
// values are skipped, writes after shutdown are dropped, and no error
// ever reaches the caller. Metrics recording must not break the
// business logic doing the recording.
func (e *Engine) RecordMetric(name string, value float64, tags map[string]string) {
	if e.closed.Load() {
		e.samplesDropped.Add(1)
		telemetry.SamplesDroppedClosed.Inc()
		return
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		e.samplesInvalid.Add(1)
		telemetry.SamplesInvalid.Inc()
		return
	}

	now := e.nowFn()
	key := metrickey.Canonical(name, tags)

	n := e.buffers.Append(key, analytics.Sample{Value: value, Tags: tags, Timestamp: now})
	e.windows.Observe(key, value, now)

	e.samplesIngested.Add(1)
	telemetry.SamplesIngested.Inc()

	if ev := e.detector.Detect(key, name, tags, value, now); ev != nil {
		e.anomaliesEmitted.Add(1)
		telemetry.AnomaliesDetected.WithLabelValues(string(ev.Severity)).Inc()
		e.subs.emitAnomaly(*ev)
	}

	if n >= e.bufferLimit {
		select {
		case e.overflow <- key:
		default:
		}
	}
}

// OnAnomaly registers a handler for anomaly events.
func (e *Engine) OnAnomaly(fn AnomalyHandler) { e.subs.addAnomaly(fn) }

// OnError registers a handler for persistence and processing failures.
func (e *Engine) OnError(fn ErrorHandler) { e.subs.addError(fn) }

// CurrentMetrics returns every key's in-window moving averages, keyed
// by window size label ("1m0s"). Windows with no data are absent, not
// zero.
func (e *Engine) CurrentMetrics() map[string]map[string]float64 {
	averages := e.windows.Averages()
	out := make(map[string]map[string]float64, len(averages))
	for key, byWindow := range averages {
		labeled := make(map[string]float64, len(byWindow))
		for w, avg := range byWindow {
			labeled[w.String()] = avg
		}
		out[key] = labeled
	}
	return out
}

// MetricHistory returns bucketed summaries for a metric over a time
// range, straight from storage. Storage errors are the caller's: this
// is a synchronous read with no fallback. After Shutdown it fails with
// ErrClosed.
func (e *Engine) MetricHistory(ctx context.Context, name string, tags map[string]string, from, to time.Time, granularity time.Duration) ([]storage.HistoryBucket, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	return e.store.QueryHistory(ctx, name, tags, from, to, granularity)
}

// Baseline exposes a key's current baseline for the status surface.
func (e *Engine) Baseline(name string, tags map[string]string) (stats.Baseline, bool) {
	return e.baselines.Get(metrickey.Canonical(name, tags))
}

// run is the aggregation scheduler: a periodic full pass, interleaved
// with per-key passes triggered by buffer overflow.
func (e *Engine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case key := <-e.overflow:
			e.aggregate(context.Background(), key)
		case <-ticker.C:
			for _, key := range e.buffers.Keys() {
				e.aggregate(context.Background(), key)
			}
		}
	}
}

// aggregate drains one key's buffer, persists the summary, and folds
// it into the baseline.
//
// The drain swap is the only moment this goroutine contends with
// writers; persistence happens outside any lock. A persistence failure
// is surfaced as an error event but does not skip the baseline fold:
// the in-memory reference must track what was actually observed.
func (e *Engine) aggregate(ctx context.Context, key string) {
	samples := e.buffers.Drain(key)
	if len(samples) == 0 {
		return
	}

	began := time.Now()

	values := make([]float64, len(samples))
	times := make([]time.Time, len(samples))
	for i, s := range samples {
		values[i] = s.Value
		times[i] = s.Timestamp
	}

	summary, ok := stats.Summarize(values, times)
	if !ok {
		return
	}

	name, tagString := metrickey.Split(key)
	tags := metrickey.ParseTags(tagString)

	if err := e.store.PersistAggregation(ctx, name, tags, summary); err != nil {
		telemetry.PersistFailures.Inc()
		e.log.Error("failed to persist aggregation",
			zap.String("key", key),
			zap.Int64("count", summary.Count),
			zap.Error(err))
		e.subs.emitError(fmt.Errorf("persist aggregation for %s: %w", key, err))
	}

	e.baselines.Upsert(key, e.foldBaseline(key, summary))

	e.aggregationsRun.Add(1)
	telemetry.AggregationsRun.Inc()

	elapsed := time.Since(began)
	telemetry.AggregationDuration.Observe(elapsed.Seconds())
	e.recordAggregationLatency(elapsed)

	e.log.Debug("aggregated key",
		zap.String("key", key),
		zap.Int64("count", summary.Count),
		zap.Duration("took", elapsed))
}

// foldBaseline merges a summary into the key's baseline, starting from
// zero for a key never seen before.
func (e *Engine) foldBaseline(key string, summary stats.Summary) stats.Baseline {
	b, _ := e.baselines.Get(key)
	return b.Fold(summary)
}

func (e *Engine) recordAggregationLatency(d time.Duration) {
	micros := d.Microseconds()
	if micros < 1 {
		micros = 1
	}
	e.aggHistMu.Lock()
	e.aggHist.RecordValue(micros)
	e.aggHistMu.Unlock()
}

// Shutdown stops the engine: no new writes are accepted, the scheduler
// is cancelled and awaited, every key with buffered samples is drained
// exactly once, and the storage backend is closed. Calling Shutdown
// again returns the first call's result without repeating any of it.
//
// ctx bounds the final persistence writes; on cancellation the
// remaining aggregations still fold into memory and surface their
// persistence errors through the error channel.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.shutdownOnce.Do(func() {
		e.closed.Store(true)
		e.cancel()
		e.wg.Wait()

		for _, key := range e.buffers.Keys() {
			e.aggregate(ctx, key)
		}

		if err := e.store.Close(); err != nil {
			e.shutdownErr = fmt.Errorf("engine: close storage: %w", err)
		}

		e.log.Info("engine stopped",
			zap.Int64("samples_ingested", e.samplesIngested.Load()),
			zap.Int64("aggregations", e.aggregationsRun.Load()))
	})
	return e.shutdownErr
}
