// Package telemetry exposes the engine's self-instrumentation on the
// default Prometheus registry. Serving /metrics is the embedding
// product's responsibility.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplesIngested counts samples accepted on the hot path.
	SamplesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metron_samples_ingested_total",
			Help: "Total number of metric samples accepted",
		},
	)

	// SamplesInvalid counts NaN/Inf samples skipped at recording time.
	SamplesInvalid = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metron_samples_invalid_total",
			Help: "Total number of non-finite samples skipped",
		},
	)

	// SamplesDroppedClosed counts samples rejected after shutdown began.
	SamplesDroppedClosed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metron_samples_dropped_closed_total",
			Help: "Total number of samples dropped because the engine was shut down",
		},
	)

	// AnomaliesDetected counts emitted anomaly events by severity.
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metron_anomalies_detected_total",
			Help: "Total number of anomaly events emitted",
		},
		[]string{"severity"},
	)

	// AggregationsRun counts completed (non-empty) aggregation passes.
	AggregationsRun = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metron_aggregations_total",
			Help: "Total number of buffer aggregations performed",
		},
	)

	// AggregationDuration observes how long one key's aggregation
	// (including persistence) takes.
	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "metron_aggregation_duration_seconds",
			Help:    "Duration of a single-key aggregation pass",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 100µs to ~1.6s
		},
	)

	// StorageRetries counts persistence attempts that were retried.
	StorageRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metron_storage_retries_total",
			Help: "Total number of retried persistence attempts",
		},
	)

	// PersistFailures counts aggregations whose persistence failed
	// after exhausting the retry budget.
	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metron_persist_failures_total",
			Help: "Total number of aggregations that could not be persisted",
		},
	)
)
