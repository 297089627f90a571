// Package analytics holds the in-memory hot-path state of the engine:
// per-key sample buffers, moving-average windows, baseline statistics,
// and the online anomaly detector.
//
// Everything in this package is synchronized per key. Concurrent
// writers to different keys never contend; concurrent writers to the
// same key serialize on that key only. Nothing here performs I/O.
package analytics

import (
	"time"
)

// Sample is a single recorded measurement. It is immutable once
// created and owned by its buffer until drained by the aggregator.
type Sample struct {
	Value     float64
	Tags      map[string]string
	Timestamp time.Time
}

// Severity classifies how far an anomalous value sits from its
// baseline.
type Severity string

const (
	// SeverityMedium marks deviations between the threshold and twice
	// the threshold.
	SeverityMedium Severity = "medium"

	// SeverityHigh marks deviations at or beyond twice the threshold,
	// and any change on a zero-variance baseline.
	SeverityHigh Severity = "high"
)

// AnomalyEvent describes a statistically anomalous sample. Events are
// emitted to subscribers and not retained by the engine.
type AnomalyEvent struct {
	ID        string            `json:"id"`
	Metric    string            `json:"metric"`
	Value     float64           `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
	Deviation float64           `json:"deviation"`
	Severity  Severity          `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
}
