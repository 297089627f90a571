package analytics

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DefaultMinimumSamples is the baseline count below which no anomaly
// judgement is made.
const DefaultMinimumSamples = 30

// DefaultDeviationThreshold is the z-score at which a value becomes
// anomalous (classic 3-sigma).
const DefaultDeviationThreshold = 3.0

// Detector classifies incoming values against their key's baseline
// statistics.
//
// A value deviating by at least the threshold (in standard deviations)
// is medium severity; at least twice the threshold is high. Keys whose
// baseline has seen fewer than minimumSamples values are never flagged:
// there is not enough history to judge deviation.
type Detector struct {
	baselines      *BaselineStore
	minimumSamples uint64
	threshold      float64
}

// NewDetector creates a detector reading baselines from the given
// store. minimumSamples and threshold fall back to the defaults when
// zero or negative.
func NewDetector(baselines *BaselineStore, minimumSamples int, threshold float64) *Detector {
	if minimumSamples <= 0 {
		minimumSamples = DefaultMinimumSamples
	}
	if threshold <= 0 {
		threshold = DefaultDeviationThreshold
	}
	return &Detector{
		baselines:      baselines,
		minimumSamples: uint64(minimumSamples),
		threshold:      threshold,
	}
}

// Detect judges one value against the key's baseline and returns an
// AnomalyEvent, or nil when the value is unremarkable.
//
// Non-finite values yield nil: no anomaly decision is possible, and
// metric recording must never disturb the caller. A zero-variance
// baseline treats any departure from the mean as high severity: when
// a metric has been perfectly constant, any change is structurally
// anomalous. The reported deviation in that case is twice the
// threshold, the smallest value that classifies as high, since the
// true z-score is unbounded.
func (d *Detector) Detect(key, metric string, tags map[string]string, value float64, now time.Time) *AnomalyEvent {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}

	b, ok := d.baselines.Get(key)
	if !ok || b.Count < d.minimumSamples {
		return nil
	}

	var deviation float64
	switch {
	case b.StdDev > 0:
		deviation = math.Abs(value-b.Mean) / b.StdDev
	case value != b.Mean:
		deviation = 2 * d.threshold
	default:
		return nil
	}

	if deviation < d.threshold {
		return nil
	}

	severity := SeverityMedium
	if deviation >= 2*d.threshold {
		severity = SeverityHigh
	}

	return &AnomalyEvent{
		ID:        uuid.NewString(),
		Metric:    metric,
		Value:     value,
		Tags:      tags,
		Deviation: deviation,
		Severity:  severity,
		Timestamp: now,
	}
}
