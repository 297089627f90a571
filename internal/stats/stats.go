// Package stats contains the pure statistics math for the analytics
// engine: one-pass batch summaries, nearest-rank percentiles, and the
// baseline fold used for anomaly reference tracking.
package stats

import (
	"math"
	"sort"
	"time"
)

// Summary is the immutable statistical snapshot of one drained batch of
// samples. It is the unit handed to persistence and folded into the
// per-key baseline.
type Summary struct {
	Count      int64     `json:"count"`
	Sum        float64   `json:"sum"`
	SumSquares float64   `json:"sumSquares"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
	Avg        float64   `json:"avg"`
	Last       float64   `json:"last"`
	P50        float64   `json:"p50"`
	P95        float64   `json:"p95"`
	P99        float64   `json:"p99"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
}

// Summarize computes a Summary over a batch of values and their
// timestamps in one pass plus a sort for the percentiles.
//
// Values must be in append order; Last is the final element, matching
// the chronologically last sample under the buffer's FIFO guarantee.
// StartTime/EndTime are the minimum and maximum timestamps seen, which
// tolerates minor clock skew between producers.
//
// Returns ok=false for an empty batch.
func Summarize(values []float64, times []time.Time) (Summary, bool) {
	if len(values) == 0 {
		return Summary{}, false
	}

	s := Summary{
		Count:     int64(len(values)),
		Min:       values[0],
		Max:       values[0],
		Last:      values[len(values)-1],
		StartTime: times[0],
		EndTime:   times[0],
	}

	for i, v := range values {
		s.Sum += v
		s.SumSquares += v * v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		if times[i].Before(s.StartTime) {
			s.StartTime = times[i]
		}
		if times[i].After(s.EndTime) {
			s.EndTime = times[i]
		}
	}
	s.Avg = s.Sum / float64(s.Count)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s.P50 = Percentile(sorted, 0.50)
	s.P95 = Percentile(sorted, 0.95)
	s.P99 = Percentile(sorted, 0.99)

	return s, true
}

// Percentile returns the nearest-rank percentile of an ascending-sorted
// slice. p is a fraction in (0, 1].
//
// The rank is ceil(p*n), so small batches degrade sensibly: p99 over 5
// samples is the max, p50 over 10 samples is the 5th value. Callers
// must not pass an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Ceil(p*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Baseline is the running reference statistic for one metric key.
//
// It is only ever advanced by folding in completed batch summaries,
// never by raw samples, so short bursts are smoothed by the aggregation
// interval before they can move the reference.
type Baseline struct {
	Count      uint64  `json:"count"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"stdDev"`
	Sum        float64 `json:"sum"`
	SumSquares float64 `json:"sumSquares"`
}

// Fold merges a batch summary into the baseline and returns the updated
// baseline.
//
// Variance is carried through the sum-of-squares identity so a baseline
// rebuilt from persisted aggregates matches the in-memory one. The
// sqrt argument is clamped at zero: with large counts the identity can
// go fractionally negative through rounding.
func (b Baseline) Fold(s Summary) Baseline {
	if s.Count <= 0 {
		return b
	}

	b.Count += uint64(s.Count)
	b.Sum += s.Sum
	b.SumSquares += s.SumSquares
	b.Mean = b.Sum / float64(b.Count)

	variance := b.SumSquares/float64(b.Count) - b.Mean*b.Mean
	if variance < 0 {
		variance = 0
	}
	b.StdDev = math.Sqrt(variance)

	return b
}
