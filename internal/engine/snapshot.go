package engine

import (
	"time"
)

// Snapshot is a point-in-time view of the engine's own behavior,
// intended for status/reporting surfaces.
type Snapshot struct {
	SamplesIngested  int64 `json:"samplesIngested"`
	SamplesInvalid   int64 `json:"samplesInvalid"`
	SamplesDropped   int64 `json:"samplesDropped"`
	AnomaliesEmitted int64 `json:"anomaliesEmitted"`
	AggregationsRun  int64 `json:"aggregationsRun"`

	// BaselineKeys is the number of keys with an established baseline.
	BaselineKeys int `json:"baselineKeys"`

	// Aggregation is the latency distribution of single-key
	// aggregation passes, persistence included.
	Aggregation AggregationStats `json:"aggregation"`

	StartTime time.Time     `json:"startTime"`
	Uptime    time.Duration `json:"uptime"`
}

// AggregationStats summarizes aggregation pass latency.
type AggregationStats struct {
	Count int64         `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
}

// Snapshot captures the engine's counters and aggregation latency
// distribution.
func (e *Engine) Snapshot() Snapshot {
	e.aggHistMu.Lock()
	agg := AggregationStats{
		Count: e.aggHist.TotalCount(),
		Min:   time.Duration(e.aggHist.Min()) * time.Microsecond,
		Max:   time.Duration(e.aggHist.Max()) * time.Microsecond,
		Mean:  time.Duration(e.aggHist.Mean()) * time.Microsecond,
		P50:   time.Duration(e.aggHist.ValueAtQuantile(50)) * time.Microsecond,
		P95:   time.Duration(e.aggHist.ValueAtQuantile(95)) * time.Microsecond,
		P99:   time.Duration(e.aggHist.ValueAtQuantile(99)) * time.Microsecond,
	}
	e.aggHistMu.Unlock()

	return Snapshot{
		SamplesIngested:  e.samplesIngested.Load(),
		SamplesInvalid:   e.samplesInvalid.Load(),
		SamplesDropped:   e.samplesDropped.Load(),
		AnomaliesEmitted: e.anomaliesEmitted.Load(),
		AggregationsRun:  e.aggregationsRun.Load(),
		BaselineKeys:     e.baselines.Len(),
		Aggregation:      agg,
		StartTime:        e.startTime,
		Uptime:           time.Since(e.startTime),
	}
}
