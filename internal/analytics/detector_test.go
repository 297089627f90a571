package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/docpipe/metron/internal/stats"
)

// matureBaseline is a store holding one key with a well-established
// baseline: count 1000, mean 100, stdDev 10.
func matureBaseline(key string) *BaselineStore {
	bst := NewBaselineStore()
	bst.Upsert(key, stats.Baseline{Count: 1000, Mean: 100, StdDev: 10})
	return bst
}

func TestDetector_WithinThreshold(t *testing.T) {
	d := NewDetector(matureBaseline("k"), 30, 3)

	if ev := d.Detect("k", "m", nil, 105, time.Now()); ev != nil {
		t.Errorf("Detect(105) = %+v, want nil (0.5 sigma)", ev)
	}
}

func TestDetector_MediumSeverity(t *testing.T) {
	d := NewDetector(matureBaseline("k"), 30, 3)

	ev := d.Detect("k", "m", map[string]string{"stage": "ocr"}, 130, time.Now())
	if ev == nil {
		t.Fatal("Detect(130) = nil, want medium anomaly")
	}
	if ev.Severity != SeverityMedium {
		t.Errorf("severity = %q, want medium", ev.Severity)
	}
	if math.Abs(ev.Deviation-3.0) > 1e-9 {
		t.Errorf("deviation = %v, want 3.0", ev.Deviation)
	}
	if ev.Metric != "m" || ev.Tags["stage"] != "ocr" {
		t.Errorf("event identity wrong: %+v", ev)
	}
	if ev.ID == "" {
		t.Error("event ID is empty")
	}
}

func TestDetector_HighSeverity(t *testing.T) {
	d := NewDetector(matureBaseline("k"), 30, 3)

	ev := d.Detect("k", "m", nil, 170, time.Now())
	if ev == nil {
		t.Fatal("Detect(170) = nil, want high anomaly")
	}
	if ev.Severity != SeverityHigh {
		t.Errorf("severity = %q, want high (7 sigma)", ev.Severity)
	}
}

func TestDetector_InsufficientSamples(t *testing.T) {
	bst := NewBaselineStore()
	bst.Upsert("k", stats.Baseline{Count: 29, Mean: 100, StdDev: 10})
	d := NewDetector(bst, 30, 3)

	if ev := d.Detect("k", "m", nil, 1e9, time.Now()); ev != nil {
		t.Errorf("Detect with count<minimum = %+v, want nil regardless of value", ev)
	}
}

func TestDetector_NoBaseline(t *testing.T) {
	d := NewDetector(NewBaselineStore(), 30, 3)

	if ev := d.Detect("k", "m", nil, 12345, time.Now()); ev != nil {
		t.Errorf("Detect with no baseline = %+v, want nil", ev)
	}
}

func TestDetector_ZeroStdDev(t *testing.T) {
	bst := NewBaselineStore()
	bst.Upsert("k", stats.Baseline{Count: 1000, Mean: 100, StdDev: 0})
	d := NewDetector(bst, 30, 3)

	// Any change on a constant baseline is maximal severity.
	ev := d.Detect("k", "m", nil, 100.001, time.Now())
	if ev == nil {
		t.Fatal("Detect on zero-variance baseline = nil, want high anomaly")
	}
	if ev.Severity != SeverityHigh {
		t.Errorf("severity = %q, want high", ev.Severity)
	}

	// The mean itself is not anomalous.
	if ev := d.Detect("k", "m", nil, 100, time.Now()); ev != nil {
		t.Errorf("Detect(mean) on zero-variance baseline = %+v, want nil", ev)
	}
}

func TestDetector_NonFiniteValues(t *testing.T) {
	d := NewDetector(matureBaseline("k"), 30, 3)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if ev := d.Detect("k", "m", nil, v, time.Now()); ev != nil {
			t.Errorf("Detect(%v) = %+v, want nil", v, ev)
		}
	}
}

func TestDetector_DefaultsApplied(t *testing.T) {
	bst := NewBaselineStore()
	bst.Upsert("k", stats.Baseline{Count: 29, Mean: 0, StdDev: 1})
	d := NewDetector(bst, 0, 0)

	// 29 < default minimum of 30.
	if ev := d.Detect("k", "m", nil, 100, time.Now()); ev != nil {
		t.Errorf("default minimumSamples not applied: %+v", ev)
	}
}
