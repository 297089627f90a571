// Package metron is an embedded real-time metrics analytics engine.
//
// Applications record measurements in-process; metron buffers them per
// metric key, maintains moving averages over configurable windows,
// periodically aggregates summaries into SQLite, and flags values that
// deviate from each metric's learned baseline.
//
// # Quick Start
//
// Open an engine from a configuration file and record metrics:
//
//	eng, _ := metron.Open(ctx, "metron.yaml")
//	defer eng.Shutdown(ctx)
//
//	eng.OnAnomaly(func(ev metron.AnomalyEvent) {
//	    log.Printf("anomaly: %s value=%g (%.1fσ)", ev.Metric, ev.Value, ev.Deviation)
//	})
//
//	eng.RecordMetric("api.latency", 142.5, map[string]string{"region": "us-east"})
//
// # Custom Wiring
//
// For full control over storage, logging, and tuning, build Options
// directly:
//
//	store, _ := metron.NewSQLiteStore("metron.db")
//	eng, _ := metron.New(ctx, metron.Options{
//	    Store:         store,
//	    FlushInterval: 10 * time.Second,
//	    Windows:       []time.Duration{time.Minute, 15 * time.Minute},
//	})
//
// # Querying
//
// Live per-window averages come from the engine; aggregated history is
// read back from storage:
//
//	current := eng.CurrentMetrics()
//	buckets, _ := eng.MetricHistory(ctx, "api.latency", nil, from, to, time.Minute)
package metron
