// Package output renders engine events and query results for the
// terminal, with colors that degrade cleanly when disabled.
package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docpipe/metron/internal/analytics"
	"github.com/docpipe/metron/internal/engine"
	"github.com/docpipe/metron/internal/storage"
)

// Formatter renders anomalies, history buckets, and engine snapshots
// in text format
type Formatter struct {
	NoColor bool
	scheme  *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(noColor bool) *Formatter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Formatter{
		NoColor: noColor,
		scheme:  scheme,
	}
}

// FormatAnomaly formats one anomaly event for display
func (f *Formatter) FormatAnomaly(ev analytics.AnomalyEvent) string {
	var buf strings.Builder

	sevColor := f.scheme.SeverityMed
	if ev.Severity == analytics.SeverityHigh {
		sevColor = f.scheme.SeverityHigh
	}

	buf.WriteString(fmt.Sprintf("%s ANOMALY %s %s",
		WarningIcon(f.NoColor),
		sevColor.Sprint(strings.ToUpper(string(ev.Severity))),
		f.scheme.MetricName.Sprint(ev.Metric)))

	if tags := formatTags(ev.Tags); tags != "" {
		buf.WriteString(f.scheme.Tag.Sprintf("{%s}", tags))
	}

	buf.WriteString(fmt.Sprintf(" value=%s deviation=%s at %s",
		f.scheme.Value.Sprintf("%g", ev.Value),
		f.scheme.Highlight.Sprintf("%.2fσ", ev.Deviation),
		ev.Timestamp.Format("15:04:05.000")))

	return buf.String()
}

// FormatHistory formats bucketed history for a metric
func (f *Formatter) FormatHistory(metric string, buckets []storage.HistoryBucket) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("History for %s (%d buckets)\n",
		f.scheme.MetricName.Sprint(metric), len(buckets)))

	if len(buckets) == 0 {
		buf.WriteString("  no data in range\n")
		return buf.String()
	}

	buf.WriteString(fmt.Sprintf("  %-20s %8s %12s %12s %12s %12s\n",
		f.scheme.Label.Sprint("BUCKET"),
		f.scheme.Label.Sprint("COUNT"),
		f.scheme.Label.Sprint("AVG"),
		f.scheme.Label.Sprint("MIN"),
		f.scheme.Label.Sprint("MAX"),
		f.scheme.Label.Sprint("SUM")))

	for _, b := range buckets {
		buf.WriteString(fmt.Sprintf("  %-20s %8d %12.3f %12.3f %12.3f %12.3f\n",
			b.Start.Format("2006-01-02 15:04:05"),
			b.Count, b.Avg, b.Min, b.Max, b.Sum))
	}

	return buf.String()
}

// FormatKeys formats the known metric keys with their history totals
func (f *Formatter) FormatKeys(keys []storage.KeyInfo) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("%d known keys\n", len(keys)))

	if len(keys) == 0 {
		return buf.String()
	}

	buf.WriteString(fmt.Sprintf("  %-40s %10s %20s\n",
		f.scheme.Label.Sprint("KEY"),
		f.scheme.Label.Sprint("SAMPLES"),
		f.scheme.Label.Sprint("LAST SEEN")))

	for _, k := range keys {
		buf.WriteString(fmt.Sprintf("  %-40s %10d %20s\n",
			f.scheme.MetricName.Sprint(k.Key),
			k.Count,
			k.LastSeen.Format("2006-01-02 15:04:05")))
	}

	return buf.String()
}

// FormatCurrent formats the per-window moving averages for every key
func (f *Formatter) FormatCurrent(current map[string]map[string]float64) string {
	var buf strings.Builder

	keys := make([]string, 0, len(current))
	for key := range current {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		buf.WriteString(fmt.Sprintf("%s\n", f.scheme.MetricName.Sprint(key)))

		byWindow := current[key]
		windows := make([]string, 0, len(byWindow))
		for w := range byWindow {
			windows = append(windows, w)
		}
		sort.Strings(windows)

		for _, w := range windows {
			buf.WriteString(fmt.Sprintf("  %s: %.3f\n",
				f.scheme.Label.Sprint(w), byWindow[w]))
		}
	}

	return buf.String()
}

// FormatSnapshot formats the engine's own counters and aggregation
// latency distribution
func (f *Formatter) FormatSnapshot(snap engine.Snapshot) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("%s Engine snapshot (up %s)\n",
		SuccessIcon(f.NoColor), snap.Uptime.Round(time.Millisecond)))
	buf.WriteString(fmt.Sprintf("  %s %d ingested, %d invalid, %d dropped\n",
		f.scheme.Label.Sprint("Samples:"),
		snap.SamplesIngested, snap.SamplesInvalid, snap.SamplesDropped))
	buf.WriteString(fmt.Sprintf("  %s %d emitted\n",
		f.scheme.Label.Sprint("Anomalies:"), snap.AnomaliesEmitted))
	buf.WriteString(fmt.Sprintf("  %s %d runs over %d baseline keys\n",
		f.scheme.Label.Sprint("Aggregations:"),
		snap.AggregationsRun, snap.BaselineKeys))

	if snap.Aggregation.Count > 0 {
		buf.WriteString(fmt.Sprintf("  %s p50=%s p95=%s p99=%s max=%s\n",
			f.scheme.Label.Sprint("Latency:"),
			snap.Aggregation.P50, snap.Aggregation.P95,
			snap.Aggregation.P99, snap.Aggregation.Max))
	}

	return buf.String()
}

func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}
	return strings.Join(parts, ",")
}
