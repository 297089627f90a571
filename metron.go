package metron

import (
	"context"
	"fmt"

	"github.com/docpipe/metron/internal/analytics"
	"github.com/docpipe/metron/internal/config"
	"github.com/docpipe/metron/internal/engine"
	"github.com/docpipe/metron/internal/logging"
	"github.com/docpipe/metron/internal/stats"
	"github.com/docpipe/metron/internal/storage"
)

// Engine is the embedded metrics analytics engine. See engine.Engine
// for the full API.
type Engine = engine.Engine

// Options configures an Engine created with New.
type Options = engine.Options

// Snapshot is a point-in-time view of an engine's own counters and
// aggregation latency.
type Snapshot = engine.Snapshot

// AnomalyEvent describes one value that deviated from its metric's
// baseline.
type AnomalyEvent = analytics.AnomalyEvent

// Severity classifies an anomaly.
type Severity = analytics.Severity

// Severity levels.
const (
	SeverityMedium = analytics.SeverityMedium
	SeverityHigh   = analytics.SeverityHigh
)

// Summary is one aggregation pass's statistical summary.
type Summary = stats.Summary

// Baseline is a metric key's accumulated reference statistics.
type Baseline = stats.Baseline

// HistoryBucket is one bucket of aggregated history.
type HistoryBucket = storage.HistoryBucket

// Store is the persistence boundary for aggregations and baselines.
type Store = storage.Store

// KeyInfo describes one known metric key in the aggregate history.
type KeyInfo = storage.KeyInfo

// NewSQLiteStore opens (or creates) a SQLite-backed Store at path and
// applies pending migrations. Pass ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (Store, error) {
	s, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Config is the file-level engine configuration.
type Config = config.Config

// New starts an engine with the given options. Store is required.
func New(ctx context.Context, opts Options) (*Engine, error) {
	return engine.New(ctx, opts)
}

// Open starts an engine from a configuration file: it builds the
// logger and the SQLite store the file names, then wires them into the
// engine. This is the one-call path for applications that do not need
// custom storage.
func Open(ctx context.Context, configPath string) (*Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	eng, err := engine.New(ctx, engine.Options{
		Store:              store,
		Logger:             logger,
		FlushInterval:      cfg.FlushIntervalDuration(),
		BufferLimit:        cfg.BufferLimit,
		MinimumSamples:     cfg.MinimumSamples,
		DeviationThreshold: cfg.DeviationThreshold,
		Windows:            cfg.WindowDurations(),
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return eng, nil
}
