// Package config loads and validates the engine configuration.
//
// Files may be YAML or JSON (decided by extension). Loading goes
// through two gates before a config is usable: structural validation
// against an embedded JSON Schema, then semantic validation of the
// values. Both fail fast so a bad configuration never reaches a running
// engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file-level engine configuration. Durations are strings
// ("5s", "1m") so files stay readable; accessor methods return parsed
// values after Validate has run.
type Config struct {
	// FlushInterval is how often the scheduler aggregates every key.
	FlushInterval string `json:"flushInterval" yaml:"flushInterval"`

	// BufferLimit is the per-key sample count that forces an early
	// aggregation ahead of the timer.
	BufferLimit int `json:"bufferLimit" yaml:"bufferLimit"`

	// MinimumSamples is the baseline count below which anomaly
	// detection stays silent.
	MinimumSamples int `json:"minimumSamples" yaml:"minimumSamples"`

	// DeviationThreshold is the z-score at which a value becomes
	// anomalous.
	DeviationThreshold float64 `json:"deviationThreshold" yaml:"deviationThreshold"`

	// Windows are the moving-average window sizes.
	Windows []string `json:"windows" yaml:"windows"`

	Storage StorageConfig `json:"storage" yaml:"storage"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Path is the SQLite database file; ":memory:" for ephemeral.
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `json:"level,omitempty" yaml:"level,omitempty"`
	Development bool   `json:"development,omitempty" yaml:"development,omitempty"`
	File        string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB   int    `json:"maxSizeMB,omitempty" yaml:"maxSizeMB,omitempty"`
	MaxBackups  int    `json:"maxBackups,omitempty" yaml:"maxBackups,omitempty"`
}

// Default returns the configuration used when a field is omitted.
func Default() Config {
	return Config{
		FlushInterval:      "5s",
		BufferLimit:        1000,
		MinimumSamples:     30,
		DeviationThreshold: 3,
		Windows:            []string{"1m", "5m", "15m"},
		Storage:            StorageConfig{Path: "metron.db"},
		Logging:            LoggingConfig{Level: "info"},
	}
}

// Load reads, schema-checks, decodes, defaults, and validates a
// configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses configuration data. The format is determined by the
// file extension in path; anything that is not .json is parsed as
// YAML (which also accepts JSON).
func Parse(data []byte, path string) (*Config, error) {
	normalized, err := normalize(data, path)
	if err != nil {
		return nil, err
	}

	if err := validateSchema(normalized); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize converts the raw file bytes into canonical JSON so the
// schema validator and the typed decoder see identical value types.
func normalize(data []byte, path string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		if !json.Valid(data) {
			return nil, fmt.Errorf("failed to parse JSON config %s", path)
		}
		return data, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize config: %w", err)
	}
	return normalized, nil
}

// FlushIntervalDuration returns the parsed flush interval. Only valid
// after Validate has succeeded.
func (c *Config) FlushIntervalDuration() time.Duration {
	d, _ := ParseDurationString(c.FlushInterval)
	return d
}

// WindowDurations returns the parsed window sizes. Only valid after
// Validate has succeeded.
func (c *Config) WindowDurations() []time.Duration {
	out := make([]time.Duration, 0, len(c.Windows))
	for _, w := range c.Windows {
		d, _ := ParseDurationString(w)
		out = append(out, d)
	}
	return out
}

// ParseDurationString parses a duration string with support for common
// formats.
//
// Supported formats:
//   - Standard Go duration: "30s", "2m", "1h30m", "500ms"
//   - Seconds as integer: "30" (treated as 30 seconds)
func ParseDurationString(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	var seconds int
	if _, err := fmt.Sscanf(s, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}
