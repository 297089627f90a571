package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "metron.yaml", `
flushInterval: 2s
bufferLimit: 500
minimumSamples: 10
deviationThreshold: 2.5
windows: ["30s", "5m"]
storage:
  path: ":memory:"
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.FlushIntervalDuration() != 2*time.Second {
		t.Errorf("flush interval = %v", cfg.FlushIntervalDuration())
	}
	if cfg.BufferLimit != 500 {
		t.Errorf("bufferLimit = %d", cfg.BufferLimit)
	}
	ws := cfg.WindowDurations()
	if len(ws) != 2 || ws[0] != 30*time.Second || ws[1] != 5*time.Minute {
		t.Errorf("windows = %v", ws)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q", cfg.Logging.Level)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "metron.json", `{
  "flushInterval": "1s",
  "windows": ["1m"],
  "storage": {"path": "metron.db"}
}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.FlushIntervalDuration() != time.Second {
		t.Errorf("flush interval = %v", cfg.FlushIntervalDuration())
	}
	// Omitted fields take defaults.
	if cfg.BufferLimit != 1000 {
		t.Errorf("bufferLimit default = %d, want 1000", cfg.BufferLimit)
	}
	if cfg.MinimumSamples != 30 {
		t.Errorf("minimumSamples default = %d, want 30", cfg.MinimumSamples)
	}
}

func TestParse_SchemaRejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte(`{"flushInterva": "1s"}`), "m.json")
	if err == nil || !strings.Contains(err.Error(), "schema") {
		t.Errorf("unknown field not rejected by schema: %v", err)
	}
}

func TestParse_SchemaRejectsWrongType(t *testing.T) {
	_, err := Parse([]byte("bufferLimit: many\n"), "m.yaml")
	if err == nil {
		t.Error("non-integer bufferLimit accepted")
	}
}

func TestValidate_Rules(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero flush interval", func(c *Config) { c.FlushInterval = "0s" }, "flushInterval"},
		{"bad flush interval", func(c *Config) { c.FlushInterval = "soon" }, "flushInterval"},
		{"zero buffer limit", func(c *Config) { c.BufferLimit = 0 }, "bufferLimit"},
		{"negative threshold", func(c *Config) { c.DeviationThreshold = -1 }, "deviationThreshold"},
		{"no windows", func(c *Config) { c.Windows = nil }, "windows"},
		{"duplicate windows", func(c *Config) { c.Windows = []string{"60s", "1m"} }, "windows[1]"},
		{"zero window", func(c *Config) { c.Windows = []string{"0s"} }, "windows[0]"},
		{"empty storage path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() accepted invalid config")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not mention field %q", err, tc.field)
			}
		})
	}
}

func TestValidate_DefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestParseDurationString(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"1h30m", 90 * time.Minute},
		{"500ms", 500 * time.Millisecond},
		{"30", 30 * time.Second},
		{"", 0},
	}
	for _, tc := range cases {
		got, err := ParseDurationString(tc.in)
		if err != nil {
			t.Errorf("ParseDurationString(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDurationString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseDurationString("soon"); err == nil {
		t.Error("ParseDurationString(\"soon\") succeeded")
	}
}
