package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/docpipe/metron/internal/analytics"
	"github.com/docpipe/metron/internal/config"
	"github.com/docpipe/metron/internal/engine"
	"github.com/docpipe/metron/internal/logging"
	"github.com/docpipe/metron/internal/output"
	"github.com/docpipe/metron/internal/storage"
)

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Replay a recorded metric stream through the engine",
	Long: `Feed newline-delimited JSON samples through a live engine, printing
anomalies as they are detected and a summary when the stream ends.
Reads from stdin when no file is given.

Each line is one sample:

  {"metric": "api.latency", "value": 142.5, "tags": {"region": "us-east"}}

Unparseable lines are counted and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd, args)
	},
}

func init() {
	replayCmd.Flags().StringP("config", "c", "", "Engine configuration file (YAML or JSON)")
	replayCmd.Flags().String("db", "", "SQLite database path (overrides config)")
	replayCmd.Flags().Bool("no-color", false, "Disable colored output")
	replayCmd.Flags().BoolP("quiet", "q", false, "Suppress per-anomaly output, print only the summary")
}

func runReplay(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	dbPath, _ := cmd.Flags().GetString("db")
	noColor, _ := cmd.Flags().GetBool("no-color")
	quiet, _ := cmd.Flags().GetBool("quiet")

	if !noColor && !stdoutIsTerminal() {
		noColor = true
	}

	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = *loaded
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	eng, err := engine.New(cmd.Context(), engine.Options{
		Store:              store,
		Logger:             logger,
		FlushInterval:      cfg.FlushIntervalDuration(),
		BufferLimit:        cfg.BufferLimit,
		MinimumSamples:     cfg.MinimumSamples,
		DeviationThreshold: cfg.DeviationThreshold,
		Windows:            cfg.WindowDurations(),
	})
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	formatter := output.NewFormatter(noColor)

	if !quiet {
		eng.OnAnomaly(func(ev analytics.AnomalyEvent) {
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatAnomaly(ev))
		})
	}
	eng.OnError(func(err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", output.ErrorIcon(noColor), err)
	})

	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	fed, skipped := feedStream(eng, in)

	// Capture the live window averages before shutdown tears them down.
	current := eng.CurrentMetrics()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Replayed %d samples (%d skipped)\n", fed, skipped)
	if !quiet && len(current) > 0 {
		fmt.Fprint(out, formatter.FormatCurrent(current))
	}
	fmt.Fprint(out, formatter.FormatSnapshot(eng.Snapshot()))
	return nil
}

// feedStream records every parseable NDJSON line and returns how many
// samples were fed and how many lines were skipped.
func feedStream(eng *engine.Engine, in io.Reader) (fed, skipped int) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		metric := gjson.Get(line, "metric")
		value := gjson.Get(line, "value")
		if !metric.Exists() || metric.String() == "" || !value.Exists() {
			skipped++
			continue
		}

		var tags map[string]string
		if t := gjson.Get(line, "tags"); t.IsObject() {
			tags = make(map[string]string)
			t.ForEach(func(k, v gjson.Result) bool {
				tags[k.String()] = v.String()
				return true
			})
		}

		eng.RecordMetric(metric.String(), value.Float(), tags)
		fed++
	}
	return fed, skipped
}
