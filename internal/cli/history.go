package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/docpipe/metron/internal/config"
	"github.com/docpipe/metron/internal/output"
	"github.com/docpipe/metron/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history <metric>",
	Short: "Query aggregated history for a metric",
	Long: `Query the bucketed aggregation history a previous engine run persisted.

Examples:
  metron history api.latency --db metron.db --since 1h
  metron history api.latency --tag region=us-east --since 24h --granularity 5m`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(cmd, args)
	},
}

func init() {
	historyCmd.Flags().String("db", "metron.db", "SQLite database path")
	historyCmd.Flags().StringArray("tag", nil, "Tag filter as key=value (repeatable)")
	historyCmd.Flags().String("since", "1h", "How far back to query (Go duration)")
	historyCmd.Flags().String("granularity", "1m", "Bucket width (Go duration)")
	historyCmd.Flags().Bool("no-color", false, "Disable colored output")
}

func runHistory(cmd *cobra.Command, args []string) error {
	metric := args[0]
	dbPath, _ := cmd.Flags().GetString("db")
	tagFlags, _ := cmd.Flags().GetStringArray("tag")
	sinceStr, _ := cmd.Flags().GetString("since")
	granStr, _ := cmd.Flags().GetString("granularity")
	noColor, _ := cmd.Flags().GetBool("no-color")

	if !noColor && !stdoutIsTerminal() {
		noColor = true
	}

	tags, err := parseTagFlags(tagFlags)
	if err != nil {
		return err
	}

	since, err := config.ParseDurationString(sinceStr)
	if err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}
	granularity, err := config.ParseDurationString(granStr)
	if err != nil {
		return fmt.Errorf("invalid --granularity: %w", err)
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	now := time.Now().UTC()
	buckets, err := store.QueryHistory(cmd.Context(), metric, tags, now.Add(-since), now, granularity)
	if err != nil {
		return fmt.Errorf("querying history: %w", err)
	}

	formatter := output.NewFormatter(noColor)
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatHistory(metric, buckets))
	return nil
}

// parseTagFlags turns repeated key=value flags into a tag map.
func parseTagFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	tags := make(map[string]string, len(flags))
	for _, f := range flags {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --tag %q, expected key=value", f)
		}
		tags[k] = v
	}
	return tags, nil
}
