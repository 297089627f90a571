package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "metron",
	Short:   "An embedded real-time metrics analytics engine",
	Version: version,
	Long: `Metron is an embedded metrics analytics engine: applications record
measurements in-process and metron maintains moving averages, aggregates
summaries into SQLite, and flags anomalous values against each metric's
learned baseline.

This CLI replays recorded metric streams through the engine and queries
the aggregated history it leaves behind.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stdoutIsTerminal reports whether stdout is an interactive terminal,
// used to pick the color default.
func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func init() {
	// Add subcommands to root command
	RootCmd.AddCommand(replayCmd)
	RootCmd.AddCommand(historyCmd)
	RootCmd.AddCommand(keysCmd)
}
