package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docpipe/metron/internal/output"
	"github.com/docpipe/metron/internal/storage"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List metric keys with persisted history",
	Long: `List every metric key a previous engine run aggregated into the
database, with total sample counts and last-seen times.

Example:
  metron keys --db metron.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runKeys(cmd)
	},
}

func init() {
	keysCmd.Flags().String("db", "metron.db", "SQLite database path")
	keysCmd.Flags().Bool("no-color", false, "Disable colored output")
}

func runKeys(cmd *cobra.Command) error {
	dbPath, _ := cmd.Flags().GetString("db")
	noColor, _ := cmd.Flags().GetBool("no-color")

	if !noColor && !stdoutIsTerminal() {
		noColor = true
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	keys, err := store.ListKeys(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing keys: %w", err)
	}

	formatter := output.NewFormatter(noColor)
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatKeys(keys))
	return nil
}
