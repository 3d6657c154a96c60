package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitrun/packages/core/config"
	"github.com/abdul-hamid-achik/hitrun/packages/history"
)

var (
	historyLimitFlag int
	historyPathFlag  string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded runs",
	Long: `Show runs recorded with run --history. With a run id, list that run's
blocks.

Examples:
  hitrun history --history runs.db
  hitrun history --limit 20
  hitrun history 0b9a3c1e-...`,
	Args: cobra.MaximumNArgs(1),
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", getEnvInt("HITRUN_HISTORY_LIMIT", 10), "Number of runs to show (env: HITRUN_HISTORY_LIMIT)")
	historyCmd.Flags().StringVar(&historyPathFlag, "history", getEnvString("HITRUN_HISTORY", ""), "SQLite database of recorded runs (env: HITRUN_HISTORY)")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	path := historyPathFlag
	if path == "" {
		cfg, err := config.Load(configFlag)
		if err != nil {
			return err
		}
		path = cfg.History
	}
	if path == "" {
		return fmt.Errorf("no history database configured (use --history or set history in the config file)")
	}

	store, err := history.Open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 1 {
		blocks, err := store.Blocks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "LOCATION\tSTATE\tSTATUS\tDURATION\tDESCRIPTION\tERROR")
		for _, b := range blocks {
			fmt.Fprintf(w, "%s:%d\t%s\t%d\t%s\t%s\t%s\n", b.File, b.Line, b.State, b.Status, b.Duration.Round(time.Millisecond), b.Description, b.Error)
		}
		return nil
	}

	runs, err := store.Recent(cmd.Context(), historyLimitFlag)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintln(w, "ID\tSTARTED\tPASSED\tFAILED\tIGNORED\tDURATION\tEXIT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Passed, r.Failed, r.Ignored,
			r.Duration.Round(time.Millisecond), r.ExitCode)
	}
	return nil
}
