package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/riskladder/internal/journal"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded trades from the journal, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.cfg.Journal.Enabled {
				return fmt.Errorf("journal is disabled, set journal.enabled in the config")
			}

			j, err := journal.NewSQLite(opts.cfg.Journal.DBPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			records, err := j.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list trades: %w", err)
			}

			renderHistory(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of trades to show")
	return cmd
}
