package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"umservice/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int
	var pruneFlag time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded batch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.History.Path) == "" {
				return fmt.Errorf("history is not configured (set history.path in the config)")
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if pruneFlag > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-pruneFlag))
				if err != nil {
					return fmt.Errorf("prune history: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d record(s) older than %s\n", removed, pruneFlag)
			}

			records, err := store.List(cmd.Context(), limitFlag)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recorded batches")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				session := rec.SessionID
				if session == "" {
					session = "-"
				}
				rows = append(rows, []string{
					strconv.FormatInt(rec.ID, 10),
					rec.Mode,
					rec.Status,
					fmt.Sprintf("%d/%d", rec.SuccessCount, rec.TotalFiles),
					rec.Duration.Truncate(time.Millisecond).String(),
					rec.CreatedAt.Local().Format(time.DateTime),
					session,
				})
			}
			headers := []string{"ID", "Mode", "Status", "OK", "Duration", "Started", "Session"}
			aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 20, "Maximum number of records to show (0 for all)")
	cmd.Flags().DurationVar(&pruneFlag, "prune", 0, "Delete records older than this duration before listing")
	return cmd
}
