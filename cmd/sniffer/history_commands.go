package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sniffer/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				entries, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No downloads recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					outcome := e.Outcome
					if e.TagOutcome != "" {
						outcome += " / tags " + e.TagOutcome
					}
					rows = append(rows, []string{
						strconv.FormatInt(e.ID, 10),
						formatTime(e.CreatedAt),
						e.Kind,
						fallback(e.Title, e.AssetID+"."+e.Extension),
						outcome,
						fallback(e.Destination, e.Error),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "When", "Kind", "Title", "Outcome", "Destination"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every ledger entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries\n", removed)
				return nil
			})
		},
	}
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func fallback(value, alt string) string {
	if value != "" {
		return value
	}
	return alt
}
