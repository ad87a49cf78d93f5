package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sniffer/internal/daemon"
	"sniffer/internal/history"
	"sniffer/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a sniffer is running, ledger totals and host checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			running, err := daemon.Locked(cfg.LockPath())
			if err != nil {
				return fmt.Errorf("check instance lock: %w", err)
			}
			fmt.Fprintf(out, "Running: %s\n", yesNo(running))
			fmt.Fprintf(out, "Target host: %s\n", cfg.Capture.TargetHost)
			fmt.Fprintf(out, "Output: %s\n", cfg.Paths.OutputDir)

			if err := withHistory(ctx, func(store *history.Store) error {
				summary, err := store.Summarize(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Downloads: %d total, %d saved, %d skipped, %d failed (last %s)\n",
					summary.Total, summary.Success, summary.Skipped, summary.Failed, formatTime(summary.Last))
				return nil
			}); err != nil {
				return err
			}

			if skipChecks {
				return nil
			}
			results := preflight.RunAll(cmd.Context(), cfg, ctx.lister)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipChecks, "no-checks", false, "Skip host and catalog checks")
	return cmd
}
