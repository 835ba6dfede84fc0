package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikolayNebudi/neuro-miner/internal/stats"
	"github.com/NikolayNebudi/neuro-miner/pkg/neurominer"
)

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var req neurominer.RunsRequest
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := opts.mode()
			if err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			entries, err := client.Runs(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("runs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			fmt.Fprintln(out, stats.RunsTable(entries, time.Now(), mode))
			return nil
		},
	}
	cmd.Flags().IntVar(&req.Limit, "limit", 20, "Maximum runs to list")
	return cmd
}
