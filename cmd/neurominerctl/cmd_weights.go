package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NikolayNebudi/neuro-miner/internal/stats"
	"github.com/NikolayNebudi/neuro-miner/pkg/neurominer"
)

func newWeightsCmd(opts *rootOptions) *cobra.Command {
	var ref neurominer.CheckpointRef
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Dump the decoded decision weights of a saved individual",
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

			rows, cp, err := client.Weights(cmd.Context(), ref)
			if err != nil {
				return fmt.Errorf("weights: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "individual=%s layout=v%d fitness=%.2f\n", cp.Individual.ID, cp.Individual.LayoutVersion, cp.Individual.Fitness)
			fmt.Fprintln(out, stats.WeightsTable(rows, mode))
			return nil
		},
	}
	addCheckpointFlags(cmd, &ref)
	return cmd
}
