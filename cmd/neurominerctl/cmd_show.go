package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NikolayNebudi/neuro-miner/internal/stats"
)

func newShowCmd(opts *rootOptions) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a run's configuration and per-generation diagnostics",
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

			cfg, err := client.RunConfig(runID)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}
			diagnostics, err := client.Diagnostics(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s scape=%s engine=%q\n", cfg.RunID, cfg.Scape, strings.Join(cfg.EngineCommand, " "))
			fmt.Fprintf(out, "population=%d elite=%d generations=%d episodes=%d seed=%d resumed=%t\n",
				cfg.PopulationSize, cfg.EliteCount, cfg.Generations, cfg.Episodes, cfg.Seed, cfg.Resumed)
			fmt.Fprintf(out, "crossover=%.2f mutation_rate=%.3f mutation_strength=%.3f\n",
				cfg.CrossoverRate, cfg.MutationRate, cfg.MutationStrength)
			fmt.Fprintln(out, stats.GenerationTable(diagnostics, mode))
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run to show")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
