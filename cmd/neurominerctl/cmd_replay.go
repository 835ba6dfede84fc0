package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikolayNebudi/neuro-miner/internal/stats"
	"github.com/NikolayNebudi/neuro-miner/pkg/neurominer"
)

func newReplayCmd(opts *rootOptions) *cobra.Command {
	var (
		req             neurominer.ReplayRequest
		engineCommand   []string
		responseTimeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Play a saved individual and report each game",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := opts.mode()
			if err != nil {
				return err
			}
			req.Engine.Command = engineCommand
			req.Engine.ResponseTimeout = responseTimeout

			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Replay(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}

			out := cmd.OutOrStdout()
			cp := summary.Checkpoint
			fmt.Fprintf(out, "individual=%s run=%s generation=%d fitness=%.2f\n", cp.Individual.ID, cp.RunID, cp.Generation, cp.Individual.Fitness)
			fmt.Fprintln(out, stats.ReplayTable(summary.Results, mode))
			fmt.Fprintf(out, "win_rate=%s mean_fitness=%.2f\n", stats.WinRateLabel(summary.Wins, len(summary.Results)), summary.MeanFitness)
			return nil
		},
	}

	addCheckpointFlags(cmd, &req.Checkpoint)
	f := cmd.Flags()
	f.IntVar(&req.Games, "games", 10, "Games to play")
	f.IntVar(&req.MaxSteps, "max-steps", 1000, "Step limit per game")
	f.StringSliceVar(&engineCommand, "engine", nil, "Engine command and arguments, comma separated")
	f.StringVar(&req.Engine.Dir, "engine-dir", "", "Working directory of the engine process")
	f.DurationVar(&responseTimeout, "response-timeout", 0, "Per-response engine timeout (default 10s)")
	f.BoolVar(&req.Engine.TolerateRejected, "tolerate-rejected", false, "Accept actions the engine executed as rejected")
	return cmd
}
