package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikolayNebudi/neuro-miner/internal/stats"
	"github.com/NikolayNebudi/neuro-miner/pkg/neurominer"
)

type runFlags struct {
	config           string
	runID            string
	engineCommand    []string
	engineDir        string
	responseTimeout  time.Duration
	tolerateRejected bool
	population       int
	elite            int
	generations      int
	episodes         int
	maxSteps         int
	workers          int
	seed             int64
	selection        string
	tournamentSize   int
	crossoverRate    float64
	mutationRate     float64
	mutationStrength float64
	checkpointEvery  int
	solvedFitness    float64
	resume           bool
	summary          bool
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve strategies for a number of generations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request(cmd)
			if err != nil {
				return err
			}
			mode, err := opts.mode()
			if err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			out := cmd.OutOrStdout()
			if flags.summary {
				fmt.Fprintln(out, stats.GenerationTable(summary.Diagnostics, mode))
			}
			fmt.Fprintf(out, "run_id=%s generations=%d best=%.2f solved=%t\n", summary.RunID, summary.Generation, summary.FinalBestFitness, summary.Solved)
			fmt.Fprintf(out, "artifacts=%s\n", summary.ArtifactsDir)
			fmt.Fprintf(out, "checkpoint=%s\n", summary.CheckpointPath)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func (f *runFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "YAML run config; explicitly set flags override it")
	fs.StringVar(&f.runID, "run-id", "", "Run id (generated when empty; required with --resume)")
	fs.StringSliceVar(&f.engineCommand, "engine", nil, "Engine command and arguments, comma separated (default node,game_engine_headless.js)")
	fs.StringVar(&f.engineDir, "engine-dir", "", "Working directory of the engine process")
	fs.DurationVar(&f.responseTimeout, "response-timeout", 0, "Per-response engine timeout (default 10s)")
	fs.BoolVar(&f.tolerateRejected, "tolerate-rejected", false, "Accept actions the engine executed as rejected")
	fs.IntVar(&f.population, "population", 50, "Population size")
	fs.IntVar(&f.elite, "elite", 5, "Elites copied unchanged into the next generation")
	fs.IntVar(&f.generations, "generations", 100, "Generations to evaluate")
	fs.IntVar(&f.episodes, "episodes", 3, "Games played per evaluation")
	fs.IntVar(&f.maxSteps, "max-steps", 1000, "Step limit per game")
	fs.IntVar(&f.workers, "workers", 1, "Individuals evaluated in parallel, one engine each")
	fs.Int64Var(&f.seed, "seed", 0, "Random seed (time based when 0)")
	fs.StringVar(&f.selection, "selection", "tournament", "Parent selection: tournament or elite")
	fs.IntVar(&f.tournamentSize, "tournament-size", 3, "Tournament size")
	fs.Float64Var(&f.crossoverRate, "crossover-rate", 0.8, "Probability of crossover for a child")
	fs.Float64Var(&f.mutationRate, "mutation-rate", 0.1, "Initial per-gene mutation probability")
	fs.Float64Var(&f.mutationStrength, "mutation-strength", 0.2, "Initial mutation noise deviation")
	fs.IntVar(&f.checkpointEvery, "checkpoint-every", 10, "Periodic checkpoint interval in generations (0 disables)")
	fs.Float64Var(&f.solvedFitness, "solved-fitness", 0, "Stop once the best fitness reaches this value")
	fs.BoolVar(&f.resume, "resume", false, "Resume the run named by --run-id from its stored population or run directory")
	fs.BoolVar(&f.summary, "summary", false, "Print the per-generation table when done")
}

// request builds the run request from defaults, the config file and the
// flags that were set explicitly, in that order.
func (f *runFlags) request(cmd *cobra.Command) (neurominer.RunRequest, error) {
	req := neurominer.RunRequest{
		Population:      f.population,
		EliteCount:      f.elite,
		Generations:     f.generations,
		Episodes:        f.episodes,
		MaxSteps:        f.maxSteps,
		Workers:         f.workers,
		Selection:       f.selection,
		TournamentSize:  f.tournamentSize,
		CheckpointEvery: f.checkpointEvery,
	}
	req.Mutation.Rate = f.mutationRate
	req.Mutation.Strength = f.mutationStrength
	crossover := f.crossoverRate
	req.CrossoverRate = &crossover

	if f.config != "" {
		cfg, err := loadRunConfig(f.config)
		if err != nil {
			return neurominer.RunRequest{}, err
		}
		if err := cfg.apply(&req); err != nil {
			return neurominer.RunRequest{}, fmt.Errorf("config %s: %w", f.config, err)
		}
	}

	changed := cmd.Flags().Changed
	if changed("run-id") {
		req.RunID = f.runID
	}
	if changed("engine") {
		req.Engine.Command = f.engineCommand
	}
	if changed("engine-dir") {
		req.Engine.Dir = f.engineDir
	}
	if changed("response-timeout") {
		req.Engine.ResponseTimeout = f.responseTimeout
	}
	if changed("tolerate-rejected") {
		req.Engine.TolerateRejected = f.tolerateRejected
	}
	if changed("population") {
		req.Population = f.population
	}
	if changed("elite") {
		req.EliteCount = f.elite
	}
	if changed("generations") {
		req.Generations = f.generations
	}
	if changed("episodes") {
		req.Episodes = f.episodes
	}
	if changed("max-steps") {
		req.MaxSteps = f.maxSteps
	}
	if changed("workers") {
		req.Workers = f.workers
	}
	if changed("seed") {
		req.Seed = f.seed
	}
	if changed("selection") {
		req.Selection = f.selection
	}
	if changed("tournament-size") {
		req.TournamentSize = f.tournamentSize
	}
	if changed("crossover-rate") {
		crossover := f.crossoverRate
		req.CrossoverRate = &crossover
	}
	if changed("mutation-rate") {
		req.Mutation.Rate = f.mutationRate
	}
	if changed("mutation-strength") {
		req.Mutation.Strength = f.mutationStrength
	}
	if changed("checkpoint-every") {
		req.CheckpointEvery = f.checkpointEvery
	}
	if changed("solved-fitness") {
		solved := f.solvedFitness
		req.SolvedFitness = &solved
	}
	if changed("resume") {
		req.Resume = f.resume
	}
	return req, nil
}
