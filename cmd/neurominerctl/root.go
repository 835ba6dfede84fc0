package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NikolayNebudi/neuro-miner/internal/engine"
	"github.com/NikolayNebudi/neuro-miner/internal/stats"
	"github.com/NikolayNebudi/neuro-miner/pkg/neurominer"
)

type rootOptions struct {
	storeKind string
	dbPath    string
	runsDir   string
	logLevel  string
	logFormat string
	output    string

	logWriter io.Writer
	// launcher overrides the engine process in tests.
	launcher engine.Launcher
	logger   *slog.Logger
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "neurominerctl",
		Short:         "Evolve and inspect network echo strategies",
		Long:          "neurominerctl runs an evolutionary search over strategy genomes\nagainst the network echo game engine and inspects its results.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return opts.initLogging()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.storeKind, "store", "", "Store backend: memory or sqlite (default depends on build)")
	f.StringVar(&opts.dbPath, "db", "neurominer.db", "SQLite database path")
	f.StringVar(&opts.runsDir, "runs-dir", "runs", "Directory for run artifacts and the run index")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	f.StringVar(&opts.output, "format", "table", "Table format: table or markdown")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newReplayCmd(opts))
	root.AddCommand(newWeightsCmd(opts))
	root.AddCommand(newRunsCmd(opts))
	root.AddCommand(newShowCmd(opts))
	root.AddCommand(newExportCmd(opts))
	return root
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func (o *rootOptions) initLogging() error {
	level, err := parseLevel(o.logLevel)
	if err != nil {
		return err
	}
	w := o.logWriter
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch o.logFormat {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "", "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		return fmt.Errorf("invalid log format %q", o.logFormat)
	}
	o.logger = slog.New(handler)
	return nil
}

func (o *rootOptions) mode() (stats.Mode, error) {
	return stats.ParseMode(o.output)
}

func (o *rootOptions) client() (*neurominer.Client, error) {
	return neurominer.New(neurominer.Options{
		StoreKind: o.storeKind,
		DBPath:    o.dbPath,
		RunsDir:   o.runsDir,
		Logger:    o.logger,
		Launcher:  o.launcher,
	})
}

// addCheckpointFlags binds the flags that select a saved individual.
func addCheckpointFlags(cmd *cobra.Command, ref *neurominer.CheckpointRef) {
	f := cmd.Flags()
	f.StringVar(&ref.Path, "checkpoint", "", "Checkpoint file (best_individual.json)")
	f.StringVar(&ref.RunID, "run-id", "", "Load the best checkpoint of this run from the store")
	cmd.MarkFlagsMutuallyExclusive("checkpoint", "run-id")
	cmd.MarkFlagsOneRequired("checkpoint", "run-id")
}
