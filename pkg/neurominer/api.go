package neurominer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NikolayNebudi/neuro-miner/internal/engine"
	"github.com/NikolayNebudi/neuro-miner/internal/evo"
	"github.com/NikolayNebudi/neuro-miner/internal/genome"
	"github.com/NikolayNebudi/neuro-miner/internal/model"
	"github.com/NikolayNebudi/neuro-miner/internal/scape"
	"github.com/NikolayNebudi/neuro-miner/internal/stats"
	"github.com/NikolayNebudi/neuro-miner/internal/storage"
	"github.com/NikolayNebudi/neuro-miner/internal/strategy"
)

const (
	defaultRunsDir       = "runs"
	defaultDBPath        = "neurominer.db"
	defaultPopulation    = 50
	defaultElite         = 5
	defaultGenerations   = 100
	defaultEpisodes      = 3
	defaultCrossoverRate = 0.8
	defaultTopCount      = 5
	defaultReplayGames   = 10
)

var (
	DefaultEngineCommand = []string{"node", "game_engine_headless.js"}

	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

type Options struct {
	StoreKind string
	DBPath    string
	RunsDir   string
	Logger    *slog.Logger
	// Launcher replaces the process launcher built from each request's
	// engine command.
	Launcher engine.Launcher
}

type Client struct {
	store    storage.Store
	runsDir  string
	logger   *slog.Logger
	launcher engine.Launcher
	inited   bool
}

// EngineRequest describes how to start the game engine.
type EngineRequest struct {
	Command          []string
	Dir              string
	ResponseTimeout  time.Duration
	TolerateRejected bool
}

type RunRequest struct {
	RunID  string
	Engine EngineRequest

	Population  int
	EliteCount  int
	Generations int
	Episodes    int
	MaxSteps    int
	Workers     int
	Seed        int64

	Selection      string
	TournamentSize int
	// CrossoverRate defaults to 0.8 when nil.
	CrossoverRate *float64
	Mutation      evo.AdaptiveMutation

	CheckpointEvery int
	SolvedFitness   *float64
	Resume          bool
	Shaping         *scape.Shaping
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	CheckpointPath   string
	BestByGeneration []float64
	FinalBestFitness float64
	Generation       int
	Solved           bool
	Diagnostics      []model.GenerationDiagnostics
}

// CheckpointRef names a saved individual either by file or by run.
type CheckpointRef struct {
	Path  string
	RunID string
}

type ReplayRequest struct {
	Checkpoint CheckpointRef
	Engine     EngineRequest
	Games      int
	MaxSteps   int
	Shaping    *scape.Shaping
}

type ReplaySummary struct {
	Checkpoint  model.Checkpoint
	Results     []scape.EpisodeResult
	Wins        int
	MeanFitness float64
}

type RunsRequest struct {
	Limit int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:    store,
		runsDir:  runsDir,
		logger:   logger,
		launcher: opts.Launcher,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) init(ctx context.Context) error {
	if c.inited {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.inited = true
	return nil
}

func (c *Client) launcherFor(req EngineRequest) (engine.Launcher, error) {
	if c.launcher != nil {
		return c.launcher, nil
	}
	command := req.Command
	if len(command) == 0 {
		command = DefaultEngineCommand
	}
	return engine.ProcessLauncher{
		Command: command[0],
		Args:    command[1:],
		Dir:     req.Dir,
		Options: engine.Options{
			ResponseTimeout:  req.ResponseTimeout,
			TolerateRejected: req.TolerateRejected,
			Logger:           c.logger,
		},
	}, nil
}

func engineCommand(req EngineRequest) []string {
	if len(req.Command) == 0 {
		return DefaultEngineCommand
	}
	return req.Command
}

func (c *Client) echoScape(req EngineRequest, episodes, maxSteps int, shaping *scape.Shaping, refreshFinal bool) (*scape.EchoScape, error) {
	launcher, err := c.launcherFor(req)
	if err != nil {
		return nil, err
	}
	cfg := scape.EchoConfig{
		Launcher:     launcher,
		Episodes:     episodes,
		MaxSteps:     maxSteps,
		RefreshFinal: refreshFinal,
		Logger:       c.logger,
	}
	if shaping != nil {
		cfg.Shaping = *shaping
	}
	return scape.NewEchoScape(cfg)
}

func selectionFromName(name string, tournamentSize int) (evo.Selector, error) {
	switch name {
	case "", "tournament":
		return evo.TournamentSelector{TournamentSize: tournamentSize}, nil
	case "elite":
		return evo.EliteSelector{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported selection strategy: %s", evo.ErrInvalidConfig, name)
	}
}

// Run evolves a population against the engine and writes the run's
// artifacts under the runs directory.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Population <= 0 {
		req.Population = defaultPopulation
	}
	if req.EliteCount <= 0 {
		req.EliteCount = min(defaultElite, req.Population-1)
	}
	if req.Generations <= 0 {
		req.Generations = defaultGenerations
	}
	if req.Episodes <= 0 {
		req.Episodes = defaultEpisodes
	}
	if req.Workers <= 0 {
		req.Workers = 1
	}
	crossover := defaultCrossoverRate
	if req.CrossoverRate != nil {
		crossover = *req.CrossoverRate
	}
	if req.Resume && req.RunID == "" {
		return RunSummary{}, fmt.Errorf("%w: resume requires a run id", evo.ErrInvalidConfig)
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	if err := c.init(ctx); err != nil {
		return RunSummary{}, err
	}
	if req.Resume {
		if err := c.prepareResume(ctx, &req); err != nil {
			return RunSummary{}, err
		}
	}
	selector, err := selectionFromName(req.Selection, req.TournamentSize)
	if err != nil {
		return RunSummary{}, err
	}
	echo, err := c.echoScape(req.Engine, req.Episodes, req.MaxSteps, req.Shaping, false)
	if err != nil {
		return RunSummary{}, err
	}

	runDir := stats.RunDir(c.runsDir, req.RunID)
	checkpointPath := filepath.Join(runDir, storage.BestCheckpointFile)
	layout := genome.V1()
	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Scape:           echo,
		Layout:          layout,
		Store:           c.store,
		RunID:           req.RunID,
		Selector:        selector,
		PopulationSize:  req.Population,
		EliteCount:      req.EliteCount,
		Generations:     req.Generations,
		Workers:         req.Workers,
		Seed:            req.Seed,
		CrossoverRate:   crossover,
		Mutation:        req.Mutation,
		CheckpointEvery: req.CheckpointEvery,
		SolvedFitness:   req.SolvedFitness,
		Resume:          req.Resume,
		EngineCommand:   strings.Join(engineCommand(req.Engine), " "),
		OnCheckpoint: func(cp model.Checkpoint) error {
			if cp.Reason != model.CheckpointBest {
				return nil
			}
			return storage.WriteCheckpointFile(checkpointPath, cp)
		},
		Logger: c.logger,
	})
	if err != nil {
		return RunSummary{}, err
	}

	c.logger.Info("run started",
		"run_id", req.RunID,
		"population", req.Population,
		"generations", req.Generations,
		"workers", req.Workers,
		"seed", req.Seed,
		"resume", req.Resume,
	)
	result, err := monitor.Run(ctx, nil)
	if err != nil {
		return RunSummary{}, err
	}

	top := make([]stats.TopIndividual, 0, defaultTopCount)
	for i, in := range result.FinalPopulation {
		if i == defaultTopCount {
			break
		}
		top = append(top, stats.TopIndividual{Rank: i + 1, Fitness: in.Fitness, Individual: in.Record(layout.Version)})
	}
	echoCfg := echo.Config()
	if _, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:            req.RunID,
			Scape:            echo.Name(),
			EngineCommand:    engineCommand(req.Engine),
			LayoutVersion:    layout.Version,
			PopulationSize:   req.Population,
			EliteCount:       req.EliteCount,
			Generations:      result.Generation,
			Episodes:         echoCfg.Episodes,
			MaxSteps:         echoCfg.MaxSteps,
			Workers:          req.Workers,
			Seed:             req.Seed,
			CrossoverRate:    crossover,
			MutationRate:     orDefault(req.Mutation.Rate, evo.DefaultMutationRate),
			MutationStrength: orDefault(req.Mutation.Strength, evo.DefaultMutationStrength),
			CheckpointEvery:  req.CheckpointEvery,
			Resumed:          req.Resume,
		},
		BestByGeneration:      result.BestByGeneration,
		GenerationDiagnostics: result.GenerationDiagnostics,
		FinalBestFitness:      result.BestEver.Fitness,
		TopIndividuals:        top,
		Lineage:               result.Lineage,
	}); err != nil {
		return RunSummary{}, fmt.Errorf("write run artifacts: %w", err)
	}
	snapshot, ok, err := c.store.GetPopulation(ctx, req.RunID)
	if err != nil {
		return RunSummary{}, fmt.Errorf("load population: %w", err)
	}
	if ok {
		if err := storage.WritePopulationFile(filepath.Join(runDir, storage.PopulationFile), snapshot); err != nil {
			return RunSummary{}, fmt.Errorf("write population: %w", err)
		}
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.RunIndexEntry{
		RunID:            req.RunID,
		Scape:            echo.Name(),
		PopulationSize:   req.Population,
		Generations:      result.Generation,
		Seed:             req.Seed,
		Workers:          req.Workers,
		EliteCount:       req.EliteCount,
		Solved:           result.Solved,
		FinalBestFitness: result.BestEver.Fitness,
		CreatedAtUTC:     time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return RunSummary{}, fmt.Errorf("update run index: %w", err)
	}

	c.logger.Info("run finished",
		"run_id", req.RunID,
		"generation", result.Generation,
		"best", result.BestEver.Fitness,
		"solved", result.Solved,
	)
	return RunSummary{
		RunID:            req.RunID,
		ArtifactsDir:     filepath.Clean(runDir),
		CheckpointPath:   checkpointPath,
		BestByGeneration: append([]float64(nil), result.BestByGeneration...),
		FinalBestFitness: result.BestEver.Fitness,
		Generation:       result.Generation,
		Solved:           result.Solved,
		Diagnostics:      result.GenerationDiagnostics,
	}, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// prepareResume makes sure the store holds the run's snapshot, restoring it
// from the run directory when needed, and keeps the run's population size
// and elite count.
func (c *Client) prepareResume(ctx context.Context, req *RunRequest) error {
	snapshot, err := c.restoreRun(ctx, req.RunID)
	if err != nil {
		return err
	}
	req.Population = len(snapshot.Individuals)
	cfg, ok, err := stats.ReadRunConfig(c.runsDir, req.RunID)
	if err != nil {
		return fmt.Errorf("read run config: %w", err)
	}
	if ok {
		req.EliteCount = cfg.EliteCount
	}
	if req.EliteCount >= req.Population {
		req.EliteCount = req.Population - 1
	}
	return nil
}

// restoreRun returns the stored snapshot of runID. When the store has none,
// the snapshot, history, diagnostics, lineage and best checkpoint written
// under the run directory are loaded into the store.
func (c *Client) restoreRun(ctx context.Context, runID string) (model.PopulationSnapshot, error) {
	snapshot, ok, err := c.store.GetPopulation(ctx, runID)
	if err != nil {
		return model.PopulationSnapshot{}, fmt.Errorf("load population: %w", err)
	}
	if ok {
		return snapshot, nil
	}

	runDir := stats.RunDir(c.runsDir, runID)
	snapshot, err = storage.LoadPopulationFile(filepath.Join(runDir, storage.PopulationFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.PopulationSnapshot{}, fmt.Errorf("%w: run %s", evo.ErrNoSnapshot, runID)
		}
		return model.PopulationSnapshot{}, err
	}
	if err := c.store.SavePopulation(ctx, snapshot); err != nil {
		return model.PopulationSnapshot{}, fmt.Errorf("save population: %w", err)
	}

	history, ok, err := stats.ReadFitnessSeries(c.runsDir, runID)
	if err != nil {
		return model.PopulationSnapshot{}, fmt.Errorf("read fitness series: %w", err)
	}
	if ok {
		if err := c.store.SaveFitnessHistory(ctx, runID, history); err != nil {
			return model.PopulationSnapshot{}, err
		}
	}
	diagnostics, ok, err := stats.ReadGenerationDiagnostics(c.runsDir, runID)
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	if ok {
		if err := c.store.SaveGenerationDiagnostics(ctx, runID, diagnostics); err != nil {
			return model.PopulationSnapshot{}, err
		}
	}
	lineage, ok, err := stats.ReadLineage(c.runsDir, runID)
	if err != nil {
		return model.PopulationSnapshot{}, err
	}
	if ok {
		if err := c.store.SaveLineage(ctx, runID, lineage); err != nil {
			return model.PopulationSnapshot{}, err
		}
	}
	cp, err := storage.LoadCheckpointFile(filepath.Join(runDir, storage.BestCheckpointFile))
	switch {
	case err == nil:
		if err := c.store.SaveCheckpoint(ctx, cp); err != nil {
			return model.PopulationSnapshot{}, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return model.PopulationSnapshot{}, err
	}

	c.logger.Info("restored run from artifacts",
		"run_id", runID,
		"generation", snapshot.Generation,
		"population", len(snapshot.Individuals),
	)
	return snapshot, nil
}

// LoadCheckpoint resolves ref from a checkpoint file or from the best
// checkpoint stored for a run.
func (c *Client) LoadCheckpoint(ctx context.Context, ref CheckpointRef) (model.Checkpoint, error) {
	switch {
	case ref.Path != "" && ref.RunID != "":
		return model.Checkpoint{}, errors.New("use either checkpoint path or run id")
	case ref.Path != "":
		return storage.LoadCheckpointFile(ref.Path)
	case ref.RunID != "":
		if err := c.init(ctx); err != nil {
			return model.Checkpoint{}, err
		}
		cp, ok, err := c.store.GetBestCheckpoint(ctx, ref.RunID)
		if err != nil {
			return model.Checkpoint{}, err
		}
		if ok {
			return cp, nil
		}
		path := filepath.Join(stats.RunDir(c.runsDir, ref.RunID), storage.BestCheckpointFile)
		cp, err = storage.LoadCheckpointFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return model.Checkpoint{}, fmt.Errorf("%w: run %s", ErrCheckpointNotFound, ref.RunID)
		}
		return cp, err
	default:
		return model.Checkpoint{}, errors.New("checkpoint path or run id is required")
	}
}

func (c *Client) policyFor(cp model.Checkpoint) (*strategy.Engine, error) {
	layout, err := genome.LayoutFor(cp.Individual.LayoutVersion)
	if err != nil {
		return nil, err
	}
	g, exact := layout.Conform(genome.Genome(cp.Individual.Genome), nil)
	if !exact {
		c.logger.Warn("checkpoint genome conformed to layout",
			"individual", cp.Individual.ID,
			"got", len(cp.Individual.Genome),
			"want", layout.Len(),
			"err", genome.ErrLengthMismatch,
		)
	}
	return strategy.New(g, layout)
}

// Replay plays a saved individual for a number of games, one engine
// process per game.
func (c *Client) Replay(ctx context.Context, req ReplayRequest) (ReplaySummary, error) {
	if req.Games <= 0 {
		req.Games = defaultReplayGames
	}
	cp, err := c.LoadCheckpoint(ctx, req.Checkpoint)
	if err != nil {
		return ReplaySummary{}, err
	}
	policy, err := c.policyFor(cp)
	if err != nil {
		return ReplaySummary{}, err
	}
	echo, err := c.echoScape(req.Engine, 1, req.MaxSteps, req.Shaping, true)
	if err != nil {
		return ReplaySummary{}, err
	}

	agent := scape.StrategyAgent{AgentID: cp.Individual.ID, Policy: policy}
	summary := ReplaySummary{Checkpoint: cp, Results: make([]scape.EpisodeResult, 0, req.Games)}
	var total float64
	for i := 0; i < req.Games; i++ {
		result, err := echo.PlayEpisode(ctx, agent)
		if err != nil {
			return ReplaySummary{}, fmt.Errorf("game %d: %w", i+1, err)
		}
		if result.Outcome == scape.OutcomeWin {
			summary.Wins++
		}
		total += result.Fitness
		summary.Results = append(summary.Results, result)
		c.logger.Info("replay game finished",
			"game", i+1,
			"outcome", result.Outcome,
			"fitness", result.Fitness,
			"steps", result.Steps,
		)
	}
	summary.MeanFitness = total / float64(req.Games)
	return summary, nil
}

// Weights decodes a saved individual's decision weights.
func (c *Client) Weights(ctx context.Context, ref CheckpointRef) ([]strategy.WeightRow, model.Checkpoint, error) {
	cp, err := c.LoadCheckpoint(ctx, ref)
	if err != nil {
		return nil, model.Checkpoint{}, err
	}
	policy, err := c.policyFor(cp)
	if err != nil {
		return nil, model.Checkpoint{}, err
	}
	return strategy.Describe(policy.Params()), cp, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]stats.RunIndexEntry, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return entries, nil
}

// Diagnostics returns the stored per-generation diagnostics of a run.
func (c *Client) Diagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, error) {
	if err := c.init(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no diagnostics for run %s", runID)
		}
	}
	return diagnostics, nil
}

// RunConfig returns the configuration recorded for a run.
func (c *Client) RunConfig(runID string) (stats.RunConfig, error) {
	cfg, ok, err := stats.ReadRunConfig(c.runsDir, runID)
	if err != nil {
		return stats.RunConfig{}, err
	}
	if !ok {
		return stats.RunConfig{}, fmt.Errorf("no artifacts for run %s", runID)
	}
	return cfg, nil
}

// Export copies a run's artifacts into outDir/<run id>.
func (c *Client) Export(runID, outDir string) (string, error) {
	dst, err := stats.ExportRunArtifacts(c.runsDir, runID, outDir)
	if err != nil {
		return "", fmt.Errorf("export run %s: %w", runID, err)
	}
	return dst, nil
}
