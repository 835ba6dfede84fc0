package evo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NikolayNebudi/neuro-miner/internal/genome"
	"github.com/NikolayNebudi/neuro-miner/internal/model"
	"github.com/NikolayNebudi/neuro-miner/internal/scape"
	"github.com/NikolayNebudi/neuro-miner/internal/storage"
	"github.com/NikolayNebudi/neuro-miner/internal/strategy"
)

var (
	ErrInvalidConfig = errors.New("invalid run config")
	ErrNoSnapshot    = errors.New("no population snapshot to resume from")
)

type RunResult struct {
	RunID                 string
	BestEver              Individual
	BestByGeneration      []float64
	GenerationDiagnostics []model.GenerationDiagnostics
	FinalPopulation       []Individual
	Lineage               []model.LineageRecord
	// Generation is the number of generations evaluated so far, including
	// those of a resumed run.
	Generation int
	Solved     bool
}

type MonitorConfig struct {
	Scape    scape.Scape
	Layout   genome.Layout
	Store    storage.Store
	RunID    string
	Selector Selector

	PopulationSize int
	EliteCount     int
	Generations    int
	Workers        int
	Seed           int64
	CrossoverRate  float64
	Mutation       AdaptiveMutation

	CheckpointEvery int
	SolvedFitness   *float64
	Resume          bool

	// EngineCommand is recorded in checkpoint provenance.
	EngineCommand string
	// OnCheckpoint runs after a checkpoint has been stored.
	OnCheckpoint func(model.Checkpoint) error
	Logger       *slog.Logger
}

type PopulationMonitor struct {
	cfg      MonitorConfig
	rng      *rand.Rand
	mutation AdaptiveMutation
	logger   *slog.Logger
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if cfg.Scape == nil {
		return nil, invalid("scape is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, invalid("population size must be > 0")
	}
	if cfg.EliteCount < 0 || cfg.EliteCount >= cfg.PopulationSize {
		return nil, invalid("elite count must be in [0, population size)")
	}
	if cfg.Generations <= 0 {
		return nil, invalid("generations must be > 0")
	}
	if cfg.CrossoverRate < 0 || cfg.CrossoverRate > 1 {
		return nil, invalid("crossover rate must be in [0, 1]")
	}
	if cfg.CheckpointEvery < 0 {
		return nil, invalid("checkpoint interval must be >= 0")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Layout.Len() == 0 {
		cfg.Layout = genome.V1()
	}
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cfg.Selector == nil {
		cfg.Selector = TournamentSelector{}
	}
	if cfg.RunID == "" {
		cfg.RunID = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	mutation := cfg.Mutation
	mutation.withDefaults()
	if mutation.Rate < 0 || mutation.Rate > 1 || mutation.Strength < 0 {
		return nil, invalid("mutation rate must be in [0, 1] and strength >= 0")
	}
	if mutation.Growth < 1 {
		return nil, invalid("mutation growth must be >= 1")
	}
	if mutation.Patience < 1 {
		return nil, invalid("mutation patience must be >= 1")
	}

	if cfg.Store == nil {
		cfg.Store = storage.NewMemoryStore()
		if err := cfg.Store.Init(context.Background()); err != nil {
			return nil, err
		}
	}

	return &PopulationMonitor{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		mutation: mutation,
		logger:   cfg.Logger.With("run_id", cfg.RunID),
	}, nil
}

// Run evolves the population for the configured number of generations. An
// empty initial population is seeded randomly. With Resume set, the stored
// snapshot replaces initial.
func (m *PopulationMonitor) Run(ctx context.Context, initial []Individual) (RunResult, error) {
	state, err := m.start(ctx, initial)
	if err != nil {
		return RunResult{}, err
	}

	population := state.population
	end := state.generation + m.cfg.Generations
	for gen := state.generation; gen < end; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		scored, err := m.evaluatePopulation(ctx, population)
		if err != nil {
			return RunResult{}, fmt.Errorf("generation %d: %w", gen, err)
		}
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Fitness > scored[j].Fitness
		})

		improved := !state.hasBest || scored[0].Fitness > state.bestEver.Fitness
		if improved {
			state.bestEver = scored[0].Clone()
			state.hasBest = true
		}
		grew := m.mutation.Observe(improved)
		if improved {
			if err := m.checkpoint(ctx, state.bestEver, gen, model.CheckpointBest); err != nil {
				return RunResult{}, err
			}
		}
		if m.cfg.CheckpointEvery > 0 && (gen+1)%m.cfg.CheckpointEvery == 0 {
			if err := m.checkpoint(ctx, scored[0], gen, model.CheckpointPeriodic); err != nil {
				return RunResult{}, err
			}
		}

		diag := summarizeGeneration(scored, gen, state.bestEver.Fitness, m.mutation.State())
		state.diagnostics = append(state.diagnostics, diag)
		state.history = append(state.history, scored[0].Fitness)
		m.logger.Info("generation complete",
			"generation", gen,
			"best", diag.BestFitness,
			"mean", diag.MeanFitness,
			"best_ever", diag.BestEverFitness,
			"wins", diag.Wins,
			"failures", diag.Failures,
		)
		if grew {
			m.logger.Info("mutation increased after stagnation",
				"rate", m.mutation.Rate,
				"strength", m.mutation.Strength,
			)
		}

		// The next population is bred and stored even after the last
		// generation so a resumed run continues from it.
		next, lineage, err := m.nextGeneration(scored, gen+1)
		if err != nil {
			return RunResult{}, err
		}
		population = next
		state.lineage = append(state.lineage, lineage...)
		if err := m.snapshot(ctx, population, gen+1, &state.bestEver); err != nil {
			return RunResult{}, err
		}
		if err := m.persistHistory(ctx, state); err != nil {
			return RunResult{}, err
		}

		solved := m.cfg.SolvedFitness != nil && state.bestEver.Fitness >= *m.cfg.SolvedFitness
		if solved {
			m.logger.Info("solved fitness reached", "generation", gen, "fitness", state.bestEver.Fitness)
		}
		if solved || gen == end-1 {
			return RunResult{
				RunID:                 m.cfg.RunID,
				BestEver:              state.bestEver,
				BestByGeneration:      state.history,
				GenerationDiagnostics: state.diagnostics,
				FinalPopulation:       scored,
				Lineage:               state.lineage,
				Generation:            gen + 1,
				Solved:                solved,
			}, nil
		}
	}
	return RunResult{}, fmt.Errorf("run ended without evaluating a generation")
}

type runState struct {
	generation  int
	population  []Individual
	bestEver    Individual
	hasBest     bool
	history     []float64
	diagnostics []model.GenerationDiagnostics
	lineage     []model.LineageRecord
}

func (m *PopulationMonitor) start(ctx context.Context, initial []Individual) (runState, error) {
	if m.cfg.Resume {
		return m.resume(ctx)
	}

	if len(initial) == 0 {
		initial = SeedPopulation(m.rng, m.cfg.PopulationSize, m.cfg.Layout)
	}
	if len(initial) != m.cfg.PopulationSize {
		return runState{}, fmt.Errorf("initial population mismatch: got=%d want=%d", len(initial), m.cfg.PopulationSize)
	}

	state := runState{population: make([]Individual, 0, len(initial))}
	for _, in := range initial {
		in = m.conform(in)
		state.population = append(state.population, in)
		state.lineage = append(state.lineage, model.LineageRecord{
			VersionedRecord: storage.Stamp(),
			IndividualID:    in.ID,
			ParentIDs:       in.ParentIDs,
			Generation:      in.Generation,
			Operation:       OpSeed,
		})
	}
	return state, m.snapshot(ctx, state.population, 0, nil)
}

func (m *PopulationMonitor) resume(ctx context.Context) (runState, error) {
	snapshot, ok, err := m.cfg.Store.GetPopulation(ctx, m.cfg.RunID)
	if err != nil {
		return runState{}, fmt.Errorf("load population: %w", err)
	}
	if !ok {
		return runState{}, fmt.Errorf("%w: run %s", ErrNoSnapshot, m.cfg.RunID)
	}
	if len(snapshot.Individuals) != m.cfg.PopulationSize {
		return runState{}, invalid("resumed population has %d individuals, want %d", len(snapshot.Individuals), m.cfg.PopulationSize)
	}

	state := runState{generation: snapshot.Generation}
	for _, rec := range snapshot.Individuals {
		state.population = append(state.population, m.restore(rec))
	}
	if snapshot.BestEver != nil {
		state.bestEver = m.restore(*snapshot.BestEver)
		state.hasBest = state.bestEver.Evaluated()
	}
	m.mutation.Restore(snapshot.Mutation)

	if state.history, _, err = m.cfg.Store.GetFitnessHistory(ctx, m.cfg.RunID); err != nil {
		return runState{}, fmt.Errorf("load fitness history: %w", err)
	}
	if state.diagnostics, _, err = m.cfg.Store.GetGenerationDiagnostics(ctx, m.cfg.RunID); err != nil {
		return runState{}, fmt.Errorf("load diagnostics: %w", err)
	}
	if state.lineage, _, err = m.cfg.Store.GetLineage(ctx, m.cfg.RunID); err != nil {
		return runState{}, fmt.Errorf("load lineage: %w", err)
	}

	m.logger.Info("resuming run",
		"generation", state.generation,
		"best_ever", state.bestEver.Fitness,
		"mutation_rate", m.mutation.Rate,
	)
	return state, nil
}

func (m *PopulationMonitor) restore(rec model.Individual) Individual {
	in, exact := FromRecord(rec, m.cfg.Layout)
	if !exact {
		m.logger.Warn("stored genome conformed to layout",
			"individual", rec.ID,
			"got", len(rec.Genome),
			"want", m.cfg.Layout.Len(),
			"err", genome.ErrLengthMismatch,
		)
	}
	return in
}

func (m *PopulationMonitor) conform(in Individual) Individual {
	g, exact := m.cfg.Layout.Conform(in.Genome, m.rng)
	if !exact {
		m.logger.Warn("genome conformed to layout",
			"individual", in.ID,
			"got", len(in.Genome),
			"want", m.cfg.Layout.Len(),
			"err", genome.ErrLengthMismatch,
		)
	}
	out := in.Clone()
	out.Genome = g
	return out
}

// evaluatePopulation scores every individual. Results land in per-index
// slots so the order of population is preserved.
func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, population []Individual) ([]Individual, error) {
	scored := make([]Individual, len(population))
	if m.cfg.Workers == 1 {
		for i, in := range population {
			out, err := m.evaluate(ctx, in)
			if err != nil {
				return nil, err
			}
			scored[i] = out
		}
		return scored, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for i, in := range population {
		g.Go(func() error {
			out, err := m.evaluate(gctx, in)
			if err != nil {
				return err
			}
			scored[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func (m *PopulationMonitor) evaluate(ctx context.Context, in Individual) (Individual, error) {
	policy, err := strategy.New(in.Genome, m.cfg.Layout)
	if err != nil {
		return Individual{}, fmt.Errorf("individual %s: %w", in.ID, err)
	}
	fitness, trace, err := m.cfg.Scape.Evaluate(ctx, scape.StrategyAgent{AgentID: in.ID, Policy: policy})
	if err != nil {
		return Individual{}, fmt.Errorf("evaluate %s: %w", in.ID, err)
	}

	out := in.Clone()
	out.Fitness = float64(fitness)
	out.Trace = trace
	out.GamesPlayed += max(traceInt(trace, "episodes"), 1)
	return out, nil
}

func (m *PopulationMonitor) nextGeneration(ranked []Individual, generation int) ([]Individual, []model.LineageRecord, error) {
	next := make([]Individual, 0, m.cfg.PopulationSize)
	lineage := make([]model.LineageRecord, 0, m.cfg.PopulationSize)
	for i := 0; i < m.cfg.EliteCount; i++ {
		elite := ranked[i].Clone()
		next = append(next, elite)
		lineage = append(lineage, model.LineageRecord{
			VersionedRecord: storage.Stamp(),
			IndividualID:    elite.ID,
			ParentIDs:       []string{elite.ID},
			Generation:      generation,
			Operation:       OpEliteClone,
		})
	}

	for len(next) < m.cfg.PopulationSize {
		var (
			child   genome.Genome
			parents []string
			op      string
		)
		first, err := m.cfg.Selector.PickParent(m.rng, ranked, max(m.cfg.EliteCount, 1))
		if err != nil {
			return nil, nil, err
		}
		if m.rng.Float64() < m.cfg.CrossoverRate {
			second, err := m.cfg.Selector.PickParent(m.rng, ranked, max(m.cfg.EliteCount, 1))
			if err != nil {
				return nil, nil, err
			}
			child, err = genome.Crossover(m.rng, first.Genome, second.Genome)
			if err != nil {
				return nil, nil, err
			}
			parents = []string{first.ID, second.ID}
			op = OpCrossover
		} else {
			child = first.Genome.Clone()
			parents = []string{first.ID}
			op = OpClone
		}
		child = child.Mutate(m.rng, m.mutation.Rate, m.mutation.Strength)

		in := NewIndividual(individualID(generation, len(next)), child, generation, op, parents...)
		next = append(next, in)
		lineage = append(lineage, model.LineageRecord{
			VersionedRecord: storage.Stamp(),
			IndividualID:    in.ID,
			ParentIDs:       parents,
			Generation:      generation,
			Operation:       op,
		})
	}
	return next, lineage, nil
}

func (m *PopulationMonitor) checkpoint(ctx context.Context, in Individual, generation int, reason string) error {
	cp := model.Checkpoint{
		VersionedRecord: storage.Stamp(),
		RunID:           m.cfg.RunID,
		Generation:      generation,
		Reason:          reason,
		Individual:      in.Record(m.cfg.Layout.Version),
		Mutation:        m.mutation.State(),
		Provenance: model.Provenance{
			Seed:          m.cfg.Seed,
			Scape:         m.cfg.Scape.Name(),
			EngineCommand: m.cfg.EngineCommand,
			CreatedAt:     time.Now().UTC(),
		},
	}
	if err := m.cfg.Store.SaveCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("save %s checkpoint: %w", reason, err)
	}
	m.logger.Debug("checkpoint saved", "generation", generation, "reason", reason, "fitness", in.Fitness)
	if m.cfg.OnCheckpoint != nil {
		return m.cfg.OnCheckpoint(cp)
	}
	return nil
}

func (m *PopulationMonitor) snapshot(ctx context.Context, population []Individual, generation int, bestEver *Individual) error {
	snap := model.PopulationSnapshot{
		VersionedRecord: storage.Stamp(),
		RunID:           m.cfg.RunID,
		Generation:      generation,
		Mutation:        m.mutation.State(),
	}
	for _, in := range population {
		snap.Individuals = append(snap.Individuals, in.Record(m.cfg.Layout.Version))
	}
	if bestEver != nil && bestEver.Evaluated() {
		rec := bestEver.Record(m.cfg.Layout.Version)
		snap.BestEver = &rec
	}
	if err := m.cfg.Store.SavePopulation(ctx, snap); err != nil {
		return fmt.Errorf("save population: %w", err)
	}
	return nil
}

func (m *PopulationMonitor) persistHistory(ctx context.Context, state runState) error {
	if err := m.cfg.Store.SaveFitnessHistory(ctx, m.cfg.RunID, state.history); err != nil {
		return fmt.Errorf("save fitness history: %w", err)
	}
	if err := m.cfg.Store.SaveGenerationDiagnostics(ctx, m.cfg.RunID, state.diagnostics); err != nil {
		return fmt.Errorf("save diagnostics: %w", err)
	}
	if err := m.cfg.Store.SaveLineage(ctx, m.cfg.RunID, state.lineage); err != nil {
		return fmt.Errorf("save lineage: %w", err)
	}
	return nil
}

func summarizeGeneration(ranked []Individual, generation int, bestEver float64, mutation model.MutationState) model.GenerationDiagnostics {
	diag := model.GenerationDiagnostics{
		Generation:       generation,
		BestEverFitness:  bestEver,
		MutationRate:     mutation.Rate,
		MutationStrength: mutation.Strength,
		Stagnation:       mutation.Stagnation,
	}
	if len(ranked) == 0 {
		return diag
	}

	total := 0.0
	minFitness := math.Inf(1)
	for _, in := range ranked {
		total += in.Fitness
		minFitness = math.Min(minFitness, in.Fitness)
		diag.Wins += traceInt(in.Trace, "wins")
		diag.Failures += traceInt(in.Trace, "failures")
	}
	diag.BestFitness = ranked[0].Fitness
	diag.MeanFitness = total / float64(len(ranked))
	diag.MinFitness = minFitness
	return diag
}

func traceInt(trace scape.Trace, key string) int {
	switch v := trace[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
