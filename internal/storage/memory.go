package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/NikolayNebudi/neuro-miner/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	checkpoints map[string][]model.Checkpoint
	populations map[string]model.PopulationSnapshot
	history     map[string][]float64
	diagnostics map[string][]model.GenerationDiagnostics
	lineage     map[string][]model.LineageRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.checkpoints = make(map[string][]model.Checkpoint)
	s.populations = make(map[string]model.PopulationSnapshot)
	s.history = make(map[string][]float64)
	s.diagnostics = make(map[string][]model.GenerationDiagnostics)
	s.lineage = make(map[string][]model.LineageRecord)
	return nil
}

func cloneIndividual(in model.Individual) model.Individual {
	in.Genome = append([]float64(nil), in.Genome...)
	in.ParentIDs = append([]string(nil), in.ParentIDs...)
	return in
}

func cloneCheckpoint(c model.Checkpoint) model.Checkpoint {
	c.Individual = cloneIndividual(c.Individual)
	return c
}

// SaveCheckpoint replaces any checkpoint with the same generation and reason.
func (s *MemoryStore) SaveCheckpoint(_ context.Context, checkpoint model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}

	list := s.checkpoints[checkpoint.RunID]
	for i, existing := range list {
		if existing.Generation == checkpoint.Generation && existing.Reason == checkpoint.Reason {
			list[i] = cloneCheckpoint(checkpoint)
			return nil
		}
	}
	s.checkpoints[checkpoint.RunID] = append(list, cloneCheckpoint(checkpoint))
	return nil
}

func (s *MemoryStore) GetBestCheckpoint(_ context.Context, runID string) (model.Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best, ok := bestCheckpoint(s.checkpoints[runID])
	if !ok {
		return model.Checkpoint{}, false, nil
	}
	return cloneCheckpoint(best), true, nil
}

func (s *MemoryStore) ListCheckpoints(_ context.Context, runID string) ([]model.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Checkpoint, 0, len(s.checkpoints[runID]))
	for _, c := range s.checkpoints[runID] {
		out = append(out, cloneCheckpoint(c))
	}
	sortCheckpoints(out)
	return out, nil
}

// bestCheckpoint picks the highest-fitness checkpoint, preferring the later
// generation on ties.
func bestCheckpoint(list []model.Checkpoint) (model.Checkpoint, bool) {
	if len(list) == 0 {
		return model.Checkpoint{}, false
	}
	best := list[0]
	for _, c := range list[1:] {
		if c.Individual.Fitness > best.Individual.Fitness ||
			(c.Individual.Fitness == best.Individual.Fitness && c.Generation > best.Generation) {
			best = c
		}
	}
	return best, true
}

func sortCheckpoints(list []model.Checkpoint) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Generation != list[j].Generation {
			return list[i].Generation < list[j].Generation
		}
		return list[i].Reason < list[j].Reason
	})
}

func (s *MemoryStore) SavePopulation(_ context.Context, snapshot model.PopulationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}

	s.populations[snapshot.RunID] = clonePopulation(snapshot)
	return nil
}

func (s *MemoryStore) GetPopulation(_ context.Context, runID string) (model.PopulationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.populations[runID]
	if !ok {
		return model.PopulationSnapshot{}, false, nil
	}
	return clonePopulation(snapshot), true, nil
}

func clonePopulation(p model.PopulationSnapshot) model.PopulationSnapshot {
	individuals := make([]model.Individual, 0, len(p.Individuals))
	for _, in := range p.Individuals {
		individuals = append(individuals, cloneIndividual(in))
	}
	p.Individuals = individuals
	if p.BestEver != nil {
		best := cloneIndividual(*p.BestEver)
		p.BestEver = &best
	}
	return p
}

func (s *MemoryStore) SaveFitnessHistory(_ context.Context, runID string, history []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}

	s.history[runID] = append([]float64(nil), history...)
	return nil
}

func (s *MemoryStore) GetFitnessHistory(_ context.Context, runID string) ([]float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.history[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]float64(nil), history...), true, nil
}

func (s *MemoryStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}

	s.diagnostics[runID] = append([]model.GenerationDiagnostics(nil), diagnostics...)
	return nil
}

func (s *MemoryStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.GenerationDiagnostics(nil), diagnostics...), true, nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}

	s.lineage[runID] = append([]model.LineageRecord(nil), lineage...)
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, runID string) ([]model.LineageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage, ok := s.lineage[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.LineageRecord(nil), lineage...), true, nil
}
