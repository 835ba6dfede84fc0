package evo

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/NikolayNebudi/neuro-miner/internal/genome"
	"github.com/NikolayNebudi/neuro-miner/internal/model"
	"github.com/NikolayNebudi/neuro-miner/internal/scape"
)

// Lineage operations.
const (
	OpSeed       = "seed"
	OpEliteClone = "elite_clone"
	OpCrossover  = "crossover+mutate"
	OpClone      = "clone+mutate"
)

// Individual is one genome in the population. Fitness is -Inf until the
// individual has been evaluated.
type Individual struct {
	ID          string
	Genome      genome.Genome
	Fitness     float64
	GamesPlayed int
	Generation  int
	ParentIDs   []string
	Operation   string
	Trace       scape.Trace
}

func NewIndividual(id string, g genome.Genome, generation int, operation string, parents ...string) Individual {
	return Individual{
		ID:         id,
		Genome:     g,
		Fitness:    math.Inf(-1),
		Generation: generation,
		ParentIDs:  parents,
		Operation:  operation,
	}
}

func (in Individual) Evaluated() bool {
	return !math.IsInf(in.Fitness, -1)
}

// Clone copies the genome and parent list. The trace is shared.
func (in Individual) Clone() Individual {
	out := in
	out.Genome = in.Genome.Clone()
	out.ParentIDs = append([]string(nil), in.ParentIDs...)
	return out
}

// Record converts the individual into its persisted form.
func (in Individual) Record(layoutVersion int) model.Individual {
	rec := model.Individual{
		ID:            in.ID,
		Genome:        append([]float64(nil), in.Genome...),
		LayoutVersion: layoutVersion,
		Evaluated:     in.Evaluated(),
		GamesPlayed:   in.GamesPlayed,
		Generation:    in.Generation,
		ParentIDs:     append([]string(nil), in.ParentIDs...),
		Operation:     in.Operation,
	}
	if rec.Evaluated {
		rec.Fitness = in.Fitness
	}
	return rec
}

// FromRecord restores an individual, conforming its genome to layout.
// The bool reports whether the stored genome already had the layout's length.
func FromRecord(rec model.Individual, layout genome.Layout) (Individual, bool) {
	g, exact := layout.Conform(genome.Genome(rec.Genome), nil)
	in := Individual{
		ID:          rec.ID,
		Genome:      g,
		Fitness:     math.Inf(-1),
		GamesPlayed: rec.GamesPlayed,
		Generation:  rec.Generation,
		ParentIDs:   append([]string(nil), rec.ParentIDs...),
		Operation:   rec.Operation,
	}
	if rec.Evaluated {
		in.Fitness = rec.Fitness
	}
	return in, exact
}

func individualID(generation, index int) string {
	return fmt.Sprintf("g%d-i%d", generation, index)
}

// SeedPopulation draws size random genomes for layout.
func SeedPopulation(rng *rand.Rand, size int, layout genome.Layout) []Individual {
	out := make([]Individual, 0, size)
	for i := 0; i < size; i++ {
		out = append(out, NewIndividual(individualID(0, i), genome.Random(rng, layout.Len()), 0, OpSeed))
	}
	return out
}
