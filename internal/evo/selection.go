package evo

import (
	"fmt"
	"math/rand"
)

// Selector chooses a parent from a population ranked by fitness.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []Individual, eliteCount int) (Individual, error)
}

// EliteSelector picks uniformly from the top elite set.
type EliteSelector struct{}

func (EliteSelector) Name() string {
	return "elite"
}

func (EliteSelector) PickParent(rng *rand.Rand, ranked []Individual, eliteCount int) (Individual, error) {
	if rng == nil {
		return Individual{}, fmt.Errorf("random source is required")
	}
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return Individual{}, fmt.Errorf("invalid elite count: %d", eliteCount)
	}
	return ranked[rng.Intn(eliteCount)], nil
}

// TournamentSelector samples TournamentSize candidates uniformly with
// replacement from the first PoolSize ranked individuals (the whole
// population when PoolSize is 0) and returns the fittest.
type TournamentSelector struct {
	PoolSize       int
	TournamentSize int
}

const defaultTournamentSize = 3

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []Individual, _ int) (Individual, error) {
	if rng == nil {
		return Individual{}, fmt.Errorf("random source is required")
	}
	if len(ranked) == 0 {
		return Individual{}, fmt.Errorf("empty population")
	}

	poolSize := s.PoolSize
	if poolSize <= 0 || poolSize > len(ranked) {
		poolSize = len(ranked)
	}
	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = defaultTournamentSize
	}

	best := ranked[rng.Intn(poolSize)]
	for i := 1; i < tournamentSize; i++ {
		candidate := ranked[rng.Intn(poolSize)]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best, nil
}
