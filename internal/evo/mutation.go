package evo

import "github.com/NikolayNebudi/neuro-miner/internal/model"

// AdaptiveMutation grows the mutation rate and strength when the search
// stagnates.
type AdaptiveMutation struct {
	Rate        float64
	Strength    float64
	Patience    int
	Growth      float64
	RateCap     float64
	StrengthCap float64

	stagnation int
}

const (
	DefaultMutationRate     = 0.1
	DefaultMutationStrength = 0.2
	DefaultPatience         = 5
	DefaultGrowth           = 1.2
	DefaultRateCap          = 0.5
	DefaultStrengthCap      = 1.0
)

func (a *AdaptiveMutation) withDefaults() {
	if a.Rate == 0 {
		a.Rate = DefaultMutationRate
	}
	if a.Strength == 0 {
		a.Strength = DefaultMutationStrength
	}
	if a.Patience == 0 {
		a.Patience = DefaultPatience
	}
	if a.Growth == 0 {
		a.Growth = DefaultGrowth
	}
	if a.RateCap == 0 {
		a.RateCap = DefaultRateCap
	}
	if a.StrengthCap == 0 {
		a.StrengthCap = DefaultStrengthCap
	}
}

// Observe records one generation. After Patience generations without
// improvement the rate and strength grow, capped, and the counter resets.
// It reports whether they grew.
func (a *AdaptiveMutation) Observe(improved bool) bool {
	if improved {
		a.stagnation = 0
		return false
	}
	a.stagnation++
	if a.stagnation < a.Patience {
		return false
	}
	a.Rate = min(a.Rate*a.Growth, a.RateCap)
	a.Strength = min(a.Strength*a.Growth, a.StrengthCap)
	a.stagnation = 0
	return true
}

func (a *AdaptiveMutation) Stagnation() int {
	return a.stagnation
}

func (a *AdaptiveMutation) State() model.MutationState {
	return model.MutationState{Rate: a.Rate, Strength: a.Strength, Stagnation: a.stagnation}
}

func (a *AdaptiveMutation) Restore(state model.MutationState) {
	a.Rate = state.Rate
	a.Strength = state.Strength
	a.stagnation = state.Stagnation
}
