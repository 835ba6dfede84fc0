package genome

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	MinGene = -1.0
	MaxGene = 1.0
)

var ErrLengthMismatch = errors.New("genome length mismatch")

// Genome is a flat vector of genes in [-1, 1]. Its meaning comes from a
// Layout.
type Genome []float64

func ensureRNG(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func clamp(v float64) float64 {
	return math.Max(MinGene, math.Min(MaxGene, v))
}

// Random draws n genes uniformly from [-1, 1].
func Random(rng *rand.Rand, n int) Genome {
	rng = ensureRNG(rng)
	g := make(Genome, n)
	for i := range g {
		g[i] = rng.Float64()*2 - 1
	}
	return g
}

func (g Genome) Clone() Genome {
	if g == nil {
		return nil
	}
	return append(Genome(nil), g...)
}

// Mutate returns a copy where each gene, with probability rate, receives
// N(0, strength) noise and is clamped back into range. The receiver is not
// modified.
func (g Genome) Mutate(rng *rand.Rand, rate, strength float64) Genome {
	out := g.Clone()
	if rate <= 0 {
		return out
	}
	rng = ensureRNG(rng)
	for i := range out {
		if rng.Float64() < rate {
			out[i] = clamp(out[i] + rng.NormFloat64()*strength)
		}
	}
	return out
}

// Crossover picks each gene from a or b with equal probability.
func Crossover(rng *rand.Rand, a, b Genome) (Genome, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: crossover of %d and %d genes", ErrLengthMismatch, len(a), len(b))
	}
	rng = ensureRNG(rng)
	child := make(Genome, len(a))
	for i := range child {
		if rng.Intn(2) == 0 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child, nil
}

// Validate rejects non-finite or out-of-range genes.
func (g Genome) Validate() error {
	for i, v := range g {
		if math.IsNaN(v) || v < MinGene || v > MaxGene {
			return fmt.Errorf("gene %d out of range: %v", i, v)
		}
	}
	return nil
}
