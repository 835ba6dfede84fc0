package genome_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NikolayNebudi/neuro-miner/internal/genome"
)

func TestRandomWithinBounds(t *testing.T) {
	g := genome.Random(rand.New(rand.NewSource(1)), 200)
	if len(g) != 200 {
		t.Fatalf("expected 200 genes, got %d", len(g))
	}
	if err := g.Validate(); err != nil {
		t.Fatalf("random genome invalid: %v", err)
	}
}

func TestMutateZeroRateIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		g := genome.Random(rng, 60)
		got := g.Mutate(rng, 0, 5)
		if diff := cmp.Diff(g, got); diff != "" {
			t.Fatalf("rate 0 changed genome (-want +got):\n%s", diff)
		}
	}
}

func TestMutateFullRateStaysInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 20; i++ {
		g := genome.Random(rng, 60)
		original := g.Clone()
		got := g.Mutate(rng, 1, 10)
		if err := got.Validate(); err != nil {
			t.Fatalf("mutated genome out of range: %v", err)
		}
		if diff := cmp.Diff(original, g); diff != "" {
			t.Fatalf("mutate modified its receiver (-want +got):\n%s", diff)
		}
	}
}

func TestCrossoverGeneOrigin(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := genome.Random(rng, 60)
	b := genome.Random(rng, 60)
	fromA, fromB := 0, 0
	for i := 0; i < 10; i++ {
		child, err := genome.Crossover(rng, a, b)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if len(child) != len(a) {
			t.Fatalf("child length %d, want %d", len(child), len(a))
		}
		for j, v := range child {
			switch v {
			case a[j]:
				fromA++
			case b[j]:
				fromB++
			default:
				t.Fatalf("gene %d = %v is from neither parent", j, v)
			}
		}
	}
	if fromA == 0 || fromB == 0 {
		t.Fatalf("expected genes from both parents, got a=%d b=%d", fromA, fromB)
	}
}

func TestCrossoverLengthMismatch(t *testing.T) {
	_, err := genome.Crossover(nil, genome.Genome{0, 0}, genome.Genome{0})
	if !errors.Is(err, genome.ErrLengthMismatch) {
		t.Fatalf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	if err := (genome.Genome{0, 1.5}).Validate(); err == nil {
		t.Fatal("expected out-of-range gene to be rejected")
	}
}
