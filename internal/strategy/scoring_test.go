package strategy_test

import (
	"math/rand"
	"testing"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/game/gametest"
	"github.com/NikolayNebudi/neuro-miner/internal/genome"
	"github.com/NikolayNebudi/neuro-miner/internal/strategy"
)

func TestNodeScoreNonIncreasingInResistance(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 20; i++ {
		engine, err := strategy.New(genome.Random(rng, genome.V1().Len()), genome.V1())
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		prev := 0.0
		for r := 0; r <= 100; r += 5 {
			board := gametest.NewMap().Hub().
				Add("target", game.NodeCPU, game.OwnerNeutral, float64(r)).
				Neutral("beyond", 0).
				Link("hub", "target", "beyond").
				Board(t)
			score := engine.NodeScore(board, "target")
			if r > 0 && score > prev {
				t.Fatalf("genome %d: score rose from %v to %v at resistance %d", i, prev, score, r)
			}
			prev = score
		}
	}
}

func TestNodeScoreStructure(t *testing.T) {
	engine := strategy.NewFromParams(baseParams(t))
	board := gametest.NewMap().Hub().
		Owned("a").
		Neutral("hole", 0).
		Neutral("edge", 0).
		Neutral("far1", 0).
		Neutral("far2", 0).
		Neutral("island", 0).
		Link("hub", "a").
		Link("hub", "hole", "a").
		Link("a", "edge", "far1", "far2").
		Board(t)

	hole := engine.NodeScore(board, "hole")
	edge := engine.NodeScore(board, "edge")
	far := engine.NodeScore(board, "far2")
	island := engine.NodeScore(board, "island")

	if !(hole > edge) {
		t.Fatalf("hole-filling node should beat a single-neighbour node: %v <= %v", hole, edge)
	}
	if !(edge > far) {
		t.Fatalf("adjacent node should beat a disconnected distant one: %v <= %v", edge, far)
	}
	if !(far > island) {
		t.Fatalf("unreachable island should score lowest: %v <= %v", far, island)
	}
	if got := board.DistanceFromHub("island"); got != game.Unreachable {
		t.Fatalf("island distance %d, want sentinel", got)
	}
}

func TestBuildScore(t *testing.T) {
	engine := strategy.NewFromParams(baseParams(t))
	board := gametest.NewMap().Hub().
		Owned("inner").
		Owned("rim").
		Add("cpu", game.NodeCPU, game.OwnerPlayer, 0).
		Neutral("out1", 0).
		Neutral("out2", 0).
		Link("hub", "inner", "rim", "out1").
		Link("rim", "out2").
		Link("inner", "cpu").
		Board(t)

	if engine.BuildScore(board, "inner", game.ProgramMiner) <= engine.BuildScore(board, "rim", game.ProgramMiner) {
		t.Fatal("miners should prefer interior nodes")
	}
	if engine.BuildScore(board, "rim", game.ProgramSentry) <= engine.BuildScore(board, "inner", game.ProgramSentry) {
		t.Fatal("sentries should prefer frontier nodes")
	}
	if s := engine.BuildScore(board, "inner", game.ProgramOverclocker); s > -1e308 {
		t.Fatalf("overclocker off a cpu node should be excluded, got %v", s)
	}
	if s := engine.BuildScore(board, "cpu", game.ProgramOverclocker); s < 0 {
		t.Fatalf("overclocker on a cpu node should score positively, got %v", s)
	}
}
