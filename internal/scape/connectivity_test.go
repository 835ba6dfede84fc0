package scape

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/NikolayNebudi/neuro-miner/internal/engine"
	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/game/gametest"
)

func stepResult(board *game.BoardView, actions ...game.Action) engine.StepResult {
	executed := make([]engine.ExecutedAction, 0, len(actions))
	for _, a := range actions {
		executed = append(executed, engine.ExecutedAction{Action: a, Success: true, Executed: true})
	}
	return engine.StepResult{Board: board, Executed: executed}
}

func TestAnalyzeConnectivity(t *testing.T) {
	// hub-a-b is connected; c is owned but only reachable through neutral n.
	board := gametest.NewMap().Hub().
		Owned("a").Owned("b").Owned("c").Neutral("n", 0).
		Link("hub", "a", "b").
		Link("hub", "n", "c").
		Board(t)

	got := AnalyzeConnectivity(board)
	want := Connectivity{
		Owned:             4,
		Reachable:         3,
		ReachableFraction: 0.75,
		MeanDistance:      1,
		DistanceStdDev:    math.Sqrt(2.0 / 3.0),
		Islands:           1,
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("connectivity mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeConnectivityWithoutHub(t *testing.T) {
	board := gametest.NewMap().Owned("a").Owned("b").Link("a", "b").Board(t)
	got := AnalyzeConnectivity(board)
	if got.Islands != 2 || got.Reachable != 0 || got.ReachableFraction != 0 {
		t.Fatalf("expected every owned node to be an island without a hub: %+v", got)
	}
}
