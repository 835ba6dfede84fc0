package strategy_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/game/gametest"
	"github.com/NikolayNebudi/neuro-miner/internal/genome"
	"github.com/NikolayNebudi/neuro-miner/internal/strategy"
)

func baseParams(t *testing.T) genome.Params {
	t.Helper()
	l := genome.V1()
	p, err := l.Decode(make(genome.Genome, l.Len()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return p
}

// chain builds hub-n01-n02-... with the first owned nodes (hub included)
// belonging to the player.
func chain(total, owned int) *gametest.Map {
	m := gametest.NewMap().Hub()
	prev := "hub"
	for i := 1; i < total; i++ {
		id := fmt.Sprintf("n%02d", i)
		if i < owned {
			m.Owned(id)
		} else {
			m.Neutral(id, 10)
		}
		m.Link(prev, id)
		prev = id
	}
	return m
}

func TestDetectPhase(t *testing.T) {
	th := genome.Thresholds{EarlyCaptureRatio: 0.25, GeneratorTarget: 1, LateThreshold: 0.55}
	cases := []struct {
		name  string
		board *gametest.Map
		want  strategy.Phase
	}{
		{"few nodes no generators", chain(10, 1), strategy.PhaseEarly},
		{"generator target reached", chain(10, 1).Program("hub", game.ProgramMiner, 1), strategy.PhaseMid},
		{"ratio reached without generators", chain(10, 3), strategy.PhaseMid},
		{"late threshold", chain(10, 6), strategy.PhaseLate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := strategy.DetectPhase(tc.board.Board(t), th); got != tc.want {
				t.Fatalf("phase = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestLateWebCaptureIsExclusive(t *testing.T) {
	board := chain(18, 11).Resources(500, 500).Board(t)
	if ratio := board.CaptureRatio(); ratio < 0.61 || ratio > 0.62 {
		t.Fatalf("fixture ratio %v, want 61%%", ratio)
	}
	legal := []game.Action{
		game.Wait(),
		game.Capture("n11"),
		game.Build("n05", game.ProgramMiner),
		game.Build("n06", game.ProgramSentry),
		game.NetworkCapture(),
		game.UpgradeHub(),
		game.WebCapture(),
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 25; i++ {
		engine, err := strategy.New(genome.Random(rng, genome.V1().Len()), genome.V1())
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		got := engine.Select(board, legal, false)
		if diff := cmp.Diff([]game.Action{game.WebCapture()}, got); diff != "" {
			t.Fatalf("genome %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestWebCaptureNotRepeatedOnceActive(t *testing.T) {
	board := chain(18, 11).Resources(500, 500).Board(t)
	legal := []game.Action{game.Wait(), game.Capture("n11"), game.WebCapture()}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 25; i++ {
		engine, err := strategy.New(genome.Random(rng, genome.V1().Len()), genome.V1())
		if err != nil {
			t.Fatalf("new engine: %v", err)
		}
		d := engine.Decide(board, legal, true)
		for _, a := range d.Actions {
			if a.Kind == game.KindWebCapture {
				t.Fatalf("genome %d repeated web capture while active: %+v", i, d)
			}
		}
		for _, c := range d.Candidates {
			if c.Action.Kind == game.KindWebCapture {
				t.Fatalf("genome %d scored web capture while active", i)
			}
		}
	}
}

func TestLateWithoutWebCaptureTakesBestCapture(t *testing.T) {
	board := chain(18, 11).Board(t)
	engine := strategy.NewFromParams(baseParams(t))
	d := engine.Decide(board, []game.Action{game.Capture("n11"), game.Build("n05", game.ProgramMiner)}, false)
	if d.Phase != strategy.PhaseLate || d.Forced == "" {
		t.Fatalf("expected forced late decision, got %+v", d)
	}
	if diff := cmp.Diff([]game.Action{game.Capture("n11")}, d.Actions); diff != "" {
		t.Fatalf("actions (-want +got):\n%s", diff)
	}
}

func earlyMap() *gametest.Map {
	return gametest.NewMap().Hub().
		Neutral("d1", 10).
		Add("c1", game.NodeCPU, game.OwnerNeutral, 10).
		Link("hub", "d1").
		Link("hub", "c1")
}

func TestEarlyOverrides(t *testing.T) {
	p := baseParams(t)
	p.Thresholds.EarlyCaptureRatio = 0.5
	p.Thresholds.GeneratorTarget = 2
	engine := strategy.NewFromParams(p)
	legal := []game.Action{
		game.Build("hub", game.ProgramMiner),
		game.Capture("d1"),
		game.Capture("c1"),
	}

	cases := []struct {
		name string
		dp   float64
		want []game.Action
	}{
		{"generator build first", 100, []game.Action{game.Build("hub", game.ProgramMiner)}},
		{"valuable capture when build unaffordable", 15, []game.Action{game.Capture("c1")}},
		{"nothing affordable", 5, []game.Action{game.Wait()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			board := earlyMap().Resources(tc.dp, 0).Board(t)
			if phase := strategy.DetectPhase(board, p.Thresholds); phase != strategy.PhaseEarly {
				t.Fatalf("fixture phase %s, want EARLY", phase)
			}
			if diff := cmp.Diff(tc.want, engine.Select(board, legal, false)); diff != "" {
				t.Fatalf("actions (-want +got):\n%s", diff)
			}
		})
	}
}

func midMap() *gametest.Map {
	return gametest.NewMap().Hub().
		Owned("a").
		Neutral("n1", 10).
		Neutral("n2", 10).
		Link("hub", "a", "n1").
		Link("hub", "n2")
}

func midParams(t *testing.T) genome.Params {
	p := baseParams(t)
	p.Thresholds.EarlyCaptureRatio = 0.25
	p.Thresholds.LateThreshold = 0.9
	p.Thresholds.TraceCeiling = 250
	return p
}

func TestMidOverrides(t *testing.T) {
	engine := strategy.NewFromParams(midParams(t))
	legal := []game.Action{game.Capture("n1"), game.Capture("n2"), game.NetworkCapture()}

	low := midMap().Trace(100).Board(t)
	if diff := cmp.Diff([]game.Action{game.Capture("n2")}, engine.Select(low, legal, false)); diff != "" {
		t.Fatalf("below ceiling (-want +got):\n%s", diff)
	}

	high := midMap().Trace(300).Board(t)
	if diff := cmp.Diff([]game.Action{game.NetworkCapture()}, engine.Select(high, legal, false)); diff != "" {
		t.Fatalf("above ceiling (-want +got):\n%s", diff)
	}
}

func TestCapturesInProgressAreSkipped(t *testing.T) {
	engine := strategy.NewFromParams(midParams(t))
	state := midMap().Trace(100).State()
	n2 := state.Nodes["n2"]
	n2.IsCapturing = true
	state.Nodes["n2"] = n2
	board, err := game.NewBoardView(state)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	got := engine.Select(board, []game.Action{game.Capture("n1"), game.Capture("n2")}, false)
	if diff := cmp.Diff([]game.Action{game.Capture("n1")}, got); diff != "" {
		t.Fatalf("actions (-want +got):\n%s", diff)
	}
}

func TestFallbackRespectsBudgetAndCap(t *testing.T) {
	legal := []game.Action{
		game.Wait(),
		game.Build("a", game.ProgramSentry),
		game.Build("a", game.ProgramMiner),
		game.Build("hub", game.ProgramShield),
		game.Capture("n1"),
		game.Capture("n2"),
		game.UpgradeHub(),
		game.EMPBlast(),
	}
	costs := game.DefaultCosts()

	for _, cap := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("cap %d", cap), func(t *testing.T) {
			p := midParams(t)
			p.Thresholds.ActionCap = cap
			p.Thresholds.ReserveDP = 0
			engine := strategy.NewFromParams(p)
			board := midMap().Trace(300).Resources(60, 40).Enemies(1).Board(t)

			d := engine.Decide(board, legal, false)
			if d.Forced != "" {
				t.Fatalf("expected fallback, got forced %q", d.Forced)
			}
			if len(d.Actions) == 0 || len(d.Actions) > cap {
				t.Fatalf("got %d actions with cap %d: %v", len(d.Actions), cap, d.Actions)
			}
			var spent game.Cost
			targets := map[string]bool{}
			for _, a := range d.Actions {
				if a.Kind == game.KindWait {
					t.Fatalf("wait mixed into a non-empty turn: %v", d.Actions)
				}
				c := costs.Estimate(a, board)
				spent.DP += c.DP
				spent.CPU += c.CPU
				if a.Targeted() {
					if targets[a.Target] {
						t.Fatalf("node %s targeted twice: %v", a.Target, d.Actions)
					}
					targets[a.Target] = true
				}
			}
			if spent.DP > 60 || spent.CPU > 40 {
				t.Fatalf("turn %v overspends: %+v", d.Actions, spent)
			}
		})
	}
}

func TestWaitGenomeOnlyWaits(t *testing.T) {
	p := midParams(t)
	for name := range p.Actions {
		p.Actions[name] = 0
	}
	p.Actions["wait"] = 2
	engine := strategy.NewFromParams(p)
	board := midMap().Trace(300).Resources(500, 500).Board(t)

	got := engine.Select(board, []game.Action{game.Capture("n1"), game.Capture("n2"), game.UpgradeHub()}, false)
	if diff := cmp.Diff([]game.Action{game.Wait()}, got); diff != "" {
		t.Fatalf("actions (-want +got):\n%s", diff)
	}
}

func TestDescribeCoversEveryGeneGroup(t *testing.T) {
	rows := strategy.Describe(baseParams(t))
	seen := map[string]bool{}
	for _, r := range rows {
		key := r.Group + "/" + r.Name
		if seen[key] {
			t.Fatalf("duplicate weight row %s", key)
		}
		seen[key] = true
	}
	if len(rows) != genome.V1().Len() {
		t.Fatalf("described %d weights, want %d", len(rows), genome.V1().Len())
	}
	if !seen["threshold/late_threshold"] || !seen["web/capture_web"] {
		t.Fatalf("missing expected rows: %v", rows)
	}
}
