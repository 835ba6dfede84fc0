package scape

import (
	"github.com/NikolayNebudi/neuro-miner/internal/engine"
	"github.com/NikolayNebudi/neuro-miner/internal/game"
)

// Shaping weights the terms added on top of the engine's raw reward.
type Shaping struct {
	CaptureBonus float64 `yaml:"capture_bonus" json:"capture_bonus"`
	BuildBonus   float64 `yaml:"build_bonus" json:"build_bonus"`
	KillBonus    float64 `yaml:"kill_bonus" json:"kill_bonus"`

	WinBonus        float64 `yaml:"win_bonus" json:"win_bonus"`
	NetworkWinBonus float64 `yaml:"network_win_bonus" json:"network_win_bonus"`
	FastWinBonus    float64 `yaml:"fast_win_bonus" json:"fast_win_bonus"`
	FastWinSteps    int     `yaml:"fast_win_steps" json:"fast_win_steps"`
	LossPenalty     float64 `yaml:"loss_penalty" json:"loss_penalty"`

	DPWeight    float64 `yaml:"dp_weight" json:"dp_weight"`
	NodeWeight  float64 `yaml:"node_weight" json:"node_weight"`
	TraceWeight float64 `yaml:"trace_weight" json:"trace_weight"`

	NetworkCaptureAllowance int     `yaml:"network_capture_allowance" json:"network_capture_allowance"`
	NetworkCapturePenalty   float64 `yaml:"network_capture_penalty" json:"network_capture_penalty"`

	ReachableBonus  float64 `yaml:"reachable_bonus" json:"reachable_bonus"`
	DistancePenalty float64 `yaml:"distance_penalty" json:"distance_penalty"`
	SpreadPenalty   float64 `yaml:"spread_penalty" json:"spread_penalty"`
	IslandPenalty   float64 `yaml:"island_penalty" json:"island_penalty"`
}

func DefaultShaping() Shaping {
	return Shaping{
		CaptureBonus:            10,
		BuildBonus:              5,
		KillBonus:               15,
		WinBonus:                1000,
		NetworkWinBonus:         300,
		FastWinBonus:            200,
		FastWinSteps:            300,
		LossPenalty:             500,
		DPWeight:                0.1,
		NodeWeight:              10,
		TraceWeight:             0.5,
		NetworkCaptureAllowance: 10,
		NetworkCapturePenalty:   5,
		ReachableBonus:          100,
		DistancePenalty:         2,
		SpreadPenalty:           1,
		IslandPenalty:           20,
	}
}

// episodeTally accumulates per-step shaping inputs.
type episodeTally struct {
	steps           int
	reward          float64
	captures        int
	builds          int
	kills           int
	networkCaptures int
	lastTurnNetwork bool
}

func (t *episodeTally) observe(prev *game.BoardView, res engine.StepResult) {
	t.steps++
	t.reward += res.Reward
	t.lastTurnNetwork = false

	for _, id := range res.Board.PlayerNodes() {
		if node, ok := prev.Node(id); !ok || node.Owner != game.OwnerPlayer {
			t.captures++
		}
	}
	for _, e := range res.Executed {
		if !e.Success {
			continue
		}
		switch e.Action.Kind {
		case game.KindBuild:
			t.builds++
		case game.KindNetworkCapture:
			t.networkCaptures++
			t.lastTurnNetwork = true
		}
	}
	if prev.CountPrograms(game.ProgramSentry) > 0 {
		if drop := prev.Stats().Enemies - res.Board.Stats().Enemies; drop > 0 {
			t.kills += drop
		}
	}
}

// score combines the tally with the terminal state. outcome is one of the
// Outcome constants other than OutcomeFailed.
func (s Shaping) score(t episodeTally, final *game.BoardView, outcome string, conn Connectivity) float64 {
	fitness := t.reward +
		float64(t.captures)*s.CaptureBonus +
		float64(t.builds)*s.BuildBonus +
		float64(t.kills)*s.KillBonus

	switch outcome {
	case OutcomeWin:
		fitness += s.WinBonus
		if t.lastTurnNetwork {
			fitness += s.NetworkWinBonus
		}
		if s.FastWinSteps > 0 && t.steps <= s.FastWinSteps {
			fitness += s.FastWinBonus
		}
	case OutcomeLoss:
		fitness -= s.LossPenalty
	}

	st := final.Stats()
	fitness += st.DP*s.DPWeight + float64(st.PlayerNodes)*s.NodeWeight - st.TraceLevel*s.TraceWeight

	if over := t.networkCaptures - s.NetworkCaptureAllowance; over > 0 {
		fitness -= float64(over) * s.NetworkCapturePenalty
	}

	fitness += conn.ReachableFraction*s.ReachableBonus -
		conn.MeanDistance*s.DistancePenalty -
		conn.DistanceStdDev*s.SpreadPenalty -
		float64(conn.Islands)*s.IslandPenalty
	return fitness
}
