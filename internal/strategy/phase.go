package strategy

import (
	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/genome"
)

type Phase int

const (
	PhaseEarly Phase = iota
	PhaseMid
	PhaseLate
)

func (p Phase) String() string {
	switch p {
	case PhaseEarly:
		return "EARLY"
	case PhaseMid:
		return "MID"
	case PhaseLate:
		return "LATE"
	default:
		return "UNKNOWN"
	}
}

// DetectPhase classifies a single snapshot. There is no hysteresis: the same
// board always yields the same phase.
func DetectPhase(board *game.BoardView, t genome.Thresholds) Phase {
	ratio := board.CaptureRatio()
	switch {
	case ratio >= t.LateThreshold:
		return PhaseLate
	case ratio < t.EarlyCaptureRatio && board.Generators() < t.GeneratorTarget:
		return PhaseEarly
	default:
		return PhaseMid
	}
}

func phaseBoost(p genome.Params, phase Phase) genome.CategoryWeights {
	switch phase {
	case PhaseEarly:
		return p.Early
	case PhaseLate:
		return p.Late
	default:
		return p.Mid
	}
}
