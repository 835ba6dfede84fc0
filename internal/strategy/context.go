package strategy

import (
	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/genome"
)

// categoryOf places an action in the fallback priority order.
func categoryOf(a game.Action) genome.Category {
	switch a.Kind {
	case game.KindWebCapture:
		return genome.CategoryTerminal
	case game.KindNetworkCapture, game.KindEMPBlast:
		return genome.CategoryStrategic
	case game.KindBuild:
		switch a.Program {
		case game.ProgramSentry, game.ProgramShield:
			return genome.CategoryDefensive
		default:
			return genome.CategoryEconomic
		}
	case game.KindCapture:
		return genome.CategoryCapture
	default:
		return genome.CategoryUpgrade
	}
}

// contextModifier adjusts an action's weight to the current resources and
// threat level.
func (e *Engine) contextModifier(board *game.BoardView, a game.Action, webActive bool) float64 {
	st := board.Stats()
	t := e.params.Thresholds
	m := 1.0

	switch a.Kind {
	case game.KindWait:
		if st.Enemies > 2 {
			m *= 0.5
		}
		if st.TraceLevel > t.DefenseTrace {
			m *= 0.7
		}
	case game.KindCapture:
		if st.PlayerNodes < 5 {
			m *= 2
		} else if st.DP > 50 {
			m *= 1.3
		}
	case game.KindBuild:
		cost := e.costs.Build[a.Program]
		if st.DP > cost*3 {
			m *= 1.5
		}
		switch a.Program {
		case game.ProgramSentry:
			if st.Enemies > 2 {
				m *= 2
			}
		case game.ProgramShield:
			if st.Enemies > 1 {
				m *= 1.8
			}
		case game.ProgramMiner:
			if board.Generators() < t.GeneratorTarget {
				m *= 1.5
			} else if st.DP < 100 {
				m *= 1.3
			}
		case game.ProgramOverclocker:
			if st.CPU < 50 {
				m *= 1.4
			}
		}
		if categoryOf(a) == genome.CategoryDefensive {
			if st.TraceLevel > t.DefenseTrace {
				m *= 1.3
			}
			if webActive {
				m *= e.params.Web.DefenseUrgency
			}
		} else if st.TraceLevel > t.DefenseTrace {
			m *= 0.7
		}
	case game.KindUpgrade:
		switch {
		case st.DP > 50 && st.CPU > 20:
			m *= 1.5
		case st.DP < 30 || st.CPU < 10:
			m *= 0.5
		}
		if board.Generators() < t.GeneratorTarget {
			m *= 0.5
		}
	case game.KindUpgradeHub:
		if st.CPU > 100 {
			m *= 1.5
		}
		if st.TraceLevel > t.DefenseTrace {
			m *= 1.3
		}
	case game.KindEMPBlast:
		switch {
		case st.Enemies == 0:
			m *= 0.1
		case st.Enemies >= t.EMPEnemies:
			m *= 2
		}
	case game.KindNetworkCapture:
		switch {
		case board.CaptureRatio() >= 0.7:
			m *= 3
		case st.TraceLevel < 50:
			m *= 1.3
		case st.TraceLevel > t.TraceCeiling:
			m *= 1.5
		}
	case game.KindWebCapture:
		m *= e.params.Web.CaptureWeb
		if board.CaptureRatio() >= t.LateThreshold {
			m *= 2
		}
	}
	return m
}
