package strategy

import (
	"math"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
)

// Structural bonuses. Genome multipliers scale the weighted terms around
// these, never the hole-fill bonus or the island penalty.
const (
	bonusNear        = 30.0
	bonusTwoHops     = 20.0
	bonusThreeHops   = 10.0
	bonusFar         = 5.0
	perOwnedNeighbor = 15.0
	holeFillBonus    = 40.0
	perNeutral       = 10.0
	bonusCPUNode     = 25.0
	bonusDataCache   = 15.0
	bonusHub         = 35.0
	islandPenalty    = 100.0
	resistanceBase   = 0.5
)

func distanceBonus(d int) float64 {
	switch {
	case d <= 1:
		return bonusNear
	case d == 2:
		return bonusTwoHops
	case d == 3:
		return bonusThreeHops
	case d >= game.Unreachable:
		return 0
	default:
		return bonusFar
	}
}

// NodeScore rates a capture target. The score never increases with the
// node's resistance.
func (e *Engine) NodeScore(board *game.BoardView, id string) float64 {
	node, ok := board.Node(id)
	if !ok {
		return math.Inf(-1)
	}
	s := e.params.Scoring

	score := distanceBonus(board.DistanceFromHub(id)) * s.Distance

	owned := board.NeighborCount(id, game.OwnerPlayer)
	score += float64(owned) * perOwnedNeighbor * s.OwnedNeighbors
	switch {
	case owned >= 2:
		score += holeFillBonus
	case owned == 0:
		score -= islandPenalty
	}
	score += float64(board.NeighborCount(id, game.OwnerNeutral)) * perNeutral * s.NeutralNeighbors

	switch node.Type {
	case game.NodeCPU:
		score += bonusCPUNode * s.CPUNode
	case game.NodeDataCache:
		score += bonusDataCache * s.DataCache
	case game.NodeHub:
		score += bonusHub * s.Hub
	}

	score -= node.Resistance * (resistanceBase + math.Abs(s.Resistance))
	return score
}

// BuildScore rates an owned node as a site for program. Miners prefer the
// interior, defences the frontier, overclockers only fit cpu nodes.
func (e *Engine) BuildScore(board *game.BoardView, id string, program game.ProgramType) float64 {
	node, ok := board.Node(id)
	if !ok || node.HasProgram() {
		return math.Inf(-1)
	}
	s := e.params.Scoring
	owned := float64(board.NeighborCount(id, game.OwnerPlayer))
	exposed := float64(board.NeighborCount(id, game.OwnerNeutral) + 2*board.NeighborCount(id, game.OwnerEnemy))
	score := distanceBonus(board.DistanceFromHub(id)) * s.Distance

	switch program {
	case game.ProgramMiner:
		score += (owned*perOwnedNeighbor - exposed*5) * s.Interior
		if node.Type == game.NodeDataCache {
			score += bonusDataCache * s.DataCache
		}
	case game.ProgramSentry, game.ProgramShield:
		score += exposed * 25 * s.Frontier
		if board.DistanceFromHub(id) <= 1 {
			score += bonusNear
		}
	case game.ProgramOverclocker:
		if node.Type != game.NodeCPU {
			return math.Inf(-1)
		}
		score += bonusCPUNode * 2 * s.CPUNode
	}
	return score
}

// UpgradeScore prefers cheap, low-level generator upgrades.
func (e *Engine) UpgradeScore(board *game.BoardView, id string) float64 {
	node, ok := board.Node(id)
	if !ok || !node.HasProgram() {
		return math.Inf(-1)
	}
	level := math.Max(1, float64(node.Program.Level))
	score := 40 / level
	if node.Program.Type.Generator() {
		score += 20
	}
	return score * e.params.Scoring.Upgrade
}
