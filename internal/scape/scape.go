package scape

import (
	"context"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/strategy"
)

type Fitness float64

type Trace map[string]any

type Agent interface {
	ID() string
}

// PolicyAgent is an agent that can play network echo turns.
type PolicyAgent interface {
	Agent
	strategy.Policy
}

type Scape interface {
	Name() string
	Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error)
}

// StrategyAgent binds a policy to an identity.
type StrategyAgent struct {
	AgentID string
	Policy  strategy.Policy
}

func (a StrategyAgent) ID() string { return a.AgentID }

func (a StrategyAgent) Select(board *game.BoardView, legal []game.Action, webActive bool) []game.Action {
	return a.Policy.Select(board, legal, webActive)
}
