package engine

import (
	"context"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
)

const (
	CmdReset      = "reset"
	CmdGetActions = "get_actions"
	CmdGetState   = "get_state"
	CmdStep       = "step"
)

// GameChannel is a synchronous request/response session with one engine.
type GameChannel interface {
	Reset(ctx context.Context) (*game.BoardView, error)
	ListActions(ctx context.Context) ([]game.Action, error)
	ApplyActions(ctx context.Context, actions []game.Action) (StepResult, error)
	Shutdown() error
}

// StateReader reads the board without advancing the game.
type StateReader interface {
	State(ctx context.Context) (*game.BoardView, error)
}

var _ StateReader = (*Channel)(nil)

// Launcher starts a fresh engine session.
type Launcher interface {
	Launch(ctx context.Context) (GameChannel, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context) (GameChannel, error)

func (f LauncherFunc) Launch(ctx context.Context) (GameChannel, error) { return f(ctx) }

type Request struct {
	Cmd     string        `json:"cmd"`
	Actions []game.Action `json:"actions,omitempty"`
}

type ActionsResponse struct {
	Actions []game.Action `json:"actions"`
}

type ExecutedAction struct {
	Action   game.Action `json:"action"`
	Success  bool        `json:"success"`
	Reason   string      `json:"reason,omitempty"`
	Executed bool        `json:"executed"`
}

type StepResponse struct {
	NewState         game.State       `json:"newState"`
	Reward           float64          `json:"reward"`
	Done             bool             `json:"done"`
	Win              bool             `json:"win"`
	ExecutedActions  []ExecutedAction `json:"executed_actions,omitempty"`
	PerformedActions []ExecutedAction `json:"performedActions,omitempty"`
}

// Executed returns the engine's execution report, whichever key carried it.
func (r StepResponse) Executed() []ExecutedAction {
	if len(r.ExecutedActions) > 0 {
		return r.ExecutedActions
	}
	return r.PerformedActions
}

type StepResult struct {
	Board    *game.BoardView
	Reward   float64
	Done     bool
	Win      bool
	Executed []ExecutedAction
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// VerifyExecution checks that executed mirrors requested one-for-one. Every
// entry must name the requested action at the same index and, unless
// tolerateRejected is set, report success.
func VerifyExecution(requested []game.Action, executed []ExecutedAction, tolerateRejected bool) error {
	for i := range requested {
		want := requested[i]
		if i >= len(executed) {
			return &ProtocolDesyncError{Index: i, Requested: &want, Reason: "missing execution entry"}
		}
		got := executed[i].Action
		if got != want {
			return &ProtocolDesyncError{Index: i, Requested: &want, Executed: &got, Reason: "action mismatch"}
		}
		if !executed[i].Success && !tolerateRejected {
			reason := "engine rejected action"
			if executed[i].Reason != "" {
				reason += ": " + executed[i].Reason
			}
			return &ProtocolDesyncError{Index: i, Requested: &want, Executed: &got, Reason: reason}
		}
	}
	if len(executed) > len(requested) {
		extra := executed[len(requested)].Action
		return &ProtocolDesyncError{Index: len(requested), Executed: &extra, Reason: "unexpected extra execution entry"}
	}
	return nil
}
