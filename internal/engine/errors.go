package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
)

var (
	ErrProtocolDesync = errors.New("protocol desync")
	ErrEngineTimeout  = errors.New("engine response timeout")
	ErrEngineLaunch   = errors.New("engine launch failed")
	ErrProtocol       = errors.New("engine protocol violation")
	ErrChannelBroken  = errors.New("engine channel is broken")
)

// ProtocolDesyncError reports that the engine executed something other than
// what was requested, so the local view of the game can no longer be trusted.
type ProtocolDesyncError struct {
	Index     int
	Requested *game.Action
	Executed  *game.Action
	Reason    string
}

func (e *ProtocolDesyncError) Error() string {
	requested, executed := "<none>", "<none>"
	if e.Requested != nil {
		requested = e.Requested.String()
	}
	if e.Executed != nil {
		executed = e.Executed.String()
	}
	return fmt.Sprintf("protocol desync at action %d: requested=%s executed=%s: %s", e.Index, requested, executed, e.Reason)
}

func (e *ProtocolDesyncError) Unwrap() error { return ErrProtocolDesync }

type EngineTimeoutError struct {
	Cmd   string
	After time.Duration
}

func (e *EngineTimeoutError) Error() string {
	return fmt.Sprintf("engine did not answer %q within %s", e.Cmd, e.After)
}

func (e *EngineTimeoutError) Unwrap() error { return ErrEngineTimeout }

type EngineLaunchError struct {
	Command string
	Err     error
}

func (e *EngineLaunchError) Error() string {
	return fmt.Sprintf("launch engine %q: %v", e.Command, e.Err)
}

func (e *EngineLaunchError) Unwrap() []error { return []error{ErrEngineLaunch, e.Err} }

// ProtocolError covers malformed, missing or error-carrying response lines.
type ProtocolError struct {
	Cmd string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("engine protocol error on %q: %v", e.Cmd, e.Err)
}

func (e *ProtocolError) Unwrap() []error { return []error{ErrProtocol, e.Err} }

// IsEpisodeFailure reports whether err ends the current episode without
// implicating the rest of the run.
func IsEpisodeFailure(err error) bool {
	return errors.Is(err, ErrProtocolDesync) ||
		errors.Is(err, ErrEngineTimeout) ||
		errors.Is(err, ErrProtocol) ||
		errors.Is(err, ErrChannelBroken)
}
