package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
)

const (
	DefaultResponseTimeout = 10 * time.Second
	maxLineBytes           = 16 << 20
)

type Options struct {
	// ResponseTimeout bounds the wait for each response line.
	ResponseTimeout time.Duration
	// TolerateRejected accepts executed entries with success=false as long
	// as they still name the requested action.
	TolerateRejected bool
	Logger           *slog.Logger
}

type lineResult struct {
	line []byte
	err  error
}

// Channel speaks the line-delimited JSON protocol over an arbitrary
// writer/reader pair. Requests are strictly sequential.
type Channel struct {
	w      io.Writer
	lines  chan lineResult
	done   chan struct{}
	closer func() error
	opts   Options
	log    *slog.Logger

	mu     sync.Mutex
	broken error

	closeOnce sync.Once
	closeErr  error
}

var _ GameChannel = (*Channel)(nil)

// NewChannel starts reading responses from r. closer runs exactly once on
// Shutdown and should release whatever backs w and r.
func NewChannel(w io.Writer, r io.Reader, closer func() error, opts Options) *Channel {
	if opts.ResponseTimeout <= 0 {
		opts.ResponseTimeout = DefaultResponseTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := &Channel{
		w:      w,
		lines:  make(chan lineResult),
		done:   make(chan struct{}),
		closer: closer,
		opts:   opts,
		log:    logger,
	}
	go c.readLoop(r)
	return c
}

func (c *Channel) readLoop(r io.Reader) {
	defer close(c.lines)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		select {
		case c.lines <- lineResult{line: line}:
		case <-c.done:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case c.lines <- lineResult{err: err}:
	case <-c.done:
	}
}

// Err returns the error that broke the channel, if any.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.broken
}

func (c *Channel) markBroken(err error) error {
	c.mu.Lock()
	if c.broken == nil {
		c.broken = err
	}
	c.mu.Unlock()
	return err
}

func request[T any](ctx context.Context, c *Channel, req Request) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken != nil {
		return zero, fmt.Errorf("%w: %v", ErrChannelBroken, c.broken)
	}
	fail := func(err error) (T, error) {
		c.broken = err
		return zero, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("encode %s request: %w", req.Cmd, err)
	}
	payload = append(payload, '\n')
	if _, err := c.w.Write(payload); err != nil {
		return fail(&ProtocolError{Cmd: req.Cmd, Err: fmt.Errorf("write request: %w", err)})
	}

	timer := time.NewTimer(c.opts.ResponseTimeout)
	defer timer.Stop()

	var res lineResult
	select {
	case r, ok := <-c.lines:
		if !ok {
			return fail(&ProtocolError{Cmd: req.Cmd, Err: io.ErrUnexpectedEOF})
		}
		res = r
	case <-timer.C:
		_ = c.Shutdown()
		return fail(&EngineTimeoutError{Cmd: req.Cmd, After: c.opts.ResponseTimeout})
	case <-ctx.Done():
		_ = c.Shutdown()
		return fail(ctx.Err())
	}

	if res.err != nil {
		return fail(&ProtocolError{Cmd: req.Cmd, Err: fmt.Errorf("read response: %w", res.err)})
	}
	line := bytes.TrimSpace(res.line)
	if len(line) == 0 {
		return fail(&ProtocolError{Cmd: req.Cmd, Err: errors.New("empty response line")})
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return fail(&ProtocolError{Cmd: req.Cmd, Err: fmt.Errorf("decode response: %w", err)})
	}
	if envelope.Error != "" {
		return fail(&ProtocolError{Cmd: req.Cmd, Err: fmt.Errorf("engine error: %s", envelope.Error)})
	}
	var out T
	if err := json.Unmarshal(line, &out); err != nil {
		return fail(&ProtocolError{Cmd: req.Cmd, Err: fmt.Errorf("decode response: %w", err)})
	}
	return out, nil
}

func (c *Channel) board(cmd string, state game.State) (*game.BoardView, error) {
	board, err := game.NewBoardView(state)
	if err != nil {
		return nil, c.markBroken(&ProtocolError{Cmd: cmd, Err: err})
	}
	return board, nil
}

func (c *Channel) Reset(ctx context.Context) (*game.BoardView, error) {
	state, err := request[game.State](ctx, c, Request{Cmd: CmdReset})
	if err != nil {
		return nil, err
	}
	return c.board(CmdReset, state)
}

// State fetches the current board without advancing the game.
func (c *Channel) State(ctx context.Context) (*game.BoardView, error) {
	state, err := request[game.State](ctx, c, Request{Cmd: CmdGetState})
	if err != nil {
		return nil, err
	}
	return c.board(CmdGetState, state)
}

func (c *Channel) ListActions(ctx context.Context) ([]game.Action, error) {
	resp, err := request[ActionsResponse](ctx, c, Request{Cmd: CmdGetActions})
	if err != nil {
		return nil, err
	}
	return resp.Actions, nil
}

// ApplyActions sends one turn and verifies the engine executed exactly what
// was requested, in order.
func (c *Channel) ApplyActions(ctx context.Context, actions []game.Action) (StepResult, error) {
	if len(actions) == 0 {
		return StepResult{}, errors.New("apply actions: empty turn")
	}
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return StepResult{}, fmt.Errorf("apply actions: action %d: %w", i, err)
		}
	}
	resp, err := request[StepResponse](ctx, c, Request{Cmd: CmdStep, Actions: actions})
	if err != nil {
		return StepResult{}, err
	}
	executed := resp.Executed()
	if err := VerifyExecution(actions, executed, c.opts.TolerateRejected); err != nil {
		c.log.Warn("engine desync", "error", err, "requested", len(actions), "executed", len(executed))
		return StepResult{}, c.markBroken(err)
	}
	board, err := c.board(CmdStep, resp.NewState)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{
		Board:    board,
		Reward:   resp.Reward,
		Done:     resp.Done || board.Done(),
		Win:      resp.Win || board.Win(),
		Executed: executed,
	}, nil
}

// Shutdown releases the underlying transport. It is safe to call more than
// once and from any error path.
func (c *Channel) Shutdown() error {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.closer != nil {
			c.closeErr = c.closer()
		}
	})
	return c.closeErr
}
