package engine

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

const DefaultGracePeriod = 2 * time.Second

// ProcessLauncher starts one engine child process per Launch call, e.g.
// `node game_engine_headless.js`.
type ProcessLauncher struct {
	Command     string
	Args        []string
	Dir         string
	Env         []string
	GracePeriod time.Duration
	Options     Options
}

var _ Launcher = ProcessLauncher{}

func (l ProcessLauncher) Launch(ctx context.Context) (GameChannel, error) {
	ch, err := l.Start(ctx)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Start spawns the engine and returns a channel bound to its stdio.
func (l ProcessLauncher) Start(ctx context.Context) (*Channel, error) {
	if l.Command == "" {
		return nil, &EngineLaunchError{Err: errors.New("engine command is required")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &EngineLaunchError{Command: l.Command, Err: err}
	}
	logger := l.Options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.Command(l.Command, l.Args...)
	cmd.Dir = l.Dir
	if len(l.Env) > 0 {
		cmd.Env = l.Env
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &EngineLaunchError{Command: l.Command, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &EngineLaunchError{Command: l.Command, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &EngineLaunchError{Command: l.Command, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &EngineLaunchError{Command: l.Command, Err: err}
	}

	pid := cmd.Process.Pid
	logger.Debug("engine started", "command", l.Command, "pid", pid)
	go relayStderr(stderr, logger.With("pid", pid))

	grace := l.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	p := &process{cmd: cmd, stdin: stdin, grace: grace, log: logger}
	return NewChannel(stdin, stdout, p.terminate, l.Options), nil
}

func relayStderr(r io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	for scanner.Scan() {
		logger.Debug("engine stderr", "line", scanner.Text())
	}
}

type process struct {
	cmd   *exec.Cmd
	stdin io.Closer
	grace time.Duration
	log   *slog.Logger
}

// terminate closes stdin so the engine's read loop ends, then kills the
// process if it has not exited within the grace period.
func (p *process) terminate() error {
	_ = p.stdin.Close()
	exited := make(chan error, 1)
	go func() { exited <- p.cmd.Wait() }()

	select {
	case err := <-exited:
		p.log.Debug("engine exited", "pid", p.cmd.Process.Pid, "error", err)
		return nil
	case <-time.After(p.grace):
	}
	p.log.Warn("engine did not exit, killing", "pid", p.cmd.Process.Pid)
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	<-exited
	return nil
}
