package engine_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/NikolayNebudi/neuro-miner/internal/engine"
)

const helperEnv = "NEUROMINER_ENGINE_HELPER"

// TestHelperProcess is not a real test. It is re-executed by the launcher
// tests to act as a minimal engine.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	mode := os.Args[len(os.Args)-1]
	fmt.Fprintln(os.Stderr, "helper engine ready")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var req struct {
			Cmd string `json:"cmd"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			fmt.Println(`{"error":"bad request"}`)
			continue
		}
		if mode == "hang" {
			time.Sleep(time.Hour)
		}
		switch req.Cmd {
		case engine.CmdReset:
			fmt.Println(boardJSON)
		case engine.CmdGetActions:
			fmt.Println(`{"actions":[{"action":"wait"}]}`)
		default:
			fmt.Println(`{"error":"Unknown command"}`)
		}
	}
	os.Exit(0)
}

func helperLauncher(mode string, timeout time.Duration) engine.ProcessLauncher {
	return engine.ProcessLauncher{
		Command:     os.Args[0],
		Args:        []string{"-test.run=TestHelperProcess", "--", mode},
		Env:         append(os.Environ(), helperEnv+"=1"),
		GracePeriod: 200 * time.Millisecond,
		Options:     engine.Options{ResponseTimeout: timeout},
	}
}

func TestProcessLauncherRoundTrip(t *testing.T) {
	ch, err := helperLauncher("echo", 5*time.Second).Launch(context.Background())
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	defer ch.Shutdown()

	board, err := ch.Reset(context.Background())
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if board.TotalNodes() != 2 {
		t.Fatalf("expected 2 nodes, got %d", board.TotalNodes())
	}
	actions, err := ch.ListActions(context.Background())
	if err != nil {
		t.Fatalf("list actions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %v", actions)
	}
	if err := ch.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := ch.Shutdown(); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestProcessLauncherTimeoutKillsEngine(t *testing.T) {
	ch, err := helperLauncher("hang", 100*time.Millisecond).Start(context.Background())
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	start := time.Now()
	_, err = ch.Reset(context.Background())
	if !errors.Is(err, engine.ErrEngineTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("hung engine was not terminated promptly: %s", elapsed)
	}
	if err := ch.Shutdown(); err != nil {
		t.Fatalf("shutdown after timeout: %v", err)
	}
}

func TestProcessLauncherLaunchError(t *testing.T) {
	_, err := engine.ProcessLauncher{Command: "/nonexistent/neuro-miner-engine"}.Launch(context.Background())
	var launchErr *engine.EngineLaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("expected launch error, got %v", err)
	}
	if !errors.Is(err, engine.ErrEngineLaunch) {
		t.Fatalf("expected ErrEngineLaunch, got %v", err)
	}
	if engine.IsEpisodeFailure(err) {
		t.Fatal("launch errors must not be treated as episode failures")
	}

	if _, err := (engine.ProcessLauncher{}).Launch(context.Background()); !errors.Is(err, engine.ErrEngineLaunch) {
		t.Fatalf("expected launch error for empty command, got %v", err)
	}
}
