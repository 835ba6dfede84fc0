package neurominer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/NikolayNebudi/neuro-miner/internal/engine"
	"github.com/NikolayNebudi/neuro-miner/internal/evo"
	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/game/gametest"
	"github.com/NikolayNebudi/neuro-miner/internal/genome"
	"github.com/NikolayNebudi/neuro-miner/internal/scape"
	"github.com/NikolayNebudi/neuro-miner/internal/storage"
)

// scriptedGame captures whatever it is asked to and ends after a few turns,
// won when no neutral node is left.
type scriptedGame struct {
	state game.State
	turns int
}

func (g *scriptedGame) Reset(context.Context) (*game.BoardView, error) {
	return game.NewBoardView(g.state)
}

func (g *scriptedGame) ListActions(context.Context) ([]game.Action, error) {
	board, err := game.NewBoardView(g.state)
	if err != nil {
		return nil, err
	}
	legal := []game.Action{game.Wait()}
	for _, id := range board.CapturableNodes() {
		legal = append(legal, game.Capture(id))
	}
	return legal, nil
}

func (g *scriptedGame) ApplyActions(_ context.Context, actions []game.Action) (engine.StepResult, error) {
	executed := make([]engine.ExecutedAction, 0, len(actions))
	for _, a := range actions {
		if a.Kind == game.KindCapture {
			node := g.state.Nodes[a.Target]
			node.Owner = game.OwnerPlayer
			g.state.Nodes[a.Target] = node
		}
		executed = append(executed, engine.ExecutedAction{Action: a, Success: true, Executed: true})
	}
	g.turns++

	board, err := game.NewBoardView(g.state)
	if err != nil {
		return engine.StepResult{}, err
	}
	win := len(board.NeutralNodes()) == 0
	return engine.StepResult{Board: board, Done: win || g.turns >= 4, Win: win, Executed: executed}, nil
}

func (g *scriptedGame) Shutdown() error { return nil }

func scriptedLauncher() engine.Launcher {
	return engine.LauncherFunc(func(context.Context) (engine.GameChannel, error) {
		state := gametest.NewMap().Hub().
			Neutral("n1", 10).
			Neutral("n2", 20).
			Link("hub", "n1", "n2").
			State()
		return &scriptedGame{state: state}, nil
	})
}

func newTestClient(t *testing.T, launcher engine.Launcher) *Client {
	t.Helper()
	return newClientIn(t, launcher, t.TempDir())
}

// newClientIn opens a client with its own memory store over runsDir.
func newClientIn(t *testing.T, launcher engine.Launcher, runsDir string) *Client {
	t.Helper()
	client, err := New(Options{
		StoreKind: "memory",
		RunsDir:   runsDir,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Launcher:  launcher,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func smallRun(runID string) RunRequest {
	return RunRequest{
		RunID:       runID,
		Population:  4,
		EliteCount:  1,
		Generations: 2,
		Episodes:    1,
		MaxSteps:    10,
		Seed:        11,
	}
}

func TestClientRunWritesArtifactsAndCheckpoint(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, scriptedLauncher())

	summary, err := client.Run(ctx, smallRun("run-a"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID != "run-a" || summary.Generation != 2 || len(summary.BestByGeneration) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	cp, err := storage.LoadCheckpointFile(summary.CheckpointPath)
	if err != nil {
		t.Fatalf("load checkpoint file: %v", err)
	}
	if cp.Individual.Fitness != summary.FinalBestFitness {
		t.Fatalf("checkpoint fitness %.3f, summary best %.3f", cp.Individual.Fitness, summary.FinalBestFitness)
	}
	if filepath.Dir(summary.CheckpointPath) != summary.ArtifactsDir {
		t.Fatalf("checkpoint %s outside artifacts dir %s", summary.CheckpointPath, summary.ArtifactsDir)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != "run-a" || runs[0].Scape != "network-echo" {
		t.Fatalf("unexpected run index: %+v", runs)
	}

	diagnostics, err := client.Diagnostics(ctx, "run-a")
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(diagnostics))
	}
}

func TestClientWeightsFromRunAndFile(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, scriptedLauncher())
	summary, err := client.Run(ctx, smallRun("run-w"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	fromRun, _, err := client.Weights(ctx, CheckpointRef{RunID: "run-w"})
	if err != nil {
		t.Fatalf("weights from run: %v", err)
	}
	fromFile, cp, err := client.Weights(ctx, CheckpointRef{Path: summary.CheckpointPath})
	if err != nil {
		t.Fatalf("weights from file: %v", err)
	}
	if len(fromRun) != genome.V1().Len() || len(fromFile) != len(fromRun) {
		t.Fatalf("unexpected weight rows: run=%d file=%d", len(fromRun), len(fromFile))
	}
	if cp.RunID != "run-w" {
		t.Fatalf("unexpected checkpoint run %s", cp.RunID)
	}
}

func TestClientReplay(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, scriptedLauncher())
	summary, err := client.Run(ctx, smallRun("run-r"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	replay, err := client.Replay(ctx, ReplayRequest{Checkpoint: CheckpointRef{Path: summary.CheckpointPath}, Games: 3, MaxSteps: 10})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replay.Results) != 3 {
		t.Fatalf("expected 3 games, got %d", len(replay.Results))
	}
	var total float64
	wins := 0
	for _, r := range replay.Results {
		total += r.Fitness
		if r.Outcome == scape.OutcomeWin {
			wins++
		}
		if r.Outcome == scape.OutcomeFailed {
			t.Fatalf("unexpected failed game: %+v", r)
		}
	}
	if wins != replay.Wins || total/3 != replay.MeanFitness {
		t.Fatalf("inconsistent replay summary: %+v", replay)
	}
}

func TestClientMissingCheckpoint(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, scriptedLauncher())

	if _, err := client.Replay(ctx, ReplayRequest{Checkpoint: CheckpointRef{RunID: "absent"}}); !errors.Is(err, ErrCheckpointNotFound) {
		t.Fatalf("expected checkpoint not found, got %v", err)
	}
	if _, _, err := client.Weights(ctx, CheckpointRef{Path: filepath.Join(t.TempDir(), "none.json")}); err == nil {
		t.Fatal("expected missing file error")
	}
	if _, err := client.LoadCheckpoint(ctx, CheckpointRef{}); err == nil {
		t.Fatal("expected missing reference error")
	}
}

func TestClientRunPropagatesLaunchFailure(t *testing.T) {
	launchErr := &engine.EngineLaunchError{Command: "node", Err: errors.New("not found")}
	client := newTestClient(t, engine.LauncherFunc(func(context.Context) (engine.GameChannel, error) {
		return nil, launchErr
	}))

	_, err := client.Run(context.Background(), smallRun("run-f"))
	if !errors.Is(err, engine.ErrEngineLaunch) {
		t.Fatalf("expected launch error, got %v", err)
	}
}

func TestClientRunValidation(t *testing.T) {
	client := newTestClient(t, scriptedLauncher())

	req := smallRun("")
	req.Resume = true
	if _, err := client.Run(context.Background(), req); !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected invalid config for resume without id, got %v", err)
	}

	req = smallRun("run-s")
	req.Selection = "roulette"
	if _, err := client.Run(context.Background(), req); !errors.Is(err, evo.ErrInvalidConfig) {
		t.Fatalf("expected invalid selection error, got %v", err)
	}
}

func TestClientResumesFromRunDirectory(t *testing.T) {
	ctx := context.Background()
	runsDir := t.TempDir()

	first, err := newClientIn(t, scriptedLauncher(), runsDir).Run(ctx, smallRun("run-resume"))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A fresh memory store knows nothing about the run.
	second := newClientIn(t, scriptedLauncher(), runsDir)
	req := smallRun("run-resume")
	req.Resume = true
	req.Generations = 1
	req.Population = 99
	resumed, err := second.Run(ctx, req)
	if err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if resumed.Generation != first.Generation+1 || len(resumed.BestByGeneration) != 3 || len(resumed.Diagnostics) != 3 {
		t.Fatalf("unexpected resumed summary: %+v", resumed)
	}
	if resumed.FinalBestFitness < first.FinalBestFitness {
		t.Fatalf("best ever regressed: %v < %v", resumed.FinalBestFitness, first.FinalBestFitness)
	}

	cfg, err := second.RunConfig("run-resume")
	if err != nil {
		t.Fatalf("run config: %v", err)
	}
	if !cfg.Resumed || cfg.PopulationSize != 4 || cfg.EliteCount != 1 {
		t.Fatalf("unexpected resumed config: %+v", cfg)
	}
}

func TestClientResumeWithoutArtifacts(t *testing.T) {
	client := newTestClient(t, scriptedLauncher())
	req := smallRun("never-ran")
	req.Resume = true
	if _, err := client.Run(context.Background(), req); !errors.Is(err, evo.ErrNoSnapshot) {
		t.Fatalf("expected no snapshot error, got %v", err)
	}
}

func TestClientLoadsRunCheckpointFromRunDirectory(t *testing.T) {
	ctx := context.Background()
	runsDir := t.TempDir()
	summary, err := newClientIn(t, scriptedLauncher(), runsDir).Run(ctx, smallRun("run-disk"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	cp, err := newClientIn(t, scriptedLauncher(), runsDir).LoadCheckpoint(ctx, CheckpointRef{RunID: "run-disk"})
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if cp.RunID != "run-disk" || cp.Individual.Fitness != summary.FinalBestFitness {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}
}

func TestClientRecordsRequestedMutation(t *testing.T) {
	client := newTestClient(t, scriptedLauncher())
	req := smallRun("run-m")
	req.Generations = 3
	req.Mutation = evo.AdaptiveMutation{Rate: 0.05, Strength: 0.1, Patience: 1}
	if _, err := client.Run(context.Background(), req); err != nil {
		t.Fatalf("run: %v", err)
	}
	cfg, err := client.RunConfig("run-m")
	if err != nil {
		t.Fatalf("run config: %v", err)
	}
	if cfg.MutationRate != 0.05 || cfg.MutationStrength != 0.1 {
		t.Fatalf("recorded mutation %v/%v, want 0.05/0.1", cfg.MutationRate, cfg.MutationStrength)
	}
}

func TestClientExport(t *testing.T) {
	client := newTestClient(t, scriptedLauncher())
	if _, err := client.Run(context.Background(), smallRun("run-x")); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := t.TempDir()
	dst, err := client.Export("run-x", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, name := range []string{storage.BestCheckpointFile, storage.PopulationFile} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Fatalf("exported %s: %v", name, err)
		}
	}
	if _, err := client.Export("absent", out); err == nil {
		t.Fatal("expected export of unknown run to fail")
	}
}
