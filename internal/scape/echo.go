package scape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/NikolayNebudi/neuro-miner/internal/engine"
	"github.com/NikolayNebudi/neuro-miner/internal/game"
)

const (
	OutcomeWin       = "win"
	OutcomeLoss      = "loss"
	OutcomeTruncated = "truncated"
	OutcomeFailed    = "failed"
)

const (
	DefaultMaxSteps       = 1000
	DefaultLossFloor      = -5000.0
	DefaultFailureFitness = -10000.0
)

type EchoConfig struct {
	Launcher engine.Launcher
	Episodes int
	MaxSteps int
	Shaping  Shaping
	// LossFloor bounds the fitness of a completed episode from below.
	LossFloor float64
	// FailureFitness is the exact score of an episode aborted by an engine
	// or protocol failure. It must be below LossFloor.
	FailureFitness float64
	// RefreshFinal re-reads the board from the engine once an episode ends,
	// for channels that support it.
	RefreshFinal bool
	Logger       *slog.Logger
}

// EchoScape scores an agent by playing full network echo episodes against a
// freshly launched engine.
type EchoScape struct {
	cfg EchoConfig
	log *slog.Logger
}

func NewEchoScape(cfg EchoConfig) (*EchoScape, error) {
	if cfg.Launcher == nil {
		return nil, errors.New("engine launcher is required")
	}
	if cfg.Episodes <= 0 {
		cfg.Episodes = 1
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.Shaping == (Shaping{}) {
		cfg.Shaping = DefaultShaping()
	}
	if cfg.LossFloor == 0 {
		cfg.LossFloor = DefaultLossFloor
	}
	if cfg.FailureFitness == 0 {
		cfg.FailureFitness = DefaultFailureFitness
	}
	if cfg.FailureFitness >= cfg.LossFloor {
		return nil, fmt.Errorf("failure fitness %v must be below loss floor %v", cfg.FailureFitness, cfg.LossFloor)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EchoScape{cfg: cfg, log: logger}, nil
}

func (s *EchoScape) Name() string { return "network-echo" }

func (s *EchoScape) Config() EchoConfig { return s.cfg }

// EpisodeResult summarises one played episode.
type EpisodeResult struct {
	Outcome         string       `json:"outcome"`
	Fitness         float64      `json:"fitness"`
	Steps           int          `json:"steps"`
	Reward          float64      `json:"reward"`
	Captures        int          `json:"captures"`
	Builds          int          `json:"builds"`
	Kills           int          `json:"kills"`
	NetworkCaptures int          `json:"network_captures"`
	Final           game.Stats   `json:"final"`
	Connectivity    Connectivity `json:"connectivity"`
	FailureReason   string       `json:"failure_reason,omitempty"`
}

// Evaluate plays the configured number of episodes and returns the mean
// fitness. Only launch failures and cancellation are returned as errors.
func (s *EchoScape) Evaluate(ctx context.Context, agent Agent) (Fitness, Trace, error) {
	policy, ok := agent.(PolicyAgent)
	if !ok {
		return 0, nil, fmt.Errorf("agent %s does not implement a game policy", agent.ID())
	}

	results := make([]EpisodeResult, 0, s.cfg.Episodes)
	for i := 0; i < s.cfg.Episodes; i++ {
		res, err := s.PlayEpisode(ctx, policy)
		if err != nil {
			return 0, nil, err
		}
		results = append(results, res)
	}
	fitness, trace := summarize(results)
	return Fitness(fitness), trace, nil
}

func summarize(results []EpisodeResult) (float64, Trace) {
	var total float64
	outcomes := map[string]int{}
	var steps, captures, builds, kills, network int
	var reachable float64
	for _, r := range results {
		total += r.Fitness
		outcomes[r.Outcome]++
		steps += r.Steps
		captures += r.Captures
		builds += r.Builds
		kills += r.Kills
		network += r.NetworkCaptures
		reachable += r.Connectivity.ReachableFraction
	}
	n := float64(len(results))
	mean := total / n
	trace := Trace{
		"episodes":           len(results),
		"wins":               outcomes[OutcomeWin],
		"losses":             outcomes[OutcomeLoss],
		"truncated":          outcomes[OutcomeTruncated],
		"failures":           outcomes[OutcomeFailed],
		"mean_fitness":       mean,
		"steps":              steps,
		"captures":           captures,
		"builds":             builds,
		"kills":              kills,
		"network_captures":   network,
		"reachable_fraction": reachable / n,
		"outcome":            results[len(results)-1].Outcome,
		"episode_results":    results,
	}
	if last := results[len(results)-1]; last.FailureReason != "" {
		trace["failure_reason"] = last.FailureReason
	}
	return mean, trace
}

// PlayEpisode runs one episode on a new engine process. Engine and protocol
// failures are folded into an OutcomeFailed result. Entering the web defense
// phase ends the episode as a win.
func (s *EchoScape) PlayEpisode(ctx context.Context, agent PolicyAgent) (EpisodeResult, error) {
	ch, err := s.cfg.Launcher.Launch(ctx)
	if err != nil {
		return EpisodeResult{}, err
	}
	defer func() {
		if err := ch.Shutdown(); err != nil {
			s.log.Debug("engine shutdown", "agent", agent.ID(), "error", err)
		}
	}()

	board, err := ch.Reset(ctx)
	if err != nil {
		return s.failed(ctx, agent, episodeTally{}, err)
	}

	var tally episodeTally
	webActive := false
	done, win := board.Done(), board.Win()
	if webDefense(board) {
		done, win = true, true
	}
	for tally.steps < s.cfg.MaxSteps && !done {
		legal, err := ch.ListActions(ctx)
		if err != nil {
			return s.failed(ctx, agent, tally, err)
		}
		turn := agent.Select(board, legal, webActive)
		res, err := ch.ApplyActions(ctx, turn)
		if err != nil {
			return s.failed(ctx, agent, tally, err)
		}
		tally.observe(board, res)
		for _, e := range res.Executed {
			if e.Success && e.Action.Kind == game.KindWebCapture {
				webActive = true
			}
		}
		board = res.Board
		done, win = res.Done, res.Win
		if !done && webDefense(board) {
			// The engine freezes the board and rejects every action while the
			// web is being defended, so the web capture decides the game.
			done, win = true, true
		}
	}

	if reader, ok := ch.(engine.StateReader); ok && s.cfg.RefreshFinal {
		final, err := reader.State(ctx)
		if err != nil {
			s.log.Warn("final state unavailable", "agent", agent.ID(), "error", err)
		} else {
			board = final
		}
	}

	outcome := OutcomeTruncated
	if done {
		outcome = OutcomeLoss
		if win {
			outcome = OutcomeWin
		}
	}
	conn := AnalyzeConnectivity(board)
	fitness := math.Max(s.cfg.LossFloor, s.cfg.Shaping.score(tally, board, outcome, conn))

	s.log.Debug("episode finished", "agent", agent.ID(), "outcome", outcome, "steps", tally.steps, "fitness", fitness)
	return EpisodeResult{
		Outcome:         outcome,
		Fitness:         fitness,
		Steps:           tally.steps,
		Reward:          tally.reward,
		Captures:        tally.captures,
		Builds:          tally.builds,
		Kills:           tally.kills,
		NetworkCaptures: tally.networkCaptures,
		Final:           board.Stats(),
		Connectivity:    conn,
	}, nil
}

func webDefense(board *game.BoardView) bool {
	return board.Stats().Phase == game.PhaseCaptureWebDefend
}

// failed folds an episode-scoped engine failure into an OutcomeFailed
// result. Anything else is returned to the caller.
func (s *EchoScape) failed(ctx context.Context, agent PolicyAgent, tally episodeTally, err error) (EpisodeResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return EpisodeResult{}, ctxErr
	}
	if !engine.IsEpisodeFailure(err) {
		return EpisodeResult{}, fmt.Errorf("agent %s step %d: %w", agent.ID(), tally.steps, err)
	}
	s.log.Warn("episode failed", "agent", agent.ID(), "step", tally.steps, "error", err)
	return EpisodeResult{
		Outcome:         OutcomeFailed,
		Fitness:         s.cfg.FailureFitness,
		Steps:           tally.steps,
		Reward:          tally.reward,
		Captures:        tally.captures,
		Builds:          tally.builds,
		Kills:           tally.kills,
		NetworkCaptures: tally.networkCaptures,
		FailureReason:   err.Error(),
	}, nil
}
