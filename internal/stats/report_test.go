package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/model"
	"github.com/NikolayNebudi/neuro-miner/internal/scape"
	"github.com/NikolayNebudi/neuro-miner/internal/strategy"
)

func TestParseMode(t *testing.T) {
	for name, want := range map[string]Mode{"": ASCII, "table": ASCII, "markdown": Markdown, "md": Markdown} {
		got, err := ParseMode(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v want %v", name, got, want)
		}
	}
	if _, err := ParseMode("html"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestWeightsTable(t *testing.T) {
	out := WeightsTable([]strategy.WeightRow{
		{Group: "action", Name: "capture", Value: "1.250"},
		{Group: "action", Name: "wait", Value: "0.100"},
	}, Markdown)
	for _, want := range []string{"capture", "1.250", "wait"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestGenerationTable(t *testing.T) {
	out := GenerationTable([]model.GenerationDiagnostics{{Generation: 3, BestFitness: 120.5, MeanFitness: 40, MinFitness: -10000, Failures: 2}}, ASCII)
	for _, want := range []string{"120.50", "-10000.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestRunsTableHumanizesAge(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := RunsTable([]RunIndexEntry{{
		RunID:            "run-1",
		Scape:            "network-echo",
		PopulationSize:   50,
		Generations:      100,
		FinalBestFitness: 812.25,
		Solved:           true,
		CreatedAtUTC:     now.Add(-3 * time.Hour).Format(time.RFC3339),
	}}, now, ASCII)
	for _, want := range []string{"run-1", "5,000", "812.25 (solved)", "3 hours ago"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestReplayTableWinRate(t *testing.T) {
	out := ReplayTable([]scape.EpisodeResult{
		{Outcome: scape.OutcomeWin, Fitness: 1500, Final: game.Stats{PlayerNodes: 20, TotalNodes: 20}},
		{Outcome: scape.OutcomeLoss, Fitness: -300},
	}, ASCII)
	for _, want := range []string{"1/2 (50%)", "20/20", "loss"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
	if got := WinRateLabel(0, 0); got != "0/0" {
		t.Fatalf("unexpected empty win rate %q", got)
	}
}
