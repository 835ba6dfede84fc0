package stats

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/NikolayNebudi/neuro-miner/internal/model"
	"github.com/NikolayNebudi/neuro-miner/internal/scape"
	"github.com/NikolayNebudi/neuro-miner/internal/strategy"
)

// Mode selects how report tables render.
type Mode int

const (
	ASCII Mode = iota
	Markdown
)

// ParseMode maps a CLI format name onto a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "table", "ascii":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return ASCII, fmt.Errorf("unsupported output format: %s", name)
	}
}

func newTable(mode Mode) table.Writer {
	w := table.NewWriter()
	if mode == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return w
}

func render(w table.Writer, mode Mode) string {
	if mode == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

func rightAligned(columns ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(columns))
	for _, n := range columns {
		out = append(out, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return out
}

// WeightsTable lists decoded decision weights grouped by segment.
func WeightsTable(rows []strategy.WeightRow, mode Mode) string {
	w := newTable(mode)
	w.AppendHeader(table.Row{"Group", "Name", "Value"})
	for _, row := range rows {
		w.AppendRow(table.Row{row.Group, row.Name, row.Value})
	}
	w.SetColumnConfigs(append(rightAligned(3), table.ColumnConfig{Number: 1, AutoMerge: true}))
	return render(w, mode)
}

func GenerationTable(diagnostics []model.GenerationDiagnostics, mode Mode) string {
	w := newTable(mode)
	w.AppendHeader(table.Row{"Gen", "Best", "Mean", "Min", "Best ever", "Wins", "Failures", "Rate", "Strength", "Stagnation"})
	for _, d := range diagnostics {
		w.AppendRow(table.Row{
			d.Generation,
			fmt.Sprintf("%.2f", d.BestFitness),
			fmt.Sprintf("%.2f", d.MeanFitness),
			fmt.Sprintf("%.2f", d.MinFitness),
			fmt.Sprintf("%.2f", d.BestEverFitness),
			d.Wins,
			d.Failures,
			fmt.Sprintf("%.3f", d.MutationRate),
			fmt.Sprintf("%.3f", d.MutationStrength),
			d.Stagnation,
		})
	}
	w.SetColumnConfigs(rightAligned(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	return render(w, mode)
}

// RunsTable lists indexed runs with their age relative to now.
func RunsTable(entries []RunIndexEntry, now time.Time, mode Mode) string {
	w := newTable(mode)
	w.AppendHeader(table.Row{"Run", "Scape", "Population", "Generations", "Evaluations", "Best", "Created"})
	for _, e := range entries {
		created := e.CreatedAtUTC
		if at, err := time.Parse(time.RFC3339, e.CreatedAtUTC); err == nil {
			created = humanize.RelTime(at, now, "ago", "from now")
		}
		best := fmt.Sprintf("%.2f", e.FinalBestFitness)
		if e.Solved {
			best += " (solved)"
		}
		w.AppendRow(table.Row{
			e.RunID,
			e.Scape,
			e.PopulationSize,
			e.Generations,
			humanize.Comma(int64(e.PopulationSize) * int64(e.Generations)),
			best,
			created,
		})
	}
	w.SetColumnConfigs(rightAligned(3, 4, 5, 6))
	return render(w, mode)
}

// ReplayTable lists replayed episodes with the aggregate win rate in the
// footer.
func ReplayTable(results []scape.EpisodeResult, mode Mode) string {
	w := newTable(mode)
	w.AppendHeader(table.Row{"Game", "Outcome", "Fitness", "Steps", "DP", "CPU", "Nodes", "Trace", "Reachable", "Mean dist"})
	wins := 0
	for i, r := range results {
		if r.Outcome == scape.OutcomeWin {
			wins++
		}
		w.AppendRow(table.Row{
			i + 1,
			r.Outcome,
			fmt.Sprintf("%.1f", r.Fitness),
			r.Steps,
			fmt.Sprintf("%.0f", r.Final.DP),
			fmt.Sprintf("%.0f", r.Final.CPU),
			fmt.Sprintf("%d/%d", r.Final.PlayerNodes, r.Final.TotalNodes),
			fmt.Sprintf("%.0f", r.Final.TraceLevel),
			fmt.Sprintf("%.0f%%", r.Connectivity.ReachableFraction*100),
			fmt.Sprintf("%.2f", r.Connectivity.MeanDistance),
		})
	}
	w.AppendFooter(table.Row{"", "win rate", WinRateLabel(wins, len(results))})
	w.SetColumnConfigs(rightAligned(1, 3, 4, 5, 6, 7, 8, 9, 10))
	return render(w, mode)
}

func WinRateLabel(wins, games int) string {
	if games == 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d (%.0f%%)", wins, games, float64(wins)/float64(games)*100)
}
