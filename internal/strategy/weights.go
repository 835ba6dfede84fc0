package strategy

import (
	"fmt"

	"github.com/NikolayNebudi/neuro-miner/internal/genome"
)

// WeightRow is one decoded decision weight.
type WeightRow struct {
	Group string
	Name  string
	Value string
}

// Describe lists every decoded weight and threshold in a stable order.
func Describe(p genome.Params) []WeightRow {
	var rows []WeightRow
	add := func(group, name string, v any) {
		rows = append(rows, WeightRow{Group: group, Name: name, Value: format(v)})
	}

	for _, name := range genome.ActionNames {
		add("action", name, p.ActionWeight(name))
	}

	s := p.Scoring
	add("scoring", "distance", s.Distance)
	add("scoring", "owned_neighbors", s.OwnedNeighbors)
	add("scoring", "neutral_neighbors", s.NeutralNeighbors)
	add("scoring", "cpu_node", s.CPUNode)
	add("scoring", "data_cache", s.DataCache)
	add("scoring", "hub", s.Hub)
	add("scoring", "resistance_penalty", resistanceBase+abs(s.Resistance))
	add("scoring", "interior", s.Interior)
	add("scoring", "frontier", s.Frontier)
	add("scoring", "upgrade", s.Upgrade)

	t := p.Thresholds
	add("threshold", "early_capture_ratio", t.EarlyCaptureRatio)
	add("threshold", "generator_target", t.GeneratorTarget)
	add("threshold", "late_threshold", t.LateThreshold)
	add("threshold", "trace_ceiling", t.TraceCeiling)
	add("threshold", "action_cap", t.ActionCap)
	add("threshold", "emp_enemies", t.EMPEnemies)
	add("threshold", "defense_trace", t.DefenseTrace)
	add("threshold", "reserve_dp", t.ReserveDP)

	groups := []struct {
		name string
		w    genome.CategoryWeights
	}{
		{"category", p.Category},
		{"early", p.Early},
		{"mid", p.Mid},
		{"late", p.Late},
		{"web", p.Web.Boost},
	}
	for _, g := range groups {
		for _, c := range genome.Categories() {
			add(g.name, c.String(), g.w.Of(c))
		}
	}
	add("web", "capture_web", p.Web.CaptureWeb)
	add("web", "defense_urgency", p.Web.DefenseUrgency)
	return rows
}

func format(v any) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.3f", x)
	default:
		return fmt.Sprint(x)
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
