package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
	"github.com/NikolayNebudi/neuro-miner/internal/genome"
)

// Policy turns a board and its legal actions into one turn.
type Policy interface {
	Select(board *game.BoardView, legal []game.Action, webActive bool) []game.Action
}

// Engine is the genome-driven policy. It holds no per-game state and is safe
// for concurrent use.
type Engine struct {
	params genome.Params
	costs  game.CostTable
}

var _ Policy = (*Engine)(nil)

// New decodes g against layout.
func New(g genome.Genome, layout genome.Layout) (*Engine, error) {
	params, err := layout.Decode(g)
	if err != nil {
		return nil, fmt.Errorf("decode genome: %w", err)
	}
	return NewFromParams(params), nil
}

func NewFromParams(params genome.Params) *Engine {
	return &Engine{params: params, costs: game.DefaultCosts()}
}

func (e *Engine) Params() genome.Params { return e.params }

// Candidate is one scored legal action.
type Candidate struct {
	Action   game.Action
	Category genome.Category
	Score    float64
	Cost     game.Cost
	Chosen   bool
}

// Decision explains one turn.
type Decision struct {
	Phase      Phase
	Forced     string
	WaitScore  float64
	Actions    []game.Action
	Candidates []Candidate
}

func (e *Engine) Select(board *game.BoardView, legal []game.Action, webActive bool) []game.Action {
	return e.Decide(board, legal, webActive).Actions
}

// Decide chooses the turn's actions. A forced override, when one fires, is
// the only action of the turn. Otherwise candidates are drawn category by
// category under the running DP/CPU budget until the action cap is reached.
func (e *Engine) Decide(board *game.BoardView, legal []game.Action, webActive bool) Decision {
	phase := DetectPhase(board, e.params.Thresholds)
	d := Decision{Phase: phase}
	legal = e.usable(board, legal, webActive)

	if action, reason, ok := e.forced(board, phase, legal); ok {
		d.Forced = reason
		d.Actions = []game.Action{action}
		return d
	}

	d.WaitScore = e.params.ActionWeight(game.Wait().WireName()) * e.contextModifier(board, game.Wait(), webActive)
	d.Candidates = e.score(board, phase, legal, webActive)

	limit := e.params.Thresholds.ActionCap
	if limit < 1 {
		limit = 1
	}
	budget := game.Budget{DP: board.Stats().DP, CPU: board.Stats().CPU}
	targeted := make(map[string]bool)
	var chosen []game.Action

	for len(chosen) < limit {
		progress := false
		for _, cat := range genome.Categories() {
			if len(chosen) >= limit {
				break
			}
			for i := range d.Candidates {
				c := &d.Candidates[i]
				if c.Chosen || c.Category != cat || c.Score <= d.WaitScore {
					continue
				}
				if c.Action.Targeted() && targeted[c.Action.Target] {
					continue
				}
				if !e.fits(budget, c) {
					continue
				}
				c.Chosen = true
				budget.Spend(c.Cost)
				if c.Action.Targeted() {
					targeted[c.Action.Target] = true
				}
				chosen = append(chosen, c.Action)
				progress = true
				break
			}
		}
		if !progress {
			break
		}
	}

	if len(chosen) == 0 {
		chosen = []game.Action{game.Wait()}
	}
	d.Actions = chosen
	return d
}

// fits checks the budget, keeping ReserveDP back from everything except
// captures.
func (e *Engine) fits(budget game.Budget, c *Candidate) bool {
	cost := c.Cost
	if c.Action.Kind != game.KindCapture && cost.DP > 0 {
		cost.DP += e.params.Thresholds.ReserveDP
	}
	return budget.Affords(cost)
}

// usable drops malformed actions, captures of nodes already being
// captured and a repeated web capture once web mode is active.
func (e *Engine) usable(board *game.BoardView, legal []game.Action, webActive bool) []game.Action {
	out := make([]game.Action, 0, len(legal))
	for _, a := range legal {
		if a.Validate() != nil || a.Kind == game.KindWait {
			continue
		}
		if webActive && a.Kind == game.KindWebCapture {
			continue
		}
		if a.Targeted() {
			node, ok := board.Node(a.Target)
			if !ok {
				continue
			}
			if a.Kind == game.KindCapture && node.IsCapturing {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

func (e *Engine) targetScore(board *game.BoardView, a game.Action) float64 {
	switch a.Kind {
	case game.KindCapture:
		return e.NodeScore(board, a.Target)
	case game.KindBuild:
		return e.BuildScore(board, a.Target, a.Program)
	case game.KindUpgrade:
		return e.UpgradeScore(board, a.Target)
	default:
		return 0
	}
}

// score rates every usable action. Targeted actions scale their base score by
// the node score so the best site within a kind ranks first.
func (e *Engine) score(board *game.BoardView, phase Phase, legal []game.Action, webActive bool) []Candidate {
	boost := phaseBoost(e.params, phase)
	out := make([]Candidate, 0, len(legal))
	for _, a := range legal {
		cat := categoryOf(a)
		score := e.params.ActionWeight(a.WireName()) *
			e.params.Category.Of(cat) *
			boost.Of(cat) *
			e.contextModifier(board, a, webActive)
		if webActive {
			score *= e.params.Web.Boost.Of(cat)
		}
		if a.Targeted() {
			site := e.targetScore(board, a)
			if math.IsInf(site, -1) {
				continue
			}
			score *= math.Max(0.1, 1+site/100)
		}
		out = append(out, Candidate{
			Action:   a,
			Category: cat,
			Score:    score,
			Cost:     e.costs.Estimate(a, board),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Action.String() < out[j].Action.String()
	})
	return out
}

// forced applies the phase override, if any.
func (e *Engine) forced(board *game.BoardView, phase Phase, legal []game.Action) (game.Action, string, bool) {
	st := board.Stats()
	budget := game.Budget{DP: st.DP, CPU: st.CPU}
	t := e.params.Thresholds

	switch phase {
	case PhaseLate:
		for _, a := range legal {
			if a.Kind == game.KindWebCapture {
				return a, "late: web capture", true
			}
		}
		if a, ok := e.bestCapture(board, legal, budget, nil); ok {
			return a, "late: best capture", true
		}
	case PhaseEarly:
		if board.Generators() < t.GeneratorTarget {
			if a, ok := e.bestBuild(board, legal, budget, game.ProgramMiner); ok {
				return a, "early: generator build", true
			}
		}
		valuable := func(n game.Node) bool { return n.Type.Valuable() }
		if a, ok := e.bestCapture(board, legal, budget, valuable); ok {
			return a, "early: valuable capture", true
		}
	case PhaseMid:
		if st.TraceLevel < t.TraceCeiling {
			if a, ok := e.bestCapture(board, legal, budget, nil); ok {
				return a, "mid: capture below trace ceiling", true
			}
			break
		}
		for _, a := range legal {
			if a.Kind == game.KindNetworkCapture && budget.Affords(e.costs.Estimate(a, board)) {
				return a, "mid: trace above ceiling", true
			}
		}
	}
	return game.Action{}, "", false
}

func (e *Engine) bestCapture(board *game.BoardView, legal []game.Action, budget game.Budget, keep func(game.Node) bool) (game.Action, bool) {
	var best game.Action
	bestScore := math.Inf(-1)
	for _, a := range legal {
		if a.Kind != game.KindCapture || !budget.Affords(e.costs.Estimate(a, board)) {
			continue
		}
		node, _ := board.Node(a.Target)
		if keep != nil && !keep(node) {
			continue
		}
		if s := e.NodeScore(board, a.Target); s > bestScore || (s == bestScore && a.Target < best.Target) {
			best, bestScore = a, s
		}
	}
	return best, !math.IsInf(bestScore, -1)
}

func (e *Engine) bestBuild(board *game.BoardView, legal []game.Action, budget game.Budget, program game.ProgramType) (game.Action, bool) {
	var best game.Action
	bestScore := math.Inf(-1)
	for _, a := range legal {
		if a.Kind != game.KindBuild || a.Program != program || !budget.Affords(e.costs.Estimate(a, board)) {
			continue
		}
		if s := e.BuildScore(board, a.Target, program); s > bestScore || (s == bestScore && a.Target < best.Target) {
			best, bestScore = a, s
		}
	}
	return best, !math.IsInf(bestScore, -1)
}
