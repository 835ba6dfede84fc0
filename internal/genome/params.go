package genome

import "fmt"

// Category groups actions for the fallback selector. The order is the
// selector's priority order.
type Category int

const (
	CategoryTerminal Category = iota
	CategoryStrategic
	CategoryDefensive
	CategoryEconomic
	CategoryCapture
	CategoryUpgrade
	NumCategories = 6
)

var categoryNames = [NumCategories]string{"terminal", "strategic", "defensive", "economic", "capture", "upgrade"}

func (c Category) String() string {
	if c < 0 || int(c) >= NumCategories {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// Categories lists every category in priority order.
func Categories() []Category {
	out := make([]Category, NumCategories)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// ActionNames are the engine action names carrying a base weight, in gene
// order. capture_web is weighted through the web segment.
var ActionNames = []string{
	"wait",
	"capture",
	"build_miner",
	"build_sentry",
	"build_shield",
	"build_overclocker",
	"upgrade",
	"upgrade_hub",
	"network_capture",
	"emp_blast",
}

const (
	scoringGenes = 10
	phaseGenes   = 8
)

// CategoryWeights holds one multiplier per category.
type CategoryWeights [NumCategories]float64

func (w CategoryWeights) Of(c Category) float64 {
	if c < 0 || int(c) >= NumCategories {
		return 1
	}
	return w[c]
}

// Scoring scales the node-scoring terms. Values are multipliers around 1
// except Resistance, which is the raw gene.
type Scoring struct {
	Distance         float64
	OwnedNeighbors   float64
	NeutralNeighbors float64
	CPUNode          float64
	DataCache        float64
	Hub              float64
	Resistance       float64
	Interior         float64
	Frontier         float64
	Upgrade          float64
}

// Thresholds drive phase detection and turn limits.
type Thresholds struct {
	EarlyCaptureRatio float64 // 0.15 - 0.35
	GeneratorTarget   int     // 2 - 6
	LateThreshold     float64 // 0.50 - 0.60
	TraceCeiling      float64 // 150 - 350
	ActionCap         int     // 1 - 4
	EMPEnemies        int     // 1 - 5
	DefenseTrace      float64 // 100 - 300
	ReserveDP         float64 // 0 - 40
}

type WebMode struct {
	Boost          CategoryWeights
	CaptureWeb     float64
	DefenseUrgency float64
}

// Params is the decoded, named view of a genome.
type Params struct {
	LayoutVersion int
	Actions       map[string]float64
	Scoring       Scoring
	Thresholds    Thresholds
	Category      CategoryWeights
	Early         CategoryWeights
	Mid           CategoryWeights
	Late          CategoryWeights
	Web           WebMode
}

// ActionWeight returns the base weight for an engine action name, or 1 for
// names without a gene.
func (p Params) ActionWeight(name string) float64 {
	if w, ok := p.Actions[name]; ok {
		return w
	}
	return 1
}

func multiplier(gene float64) float64 { return Scale(gene, 0.5, 1.5) }

func categoryWeights(genes []float64) CategoryWeights {
	var w CategoryWeights
	for i := range w {
		w[i] = multiplier(genes[i])
	}
	return w
}

// Decode maps g onto Params. g must have exactly l.Len() genes.
func (l Layout) Decode(g Genome) (Params, error) {
	if err := l.Validate(); err != nil {
		return Params{}, err
	}
	if len(g) != l.Len() {
		return Params{}, fmt.Errorf("%w: layout v%d wants %d genes, got %d", ErrLengthMismatch, l.Version, l.Len(), len(g))
	}
	seg := func(name string) []float64 {
		genes, _ := l.Genes(g, name)
		return genes
	}

	p := Params{LayoutVersion: l.Version, Actions: make(map[string]float64, len(ActionNames))}
	for i, name := range ActionNames {
		p.Actions[name] = Scale(seg(SegmentAction)[i], 0, 2)
	}

	s := seg(SegmentScoring)
	p.Scoring = Scoring{
		Distance:         multiplier(s[0]),
		OwnedNeighbors:   multiplier(s[1]),
		NeutralNeighbors: multiplier(s[2]),
		CPUNode:          multiplier(s[3]),
		DataCache:        multiplier(s[4]),
		Hub:              multiplier(s[5]),
		Resistance:       s[6],
		Interior:         multiplier(s[7]),
		Frontier:         multiplier(s[8]),
		Upgrade:          multiplier(s[9]),
	}

	t := seg(SegmentPhase)
	p.Thresholds = Thresholds{
		EarlyCaptureRatio: Scale(t[0], 0.15, 0.35),
		GeneratorTarget:   ScaleInt(t[1], 2, 6),
		LateThreshold:     Scale(t[2], 0.50, 0.60),
		TraceCeiling:      Scale(t[3], 150, 350),
		ActionCap:         ScaleInt(t[4], 1, 4),
		EMPEnemies:        ScaleInt(t[5], 1, 5),
		DefenseTrace:      Scale(t[6], 100, 300),
		ReserveDP:         Scale(t[7], 0, 40),
	}

	p.Category = categoryWeights(seg(SegmentCategory))
	p.Early = categoryWeights(seg(SegmentEarly))
	p.Mid = categoryWeights(seg(SegmentMid))
	p.Late = categoryWeights(seg(SegmentLate))

	w := seg(SegmentWeb)
	p.Web = WebMode{
		Boost:          categoryWeights(w[:NumCategories]),
		CaptureWeb:     Scale(w[NumCategories], 1, 3),
		DefenseUrgency: Scale(w[NumCategories+1], 1, 2),
	}
	return p, nil
}
