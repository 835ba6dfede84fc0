package game

// Cost is a DP/CPU price.
type Cost struct {
	DP  float64
	CPU float64
}

// Budget tracks resources still available while a turn is being planned.
type Budget struct {
	DP  float64
	CPU float64
}

func (b Budget) Affords(c Cost) bool {
	return b.DP >= c.DP && b.CPU >= c.CPU
}

func (b *Budget) Spend(c Cost) {
	b.DP -= c.DP
	b.CPU -= c.CPU
}

// CostTable estimates what the engine will charge for an action. The engine
// stays authoritative; the table only keeps a multi-action turn from
// planning more than the pools can pay for.
type CostTable struct {
	Capture        float64
	NetworkCapture float64
	EMPBlastCPU    float64
	HubUpgradeCPU  float64
	UpgradeCPU     float64
	Build          map[ProgramType]float64
	UpgradeBase    map[ProgramType]float64
}

// DefaultCosts mirrors the reference headless engine.
func DefaultCosts() CostTable {
	return CostTable{
		Capture:        10,
		NetworkCapture: 20,
		EMPBlastCPU:    50,
		HubUpgradeCPU:  30,
		UpgradeCPU:     5,
		Build: map[ProgramType]float64{
			ProgramMiner:       20,
			ProgramSentry:      40,
			ProgramShield:      30,
			ProgramOverclocker: 50,
		},
		UpgradeBase: map[ProgramType]float64{
			ProgramMiner:  20,
			ProgramShield: 30,
		},
	}
}

const defaultUpgradeBase = 40

// Estimate prices an action against the board it will be applied to.
func (t CostTable) Estimate(a Action, board *BoardView) Cost {
	switch a.Kind {
	case KindCapture:
		return Cost{DP: t.Capture}
	case KindBuild:
		return Cost{DP: t.Build[a.Program]}
	case KindUpgrade:
		level := 1
		base := float64(defaultUpgradeBase)
		if node, ok := board.Node(a.Target); ok && node.HasProgram() {
			if node.Program.Level > 0 {
				level = node.Program.Level
			}
			if v, ok := t.UpgradeBase[node.Program.Type]; ok {
				base = v
			}
		}
		return Cost{DP: base * float64(level), CPU: t.UpgradeCPU * float64(level)}
	case KindUpgradeHub:
		level := board.Stats().HubLevel
		if level < 1 {
			level = 1
		}
		return Cost{CPU: t.HubUpgradeCPU * float64(level)}
	case KindEMPBlast:
		return Cost{CPU: t.EMPBlastCPU}
	case KindNetworkCapture:
		return Cost{DP: t.NetworkCapture}
	default:
		return Cost{}
	}
}
