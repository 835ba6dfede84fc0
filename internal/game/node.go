package game

// Owner identifies who controls a node.
type Owner string

const (
	OwnerPlayer  Owner = "player"
	OwnerNeutral Owner = "neutral"
	OwnerEnemy   Owner = "enemy"
)

// NodeType is the engine's node classification.
type NodeType string

const (
	NodeData      NodeType = "data"
	NodeCPU       NodeType = "cpu_node"
	NodeDataCache NodeType = "data_cache"
	NodeHub       NodeType = "hub"
)

// Valuable reports whether capturing a node of this type pays off beyond
// territory: cpu nodes host overclockers, caches grant DP, the hub is home.
func (t NodeType) Valuable() bool {
	switch t {
	case NodeCPU, NodeDataCache, NodeHub:
		return true
	default:
		return false
	}
}

// ProgramType is a program that can be installed on an owned node.
type ProgramType string

const (
	ProgramMiner       ProgramType = "miner"
	ProgramSentry      ProgramType = "sentry"
	ProgramShield      ProgramType = "shield"
	ProgramOverclocker ProgramType = "overclocker"
	ProgramCaptureWeb  ProgramType = "capture_web"
)

// Generator reports whether the program produces resources.
func (p ProgramType) Generator() bool {
	return p == ProgramMiner || p == ProgramOverclocker
}

type Program struct {
	Type  ProgramType `json:"type"`
	Level int         `json:"level"`
}

type Node struct {
	ID              string   `json:"id"`
	Type            NodeType `json:"type"`
	Owner           Owner    `json:"owner"`
	Resistance      float64  `json:"resistance"`
	Program         *Program `json:"program,omitempty"`
	Neighbors       []string `json:"neighbors"`
	IsCapturing     bool     `json:"isCapturing"`
	CaptureProgress float64  `json:"captureProgress"`
}

func (n Node) HasProgram() bool {
	return n.Program != nil && n.Program.Type != ""
}

func (n Node) ProgramIs(t ProgramType) bool {
	return n.HasProgram() && n.Program.Type == t
}
