package game

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// DefaultHubID is the engine's id for the player's home node.
const DefaultHubID = "hub"

// Engine phases reported in Stats.Phase.
const (
	PhasePlaying          = "PLAYING"
	PhaseCaptureWebDefend = "CAPTURE_WEB_DEFENSE"
	PhaseEndScreen        = "END_SCREEN"
)

type Stats struct {
	PlayerNodes int     `json:"playerNodes"`
	TotalNodes  int     `json:"totalNodes"`
	DP          float64 `json:"dp"`
	CPU         float64 `json:"cpu"`
	TraceLevel  float64 `json:"traceLevel"`
	HubLevel    int     `json:"hubLevel"`
	Enemies     int     `json:"enemies"`
	Win         bool    `json:"win"`
	Phase       string  `json:"phase"`
}

// State is the engine's wire representation of the game.
type State struct {
	Nodes   map[string]Node   `json:"nodes"`
	Stats   Stats             `json:"stats"`
	Enemies []json.RawMessage `json:"enemies,omitempty"`
	Win     bool              `json:"win"`
	Done    bool              `json:"done"`
}

// BoardView is an immutable snapshot of one engine state. Queries never
// mutate it; the hub distance table is computed once on first use.
type BoardView struct {
	nodes map[string]Node
	order []string
	stats Stats
	hubID string
	done  bool
	win   bool

	distOnce sync.Once
	hubDist  map[string]int
}

// NewBoardView copies state into a read-only view.
func NewBoardView(state State) (*BoardView, error) {
	if len(state.Nodes) == 0 {
		return nil, fmt.Errorf("state has no nodes")
	}
	nodes := make(map[string]Node, len(state.Nodes))
	order := make([]string, 0, len(state.Nodes))
	for key, node := range state.Nodes {
		if node.ID == "" {
			node.ID = key
		}
		node.Neighbors = append([]string(nil), node.Neighbors...)
		if node.Program != nil {
			program := *node.Program
			node.Program = &program
		}
		nodes[node.ID] = node
		order = append(order, node.ID)
	}
	sort.Strings(order)

	stats := state.Stats
	if stats.TotalNodes == 0 {
		stats.TotalNodes = len(nodes)
	}
	owned := 0
	for _, node := range nodes {
		if node.Owner == OwnerPlayer {
			owned++
		}
	}
	stats.PlayerNodes = owned

	return &BoardView{
		nodes: nodes,
		order: order,
		stats: stats,
		hubID: DefaultHubID,
		done:  state.Done,
		win:   state.Win || stats.Win,
	}, nil
}

func (b *BoardView) Stats() Stats { return b.stats }
func (b *BoardView) Done() bool   { return b.done }
func (b *BoardView) Win() bool    { return b.win }
func (b *BoardView) HubID() string {
	return b.hubID
}

// Node returns a copy of the node with the given id.
func (b *BoardView) Node(id string) (Node, bool) {
	node, ok := b.nodes[id]
	return node, ok
}

// NodeIDs returns all node ids in sorted order.
func (b *BoardView) NodeIDs() []string {
	return append([]string(nil), b.order...)
}

func (b *BoardView) TotalNodes() int { return len(b.nodes) }

// Neighbors is the NeighborFunc over the full map.
func (b *BoardView) Neighbors(id string) []string {
	return b.nodes[id].Neighbors
}

// OwnedNeighbors is the NeighborFunc restricted to player-owned nodes.
func (b *BoardView) OwnedNeighbors(id string) []string {
	out := make([]string, 0, len(b.nodes[id].Neighbors))
	for _, n := range b.nodes[id].Neighbors {
		if b.nodes[n].Owner == OwnerPlayer {
			out = append(out, n)
		}
	}
	return out
}

func (b *BoardView) filter(keep func(Node) bool) []string {
	out := make([]string, 0)
	for _, id := range b.order {
		if keep(b.nodes[id]) {
			out = append(out, id)
		}
	}
	return out
}

func (b *BoardView) PlayerNodes() []string {
	return b.filter(func(n Node) bool { return n.Owner == OwnerPlayer })
}

func (b *BoardView) NeutralNodes() []string {
	return b.filter(func(n Node) bool { return n.Owner == OwnerNeutral })
}

// CapturableNodes are neutral nodes adjacent to at least one owned node.
func (b *BoardView) CapturableNodes() []string {
	return b.filter(func(n Node) bool {
		return n.Owner == OwnerNeutral && b.countNeighbors(n, OwnerPlayer) > 0
	})
}

// BuildableNodes are owned nodes without a program.
func (b *BoardView) BuildableNodes() []string {
	return b.filter(func(n Node) bool { return n.Owner == OwnerPlayer && !n.HasProgram() })
}

// UpgradableNodes are owned nodes carrying a program.
func (b *BoardView) UpgradableNodes() []string {
	return b.filter(func(n Node) bool { return n.Owner == OwnerPlayer && n.HasProgram() })
}

func (b *BoardView) countNeighbors(n Node, owner Owner) int {
	count := 0
	for _, id := range n.Neighbors {
		if neighbor, ok := b.nodes[id]; ok && neighbor.Owner == owner {
			count++
		}
	}
	return count
}

// NeighborCount counts neighbours of id with the given owner.
func (b *BoardView) NeighborCount(id string, owner Owner) int {
	return b.countNeighbors(b.nodes[id], owner)
}

// CountPrograms counts owned nodes running any of the given programs.
func (b *BoardView) CountPrograms(types ...ProgramType) int {
	count := 0
	for _, node := range b.nodes {
		if node.Owner != OwnerPlayer || !node.HasProgram() {
			continue
		}
		for _, t := range types {
			if node.Program.Type == t {
				count++
				break
			}
		}
	}
	return count
}

// Generators counts owned resource-producing programs.
func (b *BoardView) Generators() int {
	return b.CountPrograms(ProgramMiner, ProgramOverclocker)
}

// CaptureRatio is owned nodes over total nodes in [0, 1].
func (b *BoardView) CaptureRatio() float64 {
	if len(b.nodes) == 0 {
		return 0
	}
	return float64(b.stats.PlayerNodes) / float64(len(b.nodes))
}

// DistanceFromHub is the BFS hop count over the full graph, or Unreachable.
func (b *BoardView) DistanceFromHub(id string) int {
	b.distOnce.Do(func() {
		if _, ok := b.nodes[b.hubID]; !ok {
			b.hubDist = map[string]int{}
			return
		}
		b.hubDist = Distances(b.hubID, b.Neighbors)
	})
	return Lookup(b.hubDist, id)
}
