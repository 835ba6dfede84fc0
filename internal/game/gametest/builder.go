// Package gametest builds engine states for tests.
package gametest

import (
	"testing"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
)

// Map accumulates nodes and undirected links.
type Map struct {
	nodes map[string]game.Node
	stats game.Stats
}

func NewMap() *Map {
	return &Map{
		nodes: make(map[string]game.Node),
		stats: game.Stats{DP: 100, CPU: 50, HubLevel: 1, Phase: game.PhasePlaying},
	}
}

// Hub adds the player's hub node.
func (m *Map) Hub() *Map {
	return m.Add("hub", game.NodeHub, game.OwnerPlayer, 0)
}

func (m *Map) Add(id string, typ game.NodeType, owner game.Owner, resistance float64) *Map {
	node := m.nodes[id]
	node.ID = id
	node.Type = typ
	node.Owner = owner
	node.Resistance = resistance
	m.nodes[id] = node
	return m
}

// Neutral adds a neutral data node with the given resistance.
func (m *Map) Neutral(id string, resistance float64) *Map {
	return m.Add(id, game.NodeData, game.OwnerNeutral, resistance)
}

// Owned adds a player-owned data node.
func (m *Map) Owned(id string) *Map {
	return m.Add(id, game.NodeData, game.OwnerPlayer, 0)
}

// Program installs a program on an existing node.
func (m *Map) Program(id string, program game.ProgramType, level int) *Map {
	node := m.nodes[id]
	node.Program = &game.Program{Type: program, Level: level}
	m.nodes[id] = node
	return m
}

// Link connects each consecutive pair of ids.
func (m *Map) Link(ids ...string) *Map {
	for i := 1; i < len(ids); i++ {
		m.connect(ids[i-1], ids[i])
	}
	return m
}

func (m *Map) connect(a, b string) {
	na, nb := m.nodes[a], m.nodes[b]
	if !contains(na.Neighbors, b) {
		na.Neighbors = append(na.Neighbors, b)
	}
	if !contains(nb.Neighbors, a) {
		nb.Neighbors = append(nb.Neighbors, a)
	}
	m.nodes[a], m.nodes[b] = na, nb
}

func (m *Map) Resources(dp, cpu float64) *Map {
	m.stats.DP = dp
	m.stats.CPU = cpu
	return m
}

func (m *Map) Trace(level float64) *Map {
	m.stats.TraceLevel = level
	return m
}

func (m *Map) Enemies(count int) *Map {
	m.stats.Enemies = count
	return m
}

// State returns a deep copy of the accumulated engine state.
func (m *Map) State() game.State {
	nodes := make(map[string]game.Node, len(m.nodes))
	for id, node := range m.nodes {
		node.Neighbors = append([]string(nil), node.Neighbors...)
		if node.Program != nil {
			p := *node.Program
			node.Program = &p
		}
		nodes[id] = node
	}
	stats := m.stats
	stats.TotalNodes = len(nodes)
	return game.State{Nodes: nodes, Stats: stats}
}

// Board builds the BoardView, failing the test on error.
func (m *Map) Board(t testing.TB) *game.BoardView {
	t.Helper()
	board, err := game.NewBoardView(m.State())
	if err != nil {
		t.Fatalf("new board view: %v", err)
	}
	return board
}

func contains(items []string, item string) bool {
	for _, v := range items {
		if v == item {
			return true
		}
	}
	return false
}
