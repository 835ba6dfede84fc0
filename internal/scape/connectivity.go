package scape

import (
	"math"

	"github.com/NikolayNebudi/neuro-miner/internal/game"
)

// Connectivity describes how well the owned territory hangs together.
// Distances are measured from the hub over owned nodes only.
type Connectivity struct {
	Owned             int     `json:"owned"`
	Reachable         int     `json:"reachable"`
	ReachableFraction float64 `json:"reachable_fraction"`
	MeanDistance      float64 `json:"mean_distance"`
	DistanceStdDev    float64 `json:"distance_stddev"`
	Islands           int     `json:"islands"`
}

func AnalyzeConnectivity(board *game.BoardView) Connectivity {
	owned := board.PlayerNodes()
	c := Connectivity{Owned: len(owned)}
	if len(owned) == 0 {
		return c
	}

	var dist map[string]int
	if hub, ok := board.Node(board.HubID()); ok && hub.Owner == game.OwnerPlayer {
		dist = game.Distances(hub.ID, board.OwnedNeighbors)
	}

	var sum, sumSq float64
	for _, id := range owned {
		d := game.Lookup(dist, id)
		if d >= game.Unreachable {
			c.Islands++
			continue
		}
		c.Reachable++
		sum += float64(d)
		sumSq += float64(d) * float64(d)
	}
	c.ReachableFraction = float64(c.Reachable) / float64(c.Owned)
	if c.Reachable > 0 {
		n := float64(c.Reachable)
		c.MeanDistance = sum / n
		c.DistanceStdDev = math.Sqrt(math.Max(0, sumSq/n-c.MeanDistance*c.MeanDistance))
	}
	return c
}
