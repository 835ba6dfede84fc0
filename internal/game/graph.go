package game

// Unreachable is the distance reported for nodes with no path from the start.
const Unreachable = 999

// NeighborFunc lists the nodes adjacent to id.
type NeighborFunc func(id string) []string

// Distances runs a breadth-first search from start and returns the hop count
// to every reachable node. Nodes missing from the result are unreachable.
func Distances(start string, neighbors NeighborFunc) map[string]int {
	dist := map[string]int{start: 0}
	queue := []string{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range neighbors(current) {
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[current] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

// Distance returns the shortest hop count from start to goal, or Unreachable.
func Distance(start, goal string, neighbors NeighborFunc) int {
	if start == goal {
		return 0
	}
	if d, ok := Distances(start, neighbors)[goal]; ok {
		return d
	}
	return Unreachable
}

// Lookup returns the distance for id from a Distances table.
func Lookup(table map[string]int, id string) int {
	if d, ok := table[id]; ok {
		return d
	}
	return Unreachable
}
