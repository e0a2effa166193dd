package scenario

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Network wraps the scenario's node/edge graph and answers routing queries.
// Edge weights are effective kilometres (distance scaled by terrain factor).
// All queries are deterministic; shortest-path results are cached per source.
type Network struct {
	scenario *Scenario
	graph    *simple.WeightedUndirectedGraph
	index    map[string]int64 // node ID -> graph ID
	shortest map[string]path.Shortest
}

// NewNetwork builds the routing graph for a validated scenario.
func NewNetwork(sc *Scenario) *Network {
	n := &Network{
		scenario: sc,
		graph:    simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		index:    make(map[string]int64, len(sc.Nodes)),
		shortest: make(map[string]path.Shortest),
	}
	for i, node := range sc.Nodes {
		id := int64(i)
		n.index[node.ID] = id
		n.graph.AddNode(simple.Node(id))
	}
	for _, e := range sc.Edges {
		n.graph.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(n.index[e.From]),
			T: simple.Node(n.index[e.To]),
			W: e.EffectiveKm(),
		})
	}
	return n
}

// DistanceKm returns the shortest-path effective distance between two nodes.
// The second return is false when no path exists.
func (n *Network) DistanceKm(from, to string) (float64, bool) {
	if from == to {
		return 0, true
	}
	fromID, okF := n.index[from]
	toID, okT := n.index[to]
	if !okF || !okT {
		return 0, false
	}
	sp, ok := n.shortest[from]
	if !ok {
		sp = path.DijkstraFrom(n.graph.Node(fromID), n.graph)
		n.shortest[from] = sp
	}
	w := sp.WeightTo(toID)
	if math.IsInf(w, 1) {
		return 0, false
	}
	return w, true
}

// TravelTicks returns the traversal time in ticks between two nodes at the
// given speed. The second return is false when no path exists.
func (n *Network) TravelTicks(from, to string, speedKmh float64) (int64, bool) {
	km, ok := n.DistanceKm(from, to)
	if !ok {
		return 0, false
	}
	if km == 0 {
		return 0, true
	}
	return int64(math.Round(km / speedKmh * 3600)), true
}

// Nearest returns the node satisfying pred that is closest to from by
// traversal distance. Ties break on the lexically lowest node ID; unreachable
// nodes are skipped. Returns "" when no candidate is reachable.
func (n *Network) Nearest(from string, pred func(*Node) bool) string {
	best := ""
	bestKm := math.Inf(1)
	for _, id := range n.scenario.SortedNodeIDs() {
		node := n.scenario.NodeByID(id)
		if !pred(node) {
			continue
		}
		km, ok := n.DistanceKm(from, id)
		if !ok {
			continue
		}
		if km < bestKm {
			bestKm = km
			best = id
		}
	}
	return best
}

// NearestMedical returns the closest node with treatment bays.
func (n *Network) NearestMedical(from string) string {
	return n.Nearest(from, func(node *Node) bool {
		return node.Type == NodeMedical && node.Capacity.TreatmentBays > 0
	})
}

// NearestSupply returns the closest supply point.
func (n *Network) NearestSupply(from string) string {
	return n.Nearest(from, func(node *Node) bool {
		return node.Type == NodeSupply
	})
}

// NearestWorkshop returns the closest node with repair bays.
func (n *Network) NearestWorkshop(from string) string {
	return n.Nearest(from, func(node *Node) bool {
		return node.Capacity.RepairBays > 0
	})
}
