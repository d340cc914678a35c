package core

import (
	"fmt"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// Edge is an undirected weighted link between two nodes.
type Edge struct {
	A, B     model.NodeID
	WeightKm float64
}

// Topology is an undirected weighted graph over the nodes of one tick.
// Node and neighbour iteration follow insertion order, so every consumer
// sees the same sequence on every run.
type Topology struct {
	Time float64

	nodes []model.NodeID
	index map[model.NodeID]int
	adj   [][]neighbour
	edges []Edge
}

type neighbour struct {
	node   int
	weight float64
}

// NewTopology returns an empty graph stamped with simulation time t.
func NewTopology(t float64) *Topology {
	return &Topology{
		Time:  t,
		index: make(map[model.NodeID]int),
	}
}

// AddNode inserts id. Adding an existing node is a no-op.
func (g *Topology) AddNode(id model.NodeID) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.adj = append(g.adj, nil)
}

// AddEdge links a and b with the given weight. Both nodes must exist,
// self loops and duplicate edges are rejected.
func (g *Topology) AddEdge(a, b model.NodeID, weightKm float64) error {
	if a == b {
		return fmt.Errorf("self loop on %s", a)
	}
	ia, ok := g.index[a]
	if !ok {
		return fmt.Errorf("unknown node %s", a)
	}
	ib, ok := g.index[b]
	if !ok {
		return fmt.Errorf("unknown node %s", b)
	}
	if g.hasEdgeIdx(ia, ib) {
		return fmt.Errorf("duplicate edge %s-%s", a, b)
	}
	g.adj[ia] = append(g.adj[ia], neighbour{node: ib, weight: weightKm})
	g.adj[ib] = append(g.adj[ib], neighbour{node: ia, weight: weightKm})
	g.edges = append(g.edges, Edge{A: a, B: b, WeightKm: weightKm})
	return nil
}

func (g *Topology) hasEdgeIdx(ia, ib int) bool {
	for _, n := range g.adj[ia] {
		if n.node == ib {
			return true
		}
	}
	return false
}

// HasNode reports whether id is part of the graph.
func (g *Topology) HasNode(id model.NodeID) bool {
	if g == nil {
		return false
	}
	_, ok := g.index[id]
	return ok
}

// HasEdge reports whether a and b are directly linked.
func (g *Topology) HasEdge(a, b model.NodeID) bool {
	_, ok := g.Weight(a, b)
	return ok
}

// Weight returns the link weight between a and b.
func (g *Topology) Weight(a, b model.NodeID) (float64, bool) {
	if g == nil {
		return 0, false
	}
	ia, ok := g.index[a]
	if !ok {
		return 0, false
	}
	ib, ok := g.index[b]
	if !ok {
		return 0, false
	}
	for _, n := range g.adj[ia] {
		if n.node == ib {
			return n.weight, true
		}
	}
	return 0, false
}

// Neighbors returns the nodes adjacent to id in edge insertion order.
func (g *Topology) Neighbors(id model.NodeID) []model.NodeID {
	if g == nil {
		return nil
	}
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]model.NodeID, 0, len(g.adj[i]))
	for _, n := range g.adj[i] {
		out = append(out, g.nodes[n.node])
	}
	return out
}

// Nodes returns a copy of the node list in insertion order.
func (g *Topology) Nodes() []model.NodeID {
	if g == nil {
		return nil
	}
	out := make([]model.NodeID, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edge list in insertion order.
func (g *Topology) Edges() []Edge {
	if g == nil {
		return nil
	}
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of nodes.
func (g *Topology) NodeCount() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// EdgeCount returns the number of undirected edges.
func (g *Topology) EdgeCount() int {
	if g == nil {
		return 0
	}
	return len(g.edges)
}

// NodeIndex returns the insertion position of id, or -1.
func (g *Topology) NodeIndex(id model.NodeID) int {
	if g == nil {
		return -1
	}
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// TopologyBuilder turns a position snapshot into a Topology using a
// VisibilityEngine.
type TopologyBuilder struct {
	visibility *VisibilityEngine
}

// NewTopologyBuilder constructs a builder around ve.
func NewTopologyBuilder(ve *VisibilityEngine) *TopologyBuilder {
	return &TopologyBuilder{visibility: ve}
}

// Build adds one node per snapshot entry and one edge, weighted by
// Euclidean distance, per visible pair.
func (b *TopologyBuilder) Build(snapshot PositionSnapshot) *Topology {
	vm := b.visibility.ComputeVisibilityMatrix(snapshot)
	return BuildTopology(snapshot, vm)
}

// BuildTopology assembles a graph from a snapshot and a precomputed
// visibility matrix.
func BuildTopology(snapshot PositionSnapshot, vm VisibilityMatrix) *Topology {
	g := NewTopology(snapshot.Time)
	entries := snapshot.Entries()
	for _, e := range entries {
		g.AddNode(e.ID)
	}
	forEachPair(entries, func(a, b NodePosition) {
		if !vm.Visible(a.ID, b.ID) {
			return
		}
		// Snapshot IDs are unique and a != b, so AddEdge cannot fail here.
		_ = g.AddEdge(a.ID, b.ID, a.Position.DistanceTo(b.Position))
	})
	return g
}
