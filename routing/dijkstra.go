package routing

import (
	"container/heap"
	"math"

	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// linkFilter reports whether the edge a-b may be used.
type linkFilter func(a, b model.NodeID) bool

// firstHop runs Dijkstra from src over topo and returns the node after src
// on a minimum-weight path to dst. Equal-cost alternatives resolve to the
// predecessor settled first; the heap settles equal distances in topology
// node order.
func firstHop(topo *core.Topology, src, dst model.NodeID, allow linkFilter) (model.NodeID, bool) {
	s := topo.NodeIndex(src)
	d := topo.NodeIndex(dst)
	if s < 0 || d < 0 || s == d {
		return "", false
	}

	nodes := topo.Nodes()
	dist := make([]float64, len(nodes))
	prev := make([]int, len(nodes))
	settled := make([]bool, len(nodes))
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[s] = 0

	pq := &frontier{{node: s, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(frontierItem)
		if settled[cur.node] {
			continue
		}
		settled[cur.node] = true
		if cur.node == d {
			break
		}
		from := nodes[cur.node]
		for _, nb := range topo.Neighbors(from) {
			if allow != nil && !allow(from, nb) {
				continue
			}
			j := topo.NodeIndex(nb)
			if settled[j] {
				continue
			}
			w, _ := topo.Weight(from, nb)
			if alt := cur.dist + w; alt < dist[j] {
				dist[j] = alt
				prev[j] = cur.node
				heap.Push(pq, frontierItem{node: j, dist: alt})
			}
		}
	}

	if !settled[d] {
		return "", false
	}
	hop := d
	for prev[hop] != s {
		if prev[hop] < 0 {
			return "", false
		}
		hop = prev[hop]
	}
	return nodes[hop], true
}

type frontierItem struct {
	node int
	dist float64
}

// frontier is a min-heap on distance, then node index.
type frontier []frontierItem

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].node < f[j].node
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(frontierItem)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}
