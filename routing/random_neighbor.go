package routing

import (
	"math/rand"

	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// DefaultRandomSeed seeds RandomNeighborPolicy when no seed is given.
const DefaultRandomSeed int64 = 42

// RandomNeighborPolicy forwards to a uniformly chosen neighbour. It is a
// lower bound to compare smarter policies against.
type RandomNeighborPolicy struct {
	rng *rand.Rand
}

// NewRandomNeighborPolicy returns a policy drawing from its own generator
// seeded with seed.
func NewRandomNeighborPolicy(seed int64) *RandomNeighborPolicy {
	return &RandomNeighborPolicy{rng: rand.New(rand.NewSource(seed))}
}

// NextHop implements core.RoutingPolicy.
func (p *RandomNeighborPolicy) NextHop(pkt model.Packet, topo *core.Topology, _ float64, _ []*core.Topology) (model.NodeID, bool) {
	if !routable(pkt, topo) {
		return "", false
	}
	neighbors := topo.Neighbors(pkt.CurrentNode())
	if len(neighbors) == 0 {
		return "", false
	}
	return neighbors[p.rng.Intn(len(neighbors))], true
}
