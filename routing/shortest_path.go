package routing

import (
	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// ShortestPathPolicy forwards along the minimum total link distance path in
// the current topology. It keeps no state.
type ShortestPathPolicy struct{}

// NewShortestPathPolicy returns the baseline policy.
func NewShortestPathPolicy() *ShortestPathPolicy { return &ShortestPathPolicy{} }

// NextHop implements core.RoutingPolicy.
func (*ShortestPathPolicy) NextHop(pkt model.Packet, topo *core.Topology, _ float64, _ []*core.Topology) (model.NodeID, bool) {
	if !routable(pkt, topo) {
		return "", false
	}
	return firstHop(topo, pkt.CurrentNode(), pkt.Dst, nil)
}

// routable holds packets that are already home or whose destination is not
// part of the topology.
func routable(pkt model.Packet, topo *core.Topology) bool {
	if pkt.CurrentNode() == pkt.Dst {
		return false
	}
	return topo.HasNode(pkt.Dst) && topo.HasNode(pkt.CurrentNode())
}
