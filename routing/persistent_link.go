package routing

import (
	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// PersistentLinkPolicy prefers links that have stayed up across the whole
// supplied history. It runs a shortest-path search restricted to those links
// and falls back to the unrestricted search when they do not connect the
// packet to its destination.
type PersistentLinkPolicy struct {
	fallback *ShortestPathPolicy
}

// NewPersistentLinkPolicy returns a history-aware policy.
func NewPersistentLinkPolicy() *PersistentLinkPolicy {
	return &PersistentLinkPolicy{fallback: NewShortestPathPolicy()}
}

// NextHop implements core.RoutingPolicy.
func (p *PersistentLinkPolicy) NextHop(pkt model.Packet, topo *core.Topology, tick float64, history []*core.Topology) (model.NodeID, bool) {
	if !routable(pkt, topo) {
		return "", false
	}
	if hop, ok := firstHop(topo, pkt.CurrentNode(), pkt.Dst, persistentIn(history)); ok {
		return hop, true
	}
	return p.fallback.NextHop(pkt, topo, tick, history)
}

// persistentIn admits an edge only if every snapshot in history has it.
func persistentIn(history []*core.Topology) linkFilter {
	return func(a, b model.NodeID) bool {
		for _, h := range history {
			if !h.HasEdge(a, b) {
				return false
			}
		}
		return true
	}
}
