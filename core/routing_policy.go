package core

import "github.com/signalsfoundry/constellation-routing-sim/model"

// RoutingPolicy chooses the next hop for a packet.
//
// The packet is a copy and the topologies are shared read-only values.
// history holds the most recent topologies, oldest first, and includes topo
// as its last element. Returning false means the packet holds this tick.
// Any state a policy keeps, including a random source, is private to it.
type RoutingPolicy interface {
	NextHop(pkt model.Packet, topo *Topology, tick float64, history []*Topology) (model.NodeID, bool)
}

// RoutingPolicyFunc adapts a function to RoutingPolicy.
type RoutingPolicyFunc func(pkt model.Packet, topo *Topology, tick float64, history []*Topology) (model.NodeID, bool)

// NextHop calls f.
func (f RoutingPolicyFunc) NextHop(pkt model.Packet, topo *Topology, tick float64, history []*Topology) (model.NodeID, bool) {
	return f(pkt, topo, tick, history)
}
