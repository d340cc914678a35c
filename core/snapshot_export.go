package core

import "github.com/signalsfoundry/constellation-routing-sim/model"

// maxTraceHops bounds TraceRoute so a looping policy terminates.
const maxTraceHops = 64

// NodeExport is one node of an exported snapshot.
type NodeExport struct {
	ID     model.NodeID `json:"id"`
	Kind   string       `json:"kind"`
	X      float64      `json:"x_km"`
	Y      float64      `json:"y_km"`
	Z      float64      `json:"z_km"`
	LatDeg float64      `json:"lat_deg"`
	LonDeg float64      `json:"lon_deg"`
	AltKm  float64      `json:"alt_km"`
}

// EdgeExport is one link of an exported snapshot.
type EdgeExport struct {
	A          model.NodeID `json:"a"`
	B          model.NodeID `json:"b"`
	DistanceKm float64      `json:"distance_km"`
}

// SnapshotExport is a plotting-friendly view of the network at one instant.
type SnapshotExport struct {
	Time  float64        `json:"time_s"`
	Nodes []NodeExport   `json:"nodes"`
	Edges []EdgeExport   `json:"edges"`
	Path  []model.NodeID `json:"path,omitempty"`
}

// ExportSnapshot converts positions and the matching topology into a
// SnapshotExport.
func ExportSnapshot(positions PositionSnapshot, topo *Topology) SnapshotExport {
	out := SnapshotExport{
		Time:  positions.Time,
		Nodes: make([]NodeExport, 0, positions.Len()),
		Edges: make([]EdgeExport, 0, topo.EdgeCount()),
	}
	for _, e := range positions.Entries() {
		lat, lon, alt := SubSatellitePoint(e.Position)
		kind := "satellite"
		if e.ID.IsGround() {
			kind = "ground"
		}
		out.Nodes = append(out.Nodes, NodeExport{
			ID: e.ID, Kind: kind,
			X: e.Position.X, Y: e.Position.Y, Z: e.Position.Z,
			LatDeg: lat, LonDeg: lon, AltKm: alt,
		})
	}
	for _, e := range topo.Edges() {
		out.Edges = append(out.Edges, EdgeExport{A: e.A, B: e.B, DistanceKm: e.WeightKm})
	}
	return out
}

// TraceRoute follows policy hop by hop over a frozen topology from src and
// returns the visited nodes, starting with src. It stops at dst, when the
// policy holds or picks a missing link, or after a bounded number of hops.
func TraceRoute(policy RoutingPolicy, topo *Topology, src, dst model.NodeID, t float64) []model.NodeID {
	path := []model.NodeID{src}
	pkt := model.NewPacket(0, src, dst, t, 1)
	history := []*Topology{topo}
	for i := 0; i < maxTraceHops && pkt.CurrentNode() != dst; i++ {
		hop, ok := policy.NextHop(*pkt, topo, t, history)
		if !ok || !topo.HasEdge(pkt.CurrentNode(), hop) {
			break
		}
		pkt.MoveTo(hop)
		path = append(path, hop)
	}
	return path
}

// SnapshotAt rebuilds the network at time t and exports it. When policy is
// non-nil the route it would take for the engine's traffic at t is
// included. Pass a policy instance other than the one driving the run, since
// tracing advances any internal state it keeps.
func (e *SimulationEngine) SnapshotAt(t float64, policy RoutingPolicy) SnapshotExport {
	positions := e.orbit.Positions(t)
	topo := e.builder.Build(positions)
	out := ExportSnapshot(positions, topo)
	if policy != nil {
		tr := e.traffic.Config()
		out.Path = TraceRoute(policy, topo, tr.Src, tr.Dst, t)
	}
	return out
}
