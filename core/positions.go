package core

import "github.com/signalsfoundry/constellation-routing-sim/model"

// NodePosition pairs a node with its ECEF position in kilometres.
type NodePosition struct {
	ID       model.NodeID
	Position Vec3
}

// PositionSnapshot maps every node to its ECEF position at one instant.
// Node order is fixed at construction and drives every iteration that
// depends on it, which keeps topology construction reproducible.
type PositionSnapshot struct {
	Time float64

	order []model.NodeID
	pos   map[model.NodeID]Vec3
}

// NewPositionSnapshot builds a snapshot from entries in the given order. A
// repeated ID keeps its first position in the ordering and its last value.
func NewPositionSnapshot(t float64, entries ...NodePosition) PositionSnapshot {
	s := PositionSnapshot{
		Time:  t,
		order: make([]model.NodeID, 0, len(entries)),
		pos:   make(map[model.NodeID]Vec3, len(entries)),
	}
	for _, e := range entries {
		if _, seen := s.pos[e.ID]; !seen {
			s.order = append(s.order, e.ID)
		}
		s.pos[e.ID] = e.Position
	}
	return s
}

// Len returns the number of nodes in the snapshot.
func (s PositionSnapshot) Len() int { return len(s.order) }

// NodeIDs returns the node IDs in snapshot order.
func (s PositionSnapshot) NodeIDs() []model.NodeID {
	out := make([]model.NodeID, len(s.order))
	copy(out, s.order)
	return out
}

// Position returns the position of id.
func (s PositionSnapshot) Position(id model.NodeID) (Vec3, bool) {
	p, ok := s.pos[id]
	return p, ok
}

// Entries returns all positions in snapshot order.
func (s PositionSnapshot) Entries() []NodePosition {
	out := make([]NodePosition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, NodePosition{ID: id, Position: s.pos[id]})
	}
	return out
}
