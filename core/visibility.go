package core

import (
	"math"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// NodePair is an ordered pair of node IDs used as a visibility key.
type NodePair struct {
	A, B model.NodeID
}

// VisibilityMatrix records, for every unordered pair of distinct nodes, the
// same boolean under both orderings.
type VisibilityMatrix map[NodePair]bool

// Visible reports whether a and b can link. Unknown pairs are not visible.
func (vm VisibilityMatrix) Visible(a, b model.NodeID) bool {
	return vm[NodePair{A: a, B: b}]
}

// VisibilityEngine decides which node pairs have a usable link:
//   - satellite–satellite links need to be within ISL range and unobstructed,
//   - satellite–ground links need the satellite above the elevation mask and
//     an unobstructed line of sight.
type VisibilityEngine struct {
	// ISLRangeKm is the maximum inter-satellite link distance.
	ISLRangeKm float64

	// ElevationThresholdDeg is the minimum elevation angle a satellite needs
	// above the ground station's local horizon.
	ElevationThresholdDeg float64

	elevationThresholdRad float64
}

// NewVisibilityEngine builds an engine with the given thresholds.
func NewVisibilityEngine(islRangeKm, elevationThresholdDeg float64) *VisibilityEngine {
	return &VisibilityEngine{
		ISLRangeKm:            islRangeKm,
		ElevationThresholdDeg: elevationThresholdDeg,
		elevationThresholdRad: elevationThresholdDeg * math.Pi / 180.0,
	}
}

// CheckISL reports whether two satellites can link.
func (ve *VisibilityEngine) CheckISL(posA, posB Vec3) bool {
	if posA.DistanceTo(posB) > ve.ISLRangeKm {
		return false
	}
	return !EarthOcclusion(posA, posB)
}

// CheckGroundLink reports whether a satellite is usable from the ground station.
func (ve *VisibilityEngine) CheckGroundLink(satPos, groundPos Vec3) bool {
	if ElevationRad(groundPos, satPos) < ve.elevationThresholdRad {
		return false
	}
	return !EarthOcclusion(groundPos, satPos)
}

// Check classifies one pair and applies the matching rule. Pairs that are
// neither satellite–satellite nor satellite–ground are never visible.
func (ve *VisibilityEngine) Check(a NodePosition, b NodePosition) bool {
	switch {
	case a.ID == b.ID:
		return false
	case a.ID.IsSatellite() && b.ID.IsSatellite():
		return ve.CheckISL(a.Position, b.Position)
	case a.ID.IsGround():
		return ve.CheckGroundLink(b.Position, a.Position)
	case b.ID.IsGround():
		return ve.CheckGroundLink(a.Position, b.Position)
	default:
		return false
	}
}

// ComputeVisibilityMatrix evaluates every unordered node pair of the
// snapshot once and stores the result under both orderings.
func (ve *VisibilityEngine) ComputeVisibilityMatrix(snapshot PositionSnapshot) VisibilityMatrix {
	entries := snapshot.Entries()
	vm := make(VisibilityMatrix, len(entries)*(len(entries)-1))
	forEachPair(entries, func(a, b NodePosition) {
		visible := ve.Check(a, b)
		vm[NodePair{A: a.ID, B: b.ID}] = visible
		vm[NodePair{A: b.ID, B: a.ID}] = visible
	})
	return vm
}

// forEachPair visits every unordered pair (i < j) in slice order.
func forEachPair(entries []NodePosition, fn func(a, b NodePosition)) {
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			fn(entries[i], entries[j])
		}
	}
}
