package model

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeID is the stable identity of a node in the routing graph.
type NodeID string

// GroundNodeID is the singleton ground station node.
const GroundNodeID NodeID = "ground"

const satellitePrefix = "sat_"

// SatelliteNodeID returns the identity of the satellite at (plane, index).
func SatelliteNodeID(plane, index int) NodeID {
	return NodeID(fmt.Sprintf("%s%d_%d", satellitePrefix, plane, index))
}

// IsSatellite reports whether id names a satellite node.
func (id NodeID) IsSatellite() bool {
	return strings.HasPrefix(string(id), satellitePrefix)
}

// IsGround reports whether id is the ground station.
func (id NodeID) IsGround() bool {
	return id == GroundNodeID
}

func (id NodeID) String() string { return string(id) }

// ParseSatelliteNodeID extracts plane and index from a satellite node ID.
func ParseSatelliteNodeID(id NodeID) (plane, index int, err error) {
	if !id.IsSatellite() {
		return 0, 0, fmt.Errorf("node %q is not a satellite", id)
	}
	parts := strings.Split(strings.TrimPrefix(string(id), satellitePrefix), "_")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("node %q: want sat_{plane}_{index}", id)
	}
	plane, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("node %q: bad plane: %w", id, err)
	}
	index, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("node %q: bad index: %w", id, err)
	}
	return plane, index, nil
}
