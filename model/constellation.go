package model

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the equatorial Earth radius used by the orbit and
// visibility geometry (kilometres).
const EarthRadiusKm = 6378.137

// GroundStation is the fixed ground terminal of the constellation.
type GroundStation struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// ConstellationSpec describes a Walker-like set of circular orbital planes
// plus one ground station. It is loaded once and never mutated.
type ConstellationSpec struct {
	Planes         int
	SatsPerPlane   int
	AltitudeKm     float64
	InclinationDeg float64
	// RAANSpacingDeg overrides the default 360/Planes spacing when set.
	RAANSpacingDeg        *float64
	MeanAnomalySpacingDeg float64

	GroundStation GroundStation
}

// SatelliteCount returns the number of satellites in the constellation.
func (c ConstellationSpec) SatelliteCount() int {
	return c.Planes * c.SatsPerPlane
}

// Validate reports malformed parameters. Every returned error wraps
// ErrInvalidConstellation.
func (c ConstellationSpec) Validate() error {
	switch {
	case c.Planes <= 0:
		return fmt.Errorf("%w: plane count must be positive, got %d", ErrInvalidConstellation, c.Planes)
	case c.SatsPerPlane <= 0:
		return fmt.Errorf("%w: satellites per plane must be positive, got %d", ErrInvalidConstellation, c.SatsPerPlane)
	case !isFinite(c.AltitudeKm) || c.AltitudeKm <= 0:
		return fmt.Errorf("%w: altitude must be positive, got %v km", ErrInvalidConstellation, c.AltitudeKm)
	case !isFinite(c.InclinationDeg):
		return fmt.Errorf("%w: inclination must be finite", ErrInvalidConstellation)
	case !isFinite(c.MeanAnomalySpacingDeg):
		return fmt.Errorf("%w: mean anomaly spacing must be finite", ErrInvalidConstellation)
	}
	if c.RAANSpacingDeg != nil && !isFinite(*c.RAANSpacingDeg) {
		return fmt.Errorf("%w: RAAN spacing must be finite", ErrInvalidConstellation)
	}

	gs := c.GroundStation
	switch {
	case !isFinite(gs.LatDeg) || gs.LatDeg < -90 || gs.LatDeg > 90:
		return fmt.Errorf("%w: ground station latitude %v outside [-90, 90]", ErrInvalidConstellation, gs.LatDeg)
	case !isFinite(gs.LonDeg) || gs.LonDeg < -180 || gs.LonDeg > 180:
		return fmt.Errorf("%w: ground station longitude %v outside [-180, 180]", ErrInvalidConstellation, gs.LonDeg)
	case !isFinite(gs.AltM) || gs.AltM < 0:
		return fmt.Errorf("%w: ground station altitude %v m below the surface", ErrInvalidConstellation, gs.AltM)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
