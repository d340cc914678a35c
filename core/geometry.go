package core

import (
	"math"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// occlusionEpsilonKm absorbs floating-point noise at the Earth's surface and
// at segment endpoints.
const occlusionEpsilonKm = 1e-6

// Vec3 is an ECEF-style vector in kilometres.
type Vec3 struct {
	X, Y, Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// EarthOcclusion reports whether the Earth blocks the straight segment
// between p1 and p2.
//
// With both endpoints on or above the surface, only the point of the segment
// (not the infinite line) closest to the Earth's centre matters: if that
// point is an endpoint the link is clear, otherwise it is blocked when the
// point lies strictly inside the sphere. An endpoint below the surface is
// always blocked. All positions are ECEF in kilometres.
func EarthOcclusion(p1, p2 Vec3) bool {
	line := p2.Sub(p1)
	length := line.Norm()
	if length < occlusionEpsilonKm {
		return false
	}

	// A sea-level station can land a rounding error below the sphere.
	floor := model.EarthRadiusKm - occlusionEpsilonKm
	if p1.Norm() < floor || p2.Norm() < floor {
		return true
	}

	unit := line.Scale(1 / length)
	proj := p1.Scale(-1).Dot(unit)
	if proj < 0 {
		proj = 0
	} else if proj > length {
		proj = length
	}
	if math.Abs(proj) < occlusionEpsilonKm || math.Abs(proj-length) < occlusionEpsilonKm {
		return false
	}

	closest := p1.Add(unit.Scale(proj))
	return closest.Norm() < model.EarthRadiusKm-occlusionEpsilonKm
}

// ElevationRad returns the elevation of target above the local horizontal
// plane of observer, in radians. The local vertical is the observer's
// normalised position vector.
func ElevationRad(observer, target Vec3) float64 {
	r := observer.Norm()
	if r == 0 {
		return math.Pi / 2
	}
	up := observer.Scale(1 / r)

	v := target.Sub(observer)
	vertical := v.Dot(up)
	horizontal := v.Sub(up.Scale(vertical)).Norm()
	return math.Atan2(vertical, horizontal)
}

// ElevationDegrees is ElevationRad in degrees. 0° = horizon, 90° = overhead.
func ElevationDegrees(observer, target Vec3) float64 {
	return ElevationRad(observer, target) * 180.0 / math.Pi
}
