package core

import (
	"fmt"
	"math"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

const (
	// EarthMuKm3S2 is the Earth's gravitational parameter (km^3/s^2).
	EarthMuKm3S2 = 398600.4418
	// EarthRotationRateRadS is the Earth's rotation rate (rad/s).
	EarthRotationRateRadS = 7.292115e-5

	minPlaneInclinationDeg = 30.0
	maxPlaneInclinationDeg = 80.0
)

// SatelliteOrbit holds the derived circular-orbit elements of one satellite.
type SatelliteOrbit struct {
	ID    model.NodeID
	Plane int
	Index int

	SemiMajorAxisKm float64
	InclinationRad  float64
	RAANRad         float64
	MeanAnomaly0Rad float64
	MeanMotionRadS  float64
}

// PositionECI returns the inertial position t seconds after epoch. For a
// circular orbit the mean, eccentric and true anomalies coincide.
func (o SatelliteOrbit) PositionECI(t float64) Vec3 {
	nu := o.MeanAnomaly0Rad + o.MeanMotionRadS*t
	r := o.SemiMajorAxisKm

	// In-plane position.
	x := r * math.Cos(nu)
	y := r * math.Sin(nu)

	// Tilt the plane by the inclination (about x).
	sinI, cosI := math.Sincos(o.InclinationRad)
	yi := y * cosI
	zi := y * sinI

	// Orient the node line by the RAAN (about z).
	sinO, cosO := math.Sincos(o.RAANRad)
	return Vec3{
		X: x*cosO - yi*sinO,
		Y: x*sinO + yi*cosO,
		Z: zi,
	}
}

// OrbitModel computes node positions as a pure function of time.
type OrbitModel struct {
	spec         model.ConstellationSpec
	inclinations []float64 // per plane, degrees
	orbits       []SatelliteOrbit
	nodeIDs      []model.NodeID

	groundLatRad   float64
	groundLonRad   float64
	groundRadiusKm float64
}

// NewOrbitModel derives the per-satellite orbits from spec.
func NewOrbitModel(spec model.ConstellationSpec) (*OrbitModel, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("NewOrbitModel: %w", err)
	}

	raanSpacing := 360.0 / float64(spec.Planes)
	if spec.RAANSpacingDeg != nil {
		raanSpacing = *spec.RAANSpacingDeg
	}

	m := &OrbitModel{
		spec:           spec,
		inclinations:   planeInclinations(spec),
		orbits:         make([]SatelliteOrbit, 0, spec.SatelliteCount()),
		nodeIDs:        make([]model.NodeID, 0, spec.SatelliteCount()+1),
		groundLatRad:   degToRad(spec.GroundStation.LatDeg),
		groundLonRad:   degToRad(spec.GroundStation.LonDeg),
		groundRadiusKm: model.EarthRadiusKm + spec.GroundStation.AltM/1000.0,
	}

	a := model.EarthRadiusKm + spec.AltitudeKm
	n := math.Sqrt(EarthMuKm3S2 / (a * a * a))

	m.nodeIDs = append(m.nodeIDs, model.GroundNodeID)
	for plane := 0; plane < spec.Planes; plane++ {
		for idx := 0; idx < spec.SatsPerPlane; idx++ {
			id := model.SatelliteNodeID(plane, idx)
			m.orbits = append(m.orbits, SatelliteOrbit{
				ID:              id,
				Plane:           plane,
				Index:           idx,
				SemiMajorAxisKm: a,
				InclinationRad:  degToRad(m.inclinations[plane]),
				RAANRad:         degToRad(float64(plane) * raanSpacing),
				MeanAnomaly0Rad: degToRad(float64(idx) * spec.MeanAnomalySpacingDeg),
				MeanMotionRadS:  n,
			})
			m.nodeIDs = append(m.nodeIDs, id)
		}
	}
	return m, nil
}

// planeInclinations spreads multi-plane constellations evenly between 30°
// and 80° so the planes are distinct; a single plane keeps its configured
// inclination.
func planeInclinations(spec model.ConstellationSpec) []float64 {
	if spec.Planes == 1 {
		return []float64{spec.InclinationDeg}
	}
	out := make([]float64, spec.Planes)
	span := maxPlaneInclinationDeg - minPlaneInclinationDeg
	for p := range out {
		out[p] = minPlaneInclinationDeg + span*float64(p)/float64(spec.Planes-1)
	}
	return out
}

// Positions returns the ECEF position of the ground station and every
// satellite at t seconds. Ground comes first, then satellites in
// (plane, index) order.
func (m *OrbitModel) Positions(t float64) PositionSnapshot {
	theta := EarthRotationRateRadS * t

	entries := make([]NodePosition, 0, len(m.nodeIDs))
	entries = append(entries, NodePosition{ID: model.GroundNodeID, Position: m.groundPosition(theta)})
	for _, o := range m.orbits {
		entries = append(entries, NodePosition{ID: o.ID, Position: rotateByEarth(o.PositionECI(t), theta)})
	}
	return NewPositionSnapshot(t, entries...)
}

func (m *OrbitModel) groundPosition(theta float64) Vec3 {
	lon := m.groundLonRad + theta
	cosLat := math.Cos(m.groundLatRad)
	return Vec3{
		X: m.groundRadiusKm * cosLat * math.Cos(lon),
		Y: m.groundRadiusKm * cosLat * math.Sin(lon),
		Z: m.groundRadiusKm * math.Sin(m.groundLatRad),
	}
}

// rotateByEarth turns an inertial position through the Earth rotation angle
// theta about z, the same positive sense that advances the ground station's
// longitude. go-satellite's ECIToECEF rotates by -gmst, hence the negation.
func rotateByEarth(eci Vec3, theta float64) Vec3 {
	ecef := satellite.ECIToECEF(satellite.Vector3{X: eci.X, Y: eci.Y, Z: eci.Z}, -theta)
	return Vec3{X: ecef.X, Y: ecef.Y, Z: ecef.Z}
}

// NodeIDs returns every node: ground first, then satellites.
func (m *OrbitModel) NodeIDs() []model.NodeID {
	out := make([]model.NodeID, len(m.nodeIDs))
	copy(out, m.nodeIDs)
	return out
}

// Satellites returns the derived orbit of every satellite.
func (m *OrbitModel) Satellites() []SatelliteOrbit {
	out := make([]SatelliteOrbit, len(m.orbits))
	copy(out, m.orbits)
	return out
}

// FirstSatellite returns the ID of satellite (0, 0).
func (m *OrbitModel) FirstSatellite() model.NodeID {
	return m.orbits[0].ID
}

// PlaneInclinationsDeg returns the inclination used for each plane.
func (m *OrbitModel) PlaneInclinationsDeg() []float64 {
	out := make([]float64, len(m.inclinations))
	copy(out, m.inclinations)
	return out
}

// Spec returns the constellation the model was built from.
func (m *OrbitModel) Spec() model.ConstellationSpec { return m.spec }

// SubSatellitePoint returns the spherical latitude/longitude (degrees) and
// the height above the reference sphere (km) of an ECEF position.
func SubSatellitePoint(p Vec3) (latDeg, lonDeg, altKm float64) {
	r := p.Norm()
	if r == 0 {
		return 0, 0, -model.EarthRadiusKm
	}
	latDeg = radToDeg(math.Asin(p.Z / r))
	lonDeg = radToDeg(math.Atan2(p.Y, p.X))
	return latDeg, lonDeg, r - model.EarthRadiusKm
}

func degToRad(d float64) float64 { return d * math.Pi / 180.0 }
func radToDeg(r float64) float64 { return r * 180.0 / math.Pi }
