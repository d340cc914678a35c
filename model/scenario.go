package model

import "fmt"

// Defaults applied when a scenario or traffic field is left at zero.
const (
	DefaultISLRangeKm            = 5000.0
	DefaultElevationThresholdDeg = 5.0
	DefaultTTLSec                = 120.0
	DefaultDurationSec           = 600.0
	DefaultTimestepSec           = 1.0
	DefaultTrafficPeriodSec      = 5.0
)

// ScenarioConfig carries the link thresholds and run bounds of one scenario.
type ScenarioConfig struct {
	Name                  string  `json:"name" yaml:"name"`
	ISLRangeKm            float64 `json:"isl_range_km" yaml:"isl_range_km"`
	ElevationThresholdDeg float64 `json:"elevation_threshold_deg" yaml:"elevation_threshold_deg"`
	TTLSec                float64 `json:"ttl" yaml:"ttl"`
	DurationSec           float64 `json:"duration" yaml:"duration"`
	TimestepSec           float64 `json:"timestep,omitempty" yaml:"timestep,omitempty"`
}

// DefaultScenario returns a scenario named name with every parameter at
// its default. Loaders start from it and overwrite the fields a file sets.
func DefaultScenario(name string) ScenarioConfig {
	return ScenarioConfig{
		Name:                  name,
		ISLRangeKm:            DefaultISLRangeKm,
		ElevationThresholdDeg: DefaultElevationThresholdDeg,
		TTLSec:                DefaultTTLSec,
		DurationSec:           DefaultDurationSec,
		TimestepSec:           DefaultTimestepSec,
	}
}

// WithDefaultTimestep returns a copy with an unset timestep replaced by
// DefaultTimestepSec. Every other field is kept as given: a zero duration
// is a single tick at t=0, and a zero range or TTL fails Validate.
func (s ScenarioConfig) WithDefaultTimestep() ScenarioConfig {
	if s.TimestepSec == 0 {
		s.TimestepSec = DefaultTimestepSec
	}
	return s
}

// Validate reports malformed scenario parameters, wrapping ErrInvalidScenario.
func (s ScenarioConfig) Validate() error {
	switch {
	case !isFinite(s.ISLRangeKm) || s.ISLRangeKm <= 0:
		return fmt.Errorf("%w: isl_range_km must be positive, got %v", ErrInvalidScenario, s.ISLRangeKm)
	case !isFinite(s.ElevationThresholdDeg) || s.ElevationThresholdDeg < -90 || s.ElevationThresholdDeg > 90:
		return fmt.Errorf("%w: elevation_threshold_deg %v outside [-90, 90]", ErrInvalidScenario, s.ElevationThresholdDeg)
	case !isFinite(s.TTLSec) || s.TTLSec <= 0:
		return fmt.Errorf("%w: ttl must be positive, got %v", ErrInvalidScenario, s.TTLSec)
	case !isFinite(s.DurationSec) || s.DurationSec < 0:
		return fmt.Errorf("%w: duration must not be negative, got %v", ErrInvalidScenario, s.DurationSec)
	case !isFinite(s.TimestepSec) || s.TimestepSec <= 0:
		return fmt.Errorf("%w: timestep must be positive, got %v", ErrInvalidScenario, s.TimestepSec)
	}
	return nil
}

// TrafficConfig controls packet generation. Zero values select defaults
// derived from the scenario and constellation.
type TrafficConfig struct {
	PeriodSec float64 `json:"period" yaml:"period"`
	TTLSec    float64 `json:"ttl" yaml:"ttl"`
	Src       NodeID  `json:"src" yaml:"src"`
	Dst       NodeID  `json:"dst" yaml:"dst"`
}

// ResolveTraffic fills unset traffic fields: period 5 s, the scenario TTL,
// the ground station as source and firstSatellite as destination.
func ResolveTraffic(t TrafficConfig, scenario ScenarioConfig, firstSatellite NodeID) TrafficConfig {
	if t.PeriodSec == 0 {
		t.PeriodSec = DefaultTrafficPeriodSec
	}
	if t.TTLSec == 0 {
		t.TTLSec = scenario.TTLSec
	}
	if t.Src == "" {
		t.Src = GroundNodeID
	}
	if t.Dst == "" {
		t.Dst = firstSatellite
	}
	return t
}

// Validate reports malformed traffic parameters, wrapping ErrInvalidTraffic.
func (t TrafficConfig) Validate() error {
	switch {
	case !isFinite(t.PeriodSec) || t.PeriodSec <= 0:
		return fmt.Errorf("%w: period must be positive, got %v", ErrInvalidTraffic, t.PeriodSec)
	case !isFinite(t.TTLSec) || t.TTLSec <= 0:
		return fmt.Errorf("%w: ttl must be positive, got %v", ErrInvalidTraffic, t.TTLSec)
	case t.Src == "":
		return fmt.Errorf("%w: source node is required", ErrInvalidTraffic)
	case t.Dst == "":
		return fmt.Errorf("%w: destination node is required", ErrInvalidTraffic)
	}
	return nil
}
