// Package config loads constellation and scenario definitions from YAML
// files and provides the built-in scenario presets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// DefaultConstellationPath is where the CLIs look for a constellation file.
const DefaultConstellationPath = "configs/constellation.yaml"

// ConstellationFile is the on-disk shape of a constellation definition.
type ConstellationFile struct {
	Constellation struct {
		NumberOfPlanes        int      `yaml:"number_of_planes"`
		SatsPerPlane          int      `yaml:"sats_per_plane"`
		AltitudeKm            float64  `yaml:"altitude_km"`
		InclinationDeg        float64  `yaml:"inclination_deg"`
		RAANSpacingDeg        *float64 `yaml:"raan_spacing_deg,omitempty"`
		MeanAnomalySpacingDeg *float64 `yaml:"mean_anomaly_spacing_deg,omitempty"`
	} `yaml:"constellation"`
	GroundStation struct {
		LatDeg float64 `yaml:"lat_deg"`
		LonDeg float64 `yaml:"lon_deg"`
		AltM   float64 `yaml:"alt_m"`
	} `yaml:"ground_station"`
}

// ScenarioFile is the on-disk shape of a scenario definition. Traffic is
// optional.
type ScenarioFile struct {
	Name                  string               `yaml:"name"`
	ISLRangeKm            *float64             `yaml:"isl_range_km"`
	ElevationThresholdDeg *float64             `yaml:"elevation_threshold_deg"`
	TTLSec                *float64             `yaml:"ttl"`
	DurationSec           *float64             `yaml:"duration"`
	TimestepSec           *float64             `yaml:"timestep"`
	Traffic               *model.TrafficConfig `yaml:"traffic"`
}

// LoadConstellation reads and validates a constellation file.
func LoadConstellation(path string) (model.ConstellationSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ConstellationSpec{}, fmt.Errorf("read constellation config: %w", err)
	}
	spec, err := ParseConstellation(data)
	if err != nil {
		return model.ConstellationSpec{}, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// ParseConstellation decodes a constellation document. A missing mean
// anomaly spacing spreads satellites evenly around each plane.
func ParseConstellation(data []byte) (model.ConstellationSpec, error) {
	var f ConstellationFile
	if err := decodeStrict(data, &f); err != nil {
		return model.ConstellationSpec{}, fmt.Errorf("parse constellation config: %w", err)
	}

	c := f.Constellation
	spec := model.ConstellationSpec{
		Planes:         c.NumberOfPlanes,
		SatsPerPlane:   c.SatsPerPlane,
		AltitudeKm:     c.AltitudeKm,
		InclinationDeg: c.InclinationDeg,
		RAANSpacingDeg: c.RAANSpacingDeg,
		GroundStation: model.GroundStation{
			LatDeg: f.GroundStation.LatDeg,
			LonDeg: f.GroundStation.LonDeg,
			AltM:   f.GroundStation.AltM,
		},
	}
	switch {
	case c.MeanAnomalySpacingDeg != nil:
		spec.MeanAnomalySpacingDeg = *c.MeanAnomalySpacingDeg
	case c.SatsPerPlane > 0:
		spec.MeanAnomalySpacingDeg = 360.0 / float64(c.SatsPerPlane)
	}

	if err := spec.Validate(); err != nil {
		return model.ConstellationSpec{}, err
	}
	return spec, nil
}

// LoadScenario reads a scenario file, applies defaults and validates it.
// The returned traffic config is zero when the file has no traffic block.
func LoadScenario(path string) (model.ScenarioConfig, model.TrafficConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ScenarioConfig{}, model.TrafficConfig{}, fmt.Errorf("read scenario config: %w", err)
	}
	scenario, traffic, err := ParseScenario(data)
	if err != nil {
		return model.ScenarioConfig{}, model.TrafficConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, traffic, nil
}

// ParseScenario decodes a scenario document. Omitted keys take the model
// defaults; keys that are present, zero included, are used as written.
func ParseScenario(data []byte) (model.ScenarioConfig, model.TrafficConfig, error) {
	var f ScenarioFile
	if err := decodeStrict(data, &f); err != nil {
		return model.ScenarioConfig{}, model.TrafficConfig{}, fmt.Errorf("parse scenario config: %w", err)
	}

	scenario := model.DefaultScenario(f.Name)
	setIfPresent(&scenario.ISLRangeKm, f.ISLRangeKm)
	setIfPresent(&scenario.ElevationThresholdDeg, f.ElevationThresholdDeg)
	setIfPresent(&scenario.TTLSec, f.TTLSec)
	setIfPresent(&scenario.DurationSec, f.DurationSec)
	setIfPresent(&scenario.TimestepSec, f.TimestepSec)
	if err := scenario.Validate(); err != nil {
		return model.ScenarioConfig{}, model.TrafficConfig{}, err
	}

	var traffic model.TrafficConfig
	if f.Traffic != nil {
		traffic = *f.Traffic
	}
	return scenario, traffic, nil
}

func setIfPresent(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// decodeStrict rejects unknown keys so typos surface as errors.
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Scenario preset names.
const (
	PresetStable    = "stable"
	PresetDisrupted = "disrupted"
)

var presets = map[string]model.ScenarioConfig{
	PresetStable: {
		Name:                  PresetStable,
		ISLRangeKm:            5000,
		ElevationThresholdDeg: 5,
		TTLSec:                120,
		DurationSec:           600,
		TimestepSec:           model.DefaultTimestepSec,
	},
	PresetDisrupted: {
		Name:                  PresetDisrupted,
		ISLRangeKm:            3000,
		ElevationThresholdDeg: 15,
		TTLSec:                120,
		DurationSec:           600,
		TimestepSec:           model.DefaultTimestepSec,
	},
}

// Preset returns a built-in scenario by name.
func Preset(name string) (model.ScenarioConfig, error) {
	s, ok := presets[name]
	if !ok {
		return model.ScenarioConfig{}, fmt.Errorf("%w: unknown scenario preset %q", model.ErrInvalidScenario, name)
	}
	return s, nil
}

// PresetNames lists the built-in scenarios in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
