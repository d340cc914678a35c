package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConstellation(t *testing.T) {
	path := writeFile(t, "constellation.yaml", `
constellation:
  number_of_planes: 3
  sats_per_plane: 4
  altitude_km: 550
  inclination_deg: 53
  raan_spacing_deg: 20
  mean_anomaly_spacing_deg: 90
ground_station:
  lat_deg: 10
  lon_deg: -20
  alt_m: 100
`)
	spec, err := LoadConstellation(path)
	if err != nil {
		t.Fatalf("LoadConstellation: %v", err)
	}
	if spec.Planes != 3 || spec.SatsPerPlane != 4 || spec.AltitudeKm != 550 || spec.MeanAnomalySpacingDeg != 90 {
		t.Fatalf("spec = %+v", spec)
	}
	if spec.RAANSpacingDeg == nil || *spec.RAANSpacingDeg != 20 {
		t.Fatalf("RAANSpacingDeg = %v, want 20", spec.RAANSpacingDeg)
	}
	if spec.GroundStation != (model.GroundStation{LatDeg: 10, LonDeg: -20, AltM: 100}) {
		t.Fatalf("GroundStation = %+v", spec.GroundStation)
	}
}

func TestParseConstellationDefaults(t *testing.T) {
	spec, err := ParseConstellation([]byte(`
constellation:
  number_of_planes: 2
  sats_per_plane: 8
  altitude_km: 1200
  inclination_deg: 87
ground_station:
  lat_deg: 0
  lon_deg: 0
`))
	if err != nil {
		t.Fatalf("ParseConstellation: %v", err)
	}
	if spec.RAANSpacingDeg != nil {
		t.Fatalf("RAANSpacingDeg = %v, want unset", *spec.RAANSpacingDeg)
	}
	if spec.MeanAnomalySpacingDeg != 45 {
		t.Fatalf("MeanAnomalySpacingDeg = %v, want 45", spec.MeanAnomalySpacingDeg)
	}
}

func TestParseConstellationErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "constellation:\n  number_of_plains: 2\n",
		"invalid value": "constellation:\n  number_of_planes: 0\n  sats_per_plane: 1\n  altitude_km: 500\n",
		"bad yaml":      "constellation: [",
	}
	for name, body := range cases {
		if _, err := ParseConstellation([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	_, err := ParseConstellation([]byte("constellation:\n  number_of_planes: -1\n"))
	if !errors.Is(err, model.ErrInvalidConstellation) {
		t.Fatalf("error = %v, want ErrInvalidConstellation", err)
	}
}

func TestLoadConstellationMissingFile(t *testing.T) {
	if _, err := LoadConstellation(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadScenarioWithTraffic(t *testing.T) {
	path := writeFile(t, "scenario.yaml", `
name: custom
isl_range_km: 4000
elevation_threshold_deg: 0
ttl: 60
duration: 300
traffic:
  period: 10
  src: ground
  dst: sat_1_1
`)
	scenario, traffic, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	want := model.ScenarioConfig{Name: "custom", ISLRangeKm: 4000, ElevationThresholdDeg: 0, TTLSec: 60, DurationSec: 300, TimestepSec: 1}
	if scenario != want {
		t.Fatalf("scenario = %+v, want %+v", scenario, want)
	}
	if traffic.PeriodSec != 10 || traffic.TTLSec != 0 || traffic.Dst != "sat_1_1" {
		t.Fatalf("traffic = %+v", traffic)
	}
}

func TestParseScenarioDefaults(t *testing.T) {
	scenario, traffic, err := ParseScenario([]byte("name: bare\n"))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if scenario.ISLRangeKm != 5000 || scenario.ElevationThresholdDeg != 5 || scenario.TTLSec != 120 || scenario.DurationSec != 600 {
		t.Fatalf("scenario = %+v, want defaults", scenario)
	}
	if traffic != (model.TrafficConfig{}) {
		t.Fatalf("traffic = %+v, want zero", traffic)
	}
}

func TestParseScenarioKeepsExplicitZeroDuration(t *testing.T) {
	scenario, _, err := ParseScenario([]byte("name: instant\nduration: 0\n"))
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if scenario.DurationSec != 0 {
		t.Fatalf("DurationSec = %v, want 0", scenario.DurationSec)
	}
	if scenario.ISLRangeKm != 5000 || scenario.TTLSec != 120 || scenario.TimestepSec != 1 {
		t.Fatalf("scenario = %+v, want defaults for omitted keys", scenario)
	}
}

func TestParseScenarioRejectsExplicitZeroStep(t *testing.T) {
	for _, body := range []string{"timestep: 0\n", "isl_range_km: 0\n", "ttl: 0\n"} {
		if _, _, err := ParseScenario([]byte(body)); !errors.Is(err, model.ErrInvalidScenario) {
			t.Fatalf("ParseScenario(%q) error = %v, want ErrInvalidScenario", body, err)
		}
	}
}

func TestParseScenarioInvalid(t *testing.T) {
	_, _, err := ParseScenario([]byte("isl_range_km: -5\n"))
	if !errors.Is(err, model.ErrInvalidScenario) {
		t.Fatalf("error = %v, want ErrInvalidScenario", err)
	}
}

func TestPresets(t *testing.T) {
	names := PresetNames()
	if len(names) != 2 || names[0] != PresetDisrupted || names[1] != PresetStable {
		t.Fatalf("PresetNames = %v", names)
	}
	stable, err := Preset(PresetStable)
	if err != nil {
		t.Fatalf("Preset(stable): %v", err)
	}
	if stable.ISLRangeKm != 5000 || stable.ElevationThresholdDeg != 5 || stable.TTLSec != 120 || stable.DurationSec != 600 {
		t.Fatalf("stable = %+v", stable)
	}
	disrupted, _ := Preset(PresetDisrupted)
	if disrupted.ISLRangeKm != 3000 || disrupted.ElevationThresholdDeg != 15 {
		t.Fatalf("disrupted = %+v", disrupted)
	}
	if _, err := Preset("apocalyptic"); !errors.Is(err, model.ErrInvalidScenario) {
		t.Fatalf("unknown preset error = %v", err)
	}
}

func TestRepositoryDefaultsLoad(t *testing.T) {
	if _, err := LoadConstellation(filepath.Join("..", "..", DefaultConstellationPath)); err != nil {
		t.Fatalf("default constellation: %v", err)
	}
	if _, _, err := LoadScenario(filepath.Join("..", "..", "configs", "scenario_example.yaml")); err != nil {
		t.Fatalf("example scenario: %v", err)
	}
}
