package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/constellation-routing-sim/internal/logging"
	"github.com/signalsfoundry/constellation-routing-sim/internal/results"
	"github.com/signalsfoundry/constellation-routing-sim/internal/results/sqlite"
)

const testConstellationYAML = `constellation:
  number_of_planes: 2
  sats_per_plane: 6
  altitude_km: 550
  inclination_deg: 53
  mean_anomaly_spacing_deg: 60
ground_station:
  lat_deg: 30
  lon_deg: 10
  alt_m: 0
`

const testScenarioYAML = `name: quick
isl_range_km: 5000
elevation_threshold_deg: 5
ttl: 120
duration: 30
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return path
}

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Router:            "baseline",
		Seed:              42,
		ConstellationPath: writeFile(t, dir, "constellation.yaml", testConstellationYAML),
		ScenarioFile:      writeFile(t, dir, "scenario.yaml", testScenarioYAML),
		OutputDir:         filepath.Join(dir, "outputs"),
		SnapshotAt:        -1,
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Scenario != "stable" || cfg.Router != "baseline" || cfg.Seed != 42 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.ConstellationPath != "configs/constellation.yaml" || cfg.OutputDir != "outputs" {
		t.Fatalf("paths = %q, %q", cfg.ConstellationPath, cfg.OutputDir)
	}
	if cfg.SnapshotAt >= 0 {
		t.Fatalf("SnapshotAt = %v, want export disabled", cfg.SnapshotAt)
	}
}

func TestParseFlagsOverrides(t *testing.T) {
	cfg, err := parseFlags([]string{"-scenario", "disrupted", "-router", "random", "-seed", "7", "-snapshot-at", "30"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Scenario != "disrupted" || cfg.Router != "random" || cfg.Seed != 7 || cfg.SnapshotAt != 30 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestRunWritesSummaryAndResults(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "runs.db")

	var out bytes.Buffer
	if err := run(context.Background(), cfg, logging.Noop(), &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	summary := out.String()
	for _, want := range []string{"quick", "baseline", "Results saved to:"} {
		if !strings.Contains(summary, want) {
			t.Fatalf("summary missing %q:\n%s", want, summary)
		}
	}

	rec, err := results.ReadJSON(filepath.Join(cfg.OutputDir, "results_quick_baseline.json"))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if rec.Metrics.TotalSent != 7 {
		t.Fatalf("TotalSent = %d, want 7", rec.Metrics.TotalSent)
	}
	if rec.Metrics.TotalDelivered+rec.Metrics.TotalDropped != rec.Metrics.TotalSent {
		t.Fatalf("delivered %d + dropped %d != sent %d", rec.Metrics.TotalDelivered, rec.Metrics.TotalDropped, rec.Metrics.TotalSent)
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	defer store.Close()
	got, ok, err := store.Get(context.Background(), rec.RunID)
	if err != nil || !ok {
		t.Fatalf("Get(%s) = %v, %v", rec.RunID, ok, err)
	}
	if got.Metrics.TotalSent != rec.Metrics.TotalSent {
		t.Fatalf("stored TotalSent = %d, want %d", got.Metrics.TotalSent, rec.Metrics.TotalSent)
	}
}

func TestRunExportsSnapshot(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotAt = 10

	if err := run(context.Background(), cfg, logging.Noop(), &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "snapshot_quick_baseline_t10.json"))
	if err != nil {
		t.Fatalf("ReadFile snapshot: %v", err)
	}
	if !bytes.Contains(data, []byte(`"nodes"`)) || !bytes.Contains(data, []byte(`"ground"`)) {
		t.Fatalf("snapshot missing nodes:\n%s", data)
	}
}

func TestRunSnapshotBeyondDurationFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.SnapshotAt = 1000
	if err := run(context.Background(), cfg, logging.Noop(), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for snapshot past the end of the run")
	}
}

func TestRunRejectsUnknownRouter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Router = "teleport"
	if err := run(context.Background(), cfg, logging.Noop(), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown router")
	}
	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("output dir created for a failed run: %v", err)
	}
}

func TestRunMissingConstellationFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.ConstellationPath = filepath.Join(t.TempDir(), "missing.yaml")
	if err := run(context.Background(), cfg, logging.Noop(), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for missing constellation file")
	}
}

func TestRunNamesUnnamedScenarioAfterFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScenarioFile = writeFile(t, t.TempDir(), "short-hop.yaml", "isl_range_km: 5000\nttl: 60\nduration: 10\n")

	if err := run(context.Background(), cfg, logging.Noop(), &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "results_short-hop_baseline.json")); err != nil {
		t.Fatalf("results file not named after scenario file: %v", err)
	}
}

func TestRunKeepsOutputsInsideOutputDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScenarioFile = writeFile(t, t.TempDir(), "escape.yaml", "name: ../escape\nisl_range_km: 5000\nttl: 60\nduration: 10\n")
	cfg.SnapshotAt = 5

	if err := run(context.Background(), cfg, logging.Noop(), &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("output dir has %d entries, want results and snapshot", len(entries))
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "results_.._escape_baseline.json")); err != nil {
		t.Fatalf("sanitised results file missing: %v", err)
	}
}
