package results

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

func sampleRecord() Record {
	return Record{
		RunID:          "run-1",
		Scenario:       "stable",
		Router:         "baseline",
		ScenarioConfig: model.ScenarioConfig{Name: "stable", ISLRangeKm: 5000, ElevationThresholdDeg: 5, TTLSec: 120, DurationSec: 600, TimestepSec: 1},
		Metrics: core.MetricsSnapshot{
			TotalSent:      121,
			TotalDelivered: 100,
			TotalDropped:   21,
			DeliveryRate:   100.0 / 121.0,
			LatencyMean:    1.5,
			LatencyMedian:  1,
			LatencyP95:     4,
			DropReasons:    map[string]int{"ttl_expired": 20, "no_path_available": 1},
		},
		CompletedAt: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	rec := sampleRecord()

	path, err := WriteJSON(dir, rec)
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if filepath.Base(path) != "results_stable_baseline.json" {
		t.Fatalf("path = %s, want results_stable_baseline.json", path)
	}

	got, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.RunID != rec.RunID || got.Metrics.TotalDelivered != 100 || got.Metrics.DropReasons["ttl_expired"] != 20 {
		t.Fatalf("round trip = %+v", got)
	}
	if !got.CompletedAt.Equal(rec.CompletedAt) {
		t.Fatalf("CompletedAt = %v, want %v", got.CompletedAt, rec.CompletedAt)
	}
}

func TestWriteJSONShape(t *testing.T) {
	dir := t.TempDir()
	if err := JSONDir(dir).Save(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName("stable", "baseline")))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"scenario", "router", "scenario_config", "metrics"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("missing top-level key %q", key)
		}
	}
	var cfg map[string]any
	if err := json.Unmarshal(doc["scenario_config"], &cfg); err != nil {
		t.Fatalf("unmarshal scenario_config: %v", err)
	}
	for _, key := range []string{"isl_range_km", "elevation_threshold_deg", "ttl", "duration"} {
		if _, ok := cfg[key]; !ok {
			t.Fatalf("scenario_config missing %q", key)
		}
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, sampleRecord()); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"SIMULATION RESULTS",
		"Total packets sent: 121",
		"Delivery rate: 82.64%",
		"  P95: 4.00 seconds",
		"Drop reasons:",
		"  no_path_available: 1\n  ttl_expired: 20",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSummaryNoDrops(t *testing.T) {
	rec := sampleRecord()
	rec.Metrics.DropReasons = map[string]int{}
	var buf bytes.Buffer
	_ = WriteSummary(&buf, rec)
	if strings.Contains(buf.String(), "Drop reasons") {
		t.Fatalf("empty drop reasons should be omitted:\n%s", buf.String())
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"stable":       "stable",
		"leo-550_v2.1": "leo-550_v2.1",
		"../x":         ".._x",
		`a\b/c`:        "a_b_c",
		"..":           "__",
		"west coast":   "west_coast",
	}
	for in, want := range cases {
		if got := SafeName(in); got != want {
			t.Fatalf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteJSONStaysInsideDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	rec := sampleRecord()
	rec.Scenario = "../../escape"

	path, err := WriteJSON(dir, rec)
	if err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path = %s, want a file directly inside %s", path, dir)
	}
}
