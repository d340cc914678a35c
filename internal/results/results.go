// Package results persists and reports the outcome of simulation runs.
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// Record is the outcome of one run.
type Record struct {
	RunID          string               `json:"run_id"`
	Scenario       string               `json:"scenario"`
	Router         string               `json:"router"`
	Seed           int64                `json:"seed,omitempty"`
	ScenarioConfig model.ScenarioConfig `json:"scenario_config"`
	Traffic        model.TrafficConfig  `json:"traffic"`
	Metrics        core.MetricsSnapshot `json:"metrics"`
	CompletedAt    time.Time            `json:"completed_at"`
}

// Sink stores completed records.
type Sink interface {
	Save(ctx context.Context, rec Record) error
}

// FileName returns the JSON file name used for a scenario/router pair.
// Both parts go through SafeName, so the result never leaves its directory.
func FileName(scenario, router string) string {
	return fmt.Sprintf("results_%s_%s.json", SafeName(scenario), SafeName(router))
}

// SafeName makes s usable as one file name component: every rune other than
// an ASCII letter, digit, '-', '_' or '.' becomes '_', and a result made only
// of dots is replaced outright.
func SafeName(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
	if strings.Trim(out, ".") == "" {
		return strings.Repeat("_", len(out))
	}
	return out
}

// WriteJSON writes rec to dir, creating it if needed, and returns the path.
// A later run of the same scenario and router overwrites the file.
func WriteJSON(dir string, rec Record) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	path := filepath.Join(dir, FileName(rec.Scenario, rec.Router))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}

// ReadJSON loads a record written by WriteJSON.
func ReadJSON(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read results: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse results: %w", err)
	}
	return rec, nil
}

// JSONDir is a Sink writing one file per scenario/router pair into a
// directory.
type JSONDir string

// Save implements Sink.
func (d JSONDir) Save(_ context.Context, rec Record) error {
	_, err := WriteJSON(string(d), rec)
	return err
}

// WriteSummary prints the human-readable result block for a run.
func WriteSummary(w io.Writer, rec Record) error {
	m := rec.Metrics
	bar := "=================================================="
	lines := []string{
		"",
		bar,
		"SIMULATION RESULTS",
		bar,
		fmt.Sprintf("Total packets sent: %d", m.TotalSent),
		fmt.Sprintf("Total packets delivered: %d", m.TotalDelivered),
		fmt.Sprintf("Total packets dropped: %d", m.TotalDropped),
		fmt.Sprintf("Delivery rate: %.2f%%", m.DeliveryRate*100),
		"",
		"Latency statistics:",
		fmt.Sprintf("  Mean: %.2f seconds", m.LatencyMean),
		fmt.Sprintf("  Median: %.2f seconds", m.LatencyMedian),
		fmt.Sprintf("  P95: %.2f seconds", m.LatencyP95),
	}
	if len(m.DropReasons) > 0 {
		lines = append(lines, "", "Drop reasons:")
		reasons := make([]string, 0, len(m.DropReasons))
		for r := range m.DropReasons {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			lines = append(lines, fmt.Sprintf("  %s: %d", r, m.DropReasons[r]))
		}
	}
	lines = append(lines, bar)

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
