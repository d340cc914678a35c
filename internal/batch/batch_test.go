package batch

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/constellation-routing-sim/internal/observability"
	"github.com/signalsfoundry/constellation-routing-sim/kb"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

func smallConstellation() model.ConstellationSpec {
	return model.ConstellationSpec{
		Planes:                2,
		SatsPerPlane:          6,
		AltitudeKm:            550,
		InclinationDeg:        53,
		MeanAnomalySpacingDeg: 60,
		GroundStation:         model.GroundStation{LatDeg: 30, LonDeg: 10},
	}
}

func shortScenarios() []model.ScenarioConfig {
	return []model.ScenarioConfig{
		{Name: "stable", ISLRangeKm: 5000, ElevationThresholdDeg: 5, TTLSec: 120, DurationSec: 60},
		{Name: "disrupted", ISLRangeKm: 3000, ElevationThresholdDeg: 15, TTLSec: 120, DurationSec: 60},
	}
}

func TestMatrix(t *testing.T) {
	jobs := Matrix(shortScenarios(), model.TrafficConfig{}, []string{"baseline", "random"}, 9)
	if len(jobs) != 4 {
		t.Fatalf("len(jobs) = %d, want 4", len(jobs))
	}
	if jobs[1].Scenario.Name != "stable" || jobs[1].Router != "random" || jobs[1].Seed != 9 {
		t.Fatalf("jobs[1] = %+v", jobs[1])
	}
	if jobs[2].Scenario.Name != "disrupted" || jobs[2].Router != "baseline" {
		t.Fatalf("jobs[2] = %+v", jobs[2])
	}
}

func TestRunnerRunsJobsInOrder(t *testing.T) {
	store := kb.NewKnowledgeBase()
	var mu sync.Mutex
	published := 0
	store.Subscribe(func(kb.Event) {
		mu.Lock()
		published++
		mu.Unlock()
	})

	reg := prometheus.NewRegistry()
	sim, err := observability.NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	stats, err := observability.NewBatchCollector(reg)
	if err != nil {
		t.Fatalf("NewBatchCollector: %v", err)
	}

	fixed := time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC)
	r := &Runner{
		Constellation: smallConstellation(),
		Parallelism:   3,
		KB:            store,
		Metrics:       sim,
		JobsStats:     stats,
		Now:           func() time.Time { return fixed },
	}
	jobs := Matrix(shortScenarios(), model.TrafficConfig{}, []string{"baseline", "random", "persistent"}, 0)

	recs, err := r.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(recs) != len(jobs) {
		t.Fatalf("len(recs) = %d, want %d", len(recs), len(jobs))
	}
	ids := map[string]bool{}
	for i, rec := range recs {
		if rec.Scenario != jobs[i].Scenario.Name || rec.Router != jobs[i].Router {
			t.Fatalf("recs[%d] = %s/%s, want %s/%s", i, rec.Scenario, rec.Router, jobs[i].Scenario.Name, jobs[i].Router)
		}
		if rec.Metrics.TotalSent != 13 {
			t.Fatalf("recs[%d] TotalSent = %d, want 13", i, rec.Metrics.TotalSent)
		}
		if rec.RunID == "" || ids[rec.RunID] {
			t.Fatalf("recs[%d] has missing or duplicate run ID %q", i, rec.RunID)
		}
		ids[rec.RunID] = true
		if !rec.CompletedAt.Equal(fixed) {
			t.Fatalf("CompletedAt = %v, want %v", rec.CompletedAt, fixed)
		}
	}
	if published != len(jobs) || len(store.ListRuns()) != len(jobs) {
		t.Fatalf("published %d, stored %d, want %d", published, len(store.ListRuns()), len(jobs))
	}
	if got := testutil.ToFloat64(stats.JobsCompleted); int(got) != len(jobs) {
		t.Fatalf("jobs completed = %v, want %d", got, len(jobs))
	}
	if got := testutil.ToFloat64(sim.Ticks.WithLabelValues("disrupted", "persistent")); got != 61 {
		t.Fatalf("sim_ticks_total{disrupted,persistent} = %v, want 61", got)
	}
}

func TestRunnerMatchesSequentialRuns(t *testing.T) {
	jobs := Matrix(shortScenarios(), model.TrafficConfig{}, []string{"baseline", "random"}, 0)

	parallel, err := (&Runner{Constellation: smallConstellation(), Parallelism: 4}).Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("parallel Run: %v", err)
	}
	sequential, err := (&Runner{Constellation: smallConstellation(), Parallelism: 1}).Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("sequential Run: %v", err)
	}
	for i := range jobs {
		if !reflect.DeepEqual(parallel[i].Metrics, sequential[i].Metrics) {
			t.Fatalf("job %d metrics differ: %+v vs %+v", i, parallel[i].Metrics, sequential[i].Metrics)
		}
	}
}

func TestRunnerUnknownRouterFails(t *testing.T) {
	r := &Runner{Constellation: smallConstellation()}
	_, err := r.Run(context.Background(), []Job{{Scenario: shortScenarios()[0], Router: "teleport"}})
	if err == nil {
		t.Fatalf("expected error for unknown router")
	}
}

func TestRunnerInvalidScenarioFails(t *testing.T) {
	bad := shortScenarios()[0]
	bad.ISLRangeKm = -1
	r := &Runner{Constellation: smallConstellation()}
	_, err := r.Run(context.Background(), []Job{{Scenario: bad, Router: "baseline"}})
	if !errors.Is(err, model.ErrInvalidScenario) {
		t.Fatalf("error = %v, want ErrInvalidScenario", err)
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Constellation: smallConstellation()}
	_, err := r.Run(ctx, Matrix(shortScenarios(), model.TrafficConfig{}, []string{"baseline"}, 0))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
