// Package batch runs many independent simulations concurrently.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/internal/logging"
	"github.com/signalsfoundry/constellation-routing-sim/internal/observability"
	"github.com/signalsfoundry/constellation-routing-sim/internal/results"
	"github.com/signalsfoundry/constellation-routing-sim/kb"
	"github.com/signalsfoundry/constellation-routing-sim/model"
	"github.com/signalsfoundry/constellation-routing-sim/routing"
)

// Job is one simulation: a scenario, a router and the router's seed.
type Job struct {
	Scenario model.ScenarioConfig
	Traffic  model.TrafficConfig
	Router   string
	Seed     int64
}

// Matrix returns one job per scenario and router, scenarios outermost.
func Matrix(scenarios []model.ScenarioConfig, traffic model.TrafficConfig, routers []string, seed int64) []Job {
	jobs := make([]Job, 0, len(scenarios)*len(routers))
	for _, s := range scenarios {
		for _, r := range routers {
			jobs = append(jobs, Job{Scenario: s, Traffic: traffic, Router: r, Seed: seed})
		}
	}
	return jobs
}

// Runner executes jobs over a shared constellation. Every job gets its own
// engine and policy instance; only the observers are shared.
type Runner struct {
	Constellation model.ConstellationSpec

	// Parallelism bounds concurrent jobs; zero means GOMAXPROCS.
	Parallelism int

	Logger    logging.Logger
	KB        *kb.KnowledgeBase
	Metrics   *observability.SimCollector
	JobsStats *observability.BatchCollector

	// Now stamps completed records; defaults to time.Now.
	Now func() time.Time
}

// Run executes jobs and returns their records in job order. The first job
// error cancels the remaining jobs and is returned.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]results.Record, error) {
	limit := r.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	out := make([]results.Record, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			rec, err := r.RunJob(ctx, job)
			if err != nil {
				return fmt.Errorf("job %s/%s: %w", job.Scenario.Name, job.Router, err)
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RunJob executes a single job under a fresh run ID and publishes the record
// to the knowledge base, if one is configured.
func (r *Runner) RunJob(ctx context.Context, job Job) (results.Record, error) {
	base := r.Logger
	if base == nil {
		base = logging.Noop()
	}
	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := base.With(
		logging.String("run_id", runID),
		logging.String("scenario", job.Scenario.Name),
		logging.String("router", job.Router),
	)

	ctx, span := observability.StartSpan(ctx, "batch.RunJob",
		attribute.String("scenario", job.Scenario.Name),
		attribute.String("router", job.Router),
		attribute.Int64("seed", job.Seed),
	)
	defer span.End()

	start := time.Now()
	r.JobsStats.JobStarted()
	rec, err := r.execute(ctx, job, runID, log)
	r.JobsStats.JobFinished(time.Since(start), err)
	if err != nil {
		observability.RecordFailure(span, err)
		log.Error(ctx, "simulation job failed", logging.Err(err))
		return results.Record{}, err
	}
	observability.RecordOutcome(span, rec.Metrics)
	log.Info(ctx, "simulation job finished",
		logging.Float64("delivery_rate", rec.Metrics.DeliveryRate),
		logging.Duration("elapsed", time.Since(start)),
	)
	return rec, nil
}

func (r *Runner) execute(ctx context.Context, job Job, runID string, log logging.Logger) (results.Record, error) {
	policy, err := routing.New(job.Router, job.Seed)
	if err != nil {
		return results.Record{}, err
	}
	engine, err := core.NewSimulationEngine(r.Constellation, job.Scenario, policy,
		core.WithTrafficConfig(job.Traffic),
		core.WithLogger(log),
		core.WithRecorder(r.Metrics.ForRun(job.Scenario.Name, job.Router)),
	)
	if err != nil {
		return results.Record{}, err
	}
	metrics, err := engine.Run(ctx)
	if err != nil {
		return results.Record{}, err
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	rec := results.Record{
		RunID:          runID,
		Scenario:       job.Scenario.Name,
		Router:         job.Router,
		Seed:           job.Seed,
		ScenarioConfig: engine.Scenario(),
		Traffic:        engine.Traffic(),
		Metrics:        metrics,
		CompletedAt:    now().UTC(),
	}
	if r.KB != nil {
		if err := r.KB.AddRun(rec); err != nil {
			return results.Record{}, fmt.Errorf("publish run: %w", err)
		}
	}
	return rec, nil
}
