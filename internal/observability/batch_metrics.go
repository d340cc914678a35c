package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchCollector exposes metrics for sweeps that run many simulations.
type BatchCollector struct {
	gatherer prometheus.Gatherer

	JobDuration   prometheus.Histogram
	JobsInFlight  prometheus.Gauge
	JobsCompleted prometheus.Counter
	JobsFailed    prometheus.Counter
}

// NewBatchCollector registers batch metrics against the provided registerer.
func NewBatchCollector(reg prometheus.Registerer) (*BatchCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_batch_job_duration_seconds",
		Help:    "Wall-clock duration of one simulation job within a batch.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}), "sim_batch_job_duration_seconds")
	if err != nil {
		return nil, err
	}

	inFlight, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_batch_jobs_in_flight",
		Help: "Simulation jobs currently running.",
	}), "sim_batch_jobs_in_flight")
	if err != nil {
		return nil, err
	}

	completed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_batch_jobs_completed_total",
		Help: "Simulation jobs that finished successfully.",
	}), "sim_batch_jobs_completed_total")
	if err != nil {
		return nil, err
	}

	failed, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_batch_jobs_failed_total",
		Help: "Simulation jobs that returned an error.",
	}), "sim_batch_jobs_failed_total")
	if err != nil {
		return nil, err
	}

	return &BatchCollector{
		gatherer:      gatherer,
		JobDuration:   duration,
		JobsInFlight:  inFlight,
		JobsCompleted: completed,
		JobsFailed:    failed,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *BatchCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// JobStarted marks a job as running.
func (c *BatchCollector) JobStarted() {
	if c == nil {
		return
	}
	c.JobsInFlight.Inc()
}

// JobFinished records the outcome of a job started with JobStarted.
func (c *BatchCollector) JobFinished(d time.Duration, err error) {
	if c == nil {
		return
	}
	c.JobsInFlight.Dec()
	c.JobDuration.Observe(d.Seconds())
	if err != nil {
		c.JobsFailed.Inc()
		return
	}
	c.JobsCompleted.Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
