package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// SimCollector bundles Prometheus metrics describing simulation runs. One
// collector serves any number of concurrent runs; each run records through
// its own RunRecorder.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks            *prometheus.CounterVec
	TickDuration     *prometheus.HistogramVec
	TopologyEdges    *prometheus.GaugeVec
	ActivePackets    *prometheus.GaugeVec
	PacketsGenerated *prometheus.CounterVec
	PacketsDelivered *prometheus.CounterVec
	PacketsDropped   *prometheus.CounterVec
	PacketLatency    *prometheus.HistogramVec
}

var runLabels = []string{"scenario", "router"}

// NewSimCollector registers simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Simulation ticks executed.",
	}, runLabels), "sim_ticks_total")
	if err != nil {
		return nil, err
	}

	tickDuration, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Wall-clock time spent computing one tick.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, runLabels), "sim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	edges, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_topology_edges",
		Help: "Links in the most recent topology.",
	}, runLabels), "sim_topology_edges")
	if err != nil {
		return nil, err
	}

	active, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_active_packets",
		Help: "Packets in flight at the end of the most recent tick.",
	}, runLabels), "sim_active_packets")
	if err != nil {
		return nil, err
	}

	generated, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_packets_generated_total",
		Help: "Packets created by the traffic generator.",
	}, runLabels), "sim_packets_generated_total")
	if err != nil {
		return nil, err
	}

	delivered, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_packets_delivered_total",
		Help: "Packets that reached their destination.",
	}, runLabels), "sim_packets_delivered_total")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_packets_dropped_total",
		Help: "Packets dropped, labeled by reason.",
	}, append(append([]string{}, runLabels...), "reason")), "sim_packets_dropped_total")
	if err != nil {
		return nil, err
	}

	latency, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_packet_latency_seconds",
		Help:    "Simulated delivery latency of delivered packets.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 30, 60, 120},
	}, runLabels), "sim_packet_latency_seconds")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:         gatherer,
		Ticks:            ticks,
		TickDuration:     tickDuration,
		TopologyEdges:    edges,
		ActivePackets:    active,
		PacketsGenerated: generated,
		PacketsDelivered: delivered,
		PacketsDropped:   dropped,
		PacketLatency:    latency,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ForRun returns a recorder bound to one scenario/router pair. A nil
// collector yields a recorder that discards everything.
func (c *SimCollector) ForRun(scenario, router string) *RunRecorder {
	return &RunRecorder{c: c, scenario: scenario, router: router}
}

// RunRecorder implements core.EngineRecorder for one run.
type RunRecorder struct {
	c        *SimCollector
	scenario string
	router   string
}

var _ core.EngineRecorder = (*RunRecorder)(nil)

// RecordTick updates the per-tick metrics.
func (r *RunRecorder) RecordTick(report core.TickReport, elapsed time.Duration) {
	if r == nil || r.c == nil {
		return
	}
	r.c.Ticks.WithLabelValues(r.scenario, r.router).Inc()
	r.c.TickDuration.WithLabelValues(r.scenario, r.router).Observe(elapsed.Seconds())
	r.c.TopologyEdges.WithLabelValues(r.scenario, r.router).Set(float64(report.Topology.EdgeCount()))
	r.c.ActivePackets.WithLabelValues(r.scenario, r.router).Set(float64(report.Active))
}

// RecordPacketGenerated counts a new packet.
func (r *RunRecorder) RecordPacketGenerated(model.Packet) {
	if r == nil || r.c == nil {
		return
	}
	r.c.PacketsGenerated.WithLabelValues(r.scenario, r.router).Inc()
}

// RecordPacketDelivered counts a delivery and observes its latency.
func (r *RunRecorder) RecordPacketDelivered(pkt model.Packet) {
	if r == nil || r.c == nil {
		return
	}
	r.c.PacketsDelivered.WithLabelValues(r.scenario, r.router).Inc()
	if latency, ok := pkt.Latency(); ok {
		r.c.PacketLatency.WithLabelValues(r.scenario, r.router).Observe(latency)
	}
}

// RecordPacketDropped counts a drop by reason.
func (r *RunRecorder) RecordPacketDropped(pkt model.Packet) {
	if r == nil || r.c == nil {
		return
	}
	r.c.PacketsDropped.WithLabelValues(r.scenario, r.router, pkt.DropReason().Label()).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
