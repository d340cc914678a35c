package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/constellation-routing-sim/internal/logging"
	"github.com/signalsfoundry/constellation-routing-sim/model"
	"github.com/signalsfoundry/constellation-routing-sim/timectrl"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/constellation-routing-sim/core"

// ErrEngineAlreadyRun is returned when Run is called a second time.
var ErrEngineAlreadyRun = errors.New("simulation engine already run")

// TickReport describes the outcome of one tick.
type TickReport struct {
	Index     int
	Time      float64
	Topology  *Topology
	Generated int
	Delivered int
	Dropped   int
	Active    int
}

// EngineRecorder observes a run. Implementations must not influence the
// simulation; the engine ignores anything they do.
type EngineRecorder interface {
	RecordTick(report TickReport, elapsed time.Duration)
	RecordPacketGenerated(pkt model.Packet)
	RecordPacketDelivered(pkt model.Packet)
	RecordPacketDropped(pkt model.Packet)
}

type noopRecorder struct{}

func (noopRecorder) RecordTick(TickReport, time.Duration) {}
func (noopRecorder) RecordPacketGenerated(model.Packet)   {}
func (noopRecorder) RecordPacketDelivered(model.Packet)   {}
func (noopRecorder) RecordPacketDropped(model.Packet)     {}

type engineOptions struct {
	traffic       model.TrafficConfig
	logger        logging.Logger
	recorder      EngineRecorder
	tickListeners []func(TickReport)
	historyDepth  int
}

// EngineOption configures a SimulationEngine.
type EngineOption func(*engineOptions)

// WithTrafficConfig overrides the traffic pattern. Zero fields keep their
// defaults.
func WithTrafficConfig(cfg model.TrafficConfig) EngineOption {
	return func(o *engineOptions) { o.traffic = cfg }
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(o *engineOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r EngineRecorder) EngineOption {
	return func(o *engineOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithTickListener registers a callback invoked after every tick.
func WithTickListener(fn func(TickReport)) EngineOption {
	return func(o *engineOptions) {
		if fn != nil {
			o.tickListeners = append(o.tickListeners, fn)
		}
	}
}

// WithHistoryDepth sets how many topologies policies can look back over.
func WithHistoryDepth(depth int) EngineOption {
	return func(o *engineOptions) { o.historyDepth = depth }
}

// SimulationEngine steps a constellation through time, rebuilds the link
// topology every tick and moves packets according to a RoutingPolicy.
//
// An engine runs once and is not safe for concurrent use.
type SimulationEngine struct {
	scenario model.ScenarioConfig
	orbit    *OrbitModel
	builder  *TopologyBuilder
	traffic  *TrafficGenerator
	policy   RoutingPolicy
	history  *TopologyHistory
	clock    *timectrl.TickController

	logger        logging.Logger
	recorder      EngineRecorder
	tickListeners []func(TickReport)

	ran bool
}

// NewSimulationEngine validates the configuration and prepares a run.
func NewSimulationEngine(constellation model.ConstellationSpec, scenario model.ScenarioConfig, policy RoutingPolicy, opts ...EngineOption) (*SimulationEngine, error) {
	o := engineOptions{
		logger:       logging.Noop(),
		recorder:     noopRecorder{},
		historyDepth: DefaultHistoryDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if policy == nil {
		return nil, errors.New("NewSimulationEngine: routing policy is required")
	}
	scenario = scenario.WithDefaultTimestep()
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("NewSimulationEngine: %w", err)
	}
	orbit, err := NewOrbitModel(constellation)
	if err != nil {
		return nil, fmt.Errorf("NewSimulationEngine: %w", err)
	}
	traffic := model.ResolveTraffic(o.traffic, scenario, orbit.FirstSatellite())
	if err := traffic.Validate(); err != nil {
		return nil, fmt.Errorf("NewSimulationEngine: %w", err)
	}
	clock, err := timectrl.NewTickController(scenario.TimestepSec, scenario.DurationSec)
	if err != nil {
		return nil, fmt.Errorf("NewSimulationEngine: %w: %v", model.ErrInvalidScenario, err)
	}

	return &SimulationEngine{
		scenario:      scenario,
		orbit:         orbit,
		builder:       NewTopologyBuilder(NewVisibilityEngine(scenario.ISLRangeKm, scenario.ElevationThresholdDeg)),
		traffic:       NewTrafficGenerator(traffic),
		policy:        policy,
		history:       NewTopologyHistory(o.historyDepth),
		clock:         clock,
		logger:        o.logger,
		recorder:      o.recorder,
		tickListeners: o.tickListeners,
	}, nil
}

// Scenario returns the scenario with defaults applied.
func (e *SimulationEngine) Scenario() model.ScenarioConfig { return e.scenario }

// Traffic returns the resolved traffic configuration.
func (e *SimulationEngine) Traffic() model.TrafficConfig { return e.traffic.Config() }

// Orbit returns the orbit model driving node positions.
func (e *SimulationEngine) Orbit() *OrbitModel { return e.orbit }

// Clock returns the tick controller. Listeners added before Run observe
// every tick.
func (e *SimulationEngine) Clock() *timectrl.TickController { return e.clock }

// Packets returns copies of every packet created so far, in creation order.
func (e *SimulationEngine) Packets() []model.Packet {
	packets := e.traffic.Packets()
	out := make([]model.Packet, 0, len(packets))
	for _, p := range packets {
		out = append(out, *p)
	}
	return out
}

// Run executes every tick and returns the aggregate metrics. It fails only
// when ctx is cancelled between ticks or the engine has already run; in the
// cancelled case the returned metrics cover the ticks completed so far.
func (e *SimulationEngine) Run(ctx context.Context) (MetricsSnapshot, error) {
	if e.ran {
		return MetricsSnapshot{}, ErrEngineAlreadyRun
	}
	e.ran = true

	ctx, span := otel.Tracer(tracerName).Start(ctx, "SimulationEngine.Run",
		trace.WithAttributes(
			attribute.String("scenario", e.scenario.Name),
			attribute.Float64("duration_s", e.scenario.DurationSec),
			attribute.Float64("timestep_s", e.scenario.TimestepSec),
			attribute.Int("satellites", len(e.orbit.Satellites())),
		))
	defer span.End()

	traffic := e.traffic.Config()
	e.logger.Info(ctx, "simulation starting",
		logging.String("scenario", e.scenario.Name),
		logging.Int("ticks", e.clock.Total()),
		logging.Int("satellites", len(e.orbit.Satellites())),
		logging.String("src", traffic.Src.String()),
		logging.String("dst", traffic.Dst.String()),
	)

	for {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("simulation cancelled at t=%v: %w", e.clock.Now(), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return ComputeMetrics(e.traffic.Packets()), err
		}
		tick, ok := e.clock.Advance()
		if !ok {
			break
		}
		e.step(ctx, tick)
	}

	leftover := e.finalize(ctx)
	metrics := ComputeMetrics(e.traffic.Packets())

	span.SetAttributes(
		attribute.Int("packets.sent", metrics.TotalSent),
		attribute.Int("packets.delivered", metrics.TotalDelivered),
		attribute.Int("packets.dropped", metrics.TotalDropped),
	)
	e.logger.Info(ctx, "simulation finished",
		logging.Int("sent", metrics.TotalSent),
		logging.Int("delivered", metrics.TotalDelivered),
		logging.Int("dropped", metrics.TotalDropped),
		logging.Int("no_path_available", leftover),
		logging.Float64("delivery_rate", metrics.DeliveryRate),
	)
	return metrics, nil
}

func (e *SimulationEngine) step(ctx context.Context, tick timectrl.Tick) {
	start := time.Now()
	t := tick.Time

	topo := e.builder.Build(e.orbit.Positions(t))
	e.history.Push(topo)
	history := e.history.Snapshots()

	report := TickReport{Index: tick.Index, Time: t, Topology: topo}

	for _, p := range e.traffic.Generate(t) {
		report.Generated++
		e.recorder.RecordPacketGenerated(*p)
	}

	for _, p := range e.traffic.Packets() {
		if !p.IsActive() {
			continue
		}
		switch e.advancePacket(ctx, p, topo, t, history) {
		case model.PacketDelivered:
			report.Delivered++
			e.recorder.RecordPacketDelivered(*p)
		case model.PacketDropped:
			report.Dropped++
			e.recorder.RecordPacketDropped(*p)
			e.logger.Debug(ctx, "packet dropped",
				logging.Int("packet_id", p.ID),
				logging.String("reason", p.DropReason().Label()),
				logging.Float64("time_s", t),
			)
		default:
			report.Active++
		}
	}

	e.recorder.RecordTick(report, time.Since(start))
	for _, fn := range e.tickListeners {
		fn(report)
	}
}

// advancePacket applies one tick to an active packet and returns its state
// afterwards.
func (e *SimulationEngine) advancePacket(ctx context.Context, p *model.Packet, topo *Topology, t float64, history []*Topology) model.PacketState {
	if p.CurrentNode() == p.Dst {
		p.MarkDelivered(t)
		return p.State()
	}

	if hop, ok := e.policy.NextHop(*p, topo, t, history); ok {
		if topo.HasEdge(p.CurrentNode(), hop) {
			p.MoveTo(hop)
			if hop == p.Dst {
				p.MarkDelivered(t)
				return p.State()
			}
		} else {
			e.logger.Debug(ctx, "ignoring invalid next hop",
				logging.Int("packet_id", p.ID),
				logging.String("from", p.CurrentNode().String()),
				logging.String("hop", hop.String()),
				logging.Float64("time_s", t),
			)
		}
	}

	p.DecrementTTL(e.clock.Step())
	return p.State()
}

// finalize drops every packet still in flight and returns how many there
// were.
func (e *SimulationEngine) finalize(ctx context.Context) int {
	n := 0
	for _, p := range e.traffic.Packets() {
		if p.Drop(model.DropNoPathAvailable) {
			n++
			e.recorder.RecordPacketDropped(*p)
		}
	}
	if n > 0 {
		e.logger.Debug(ctx, "dropped packets still in flight", logging.Int("count", n))
	}
	return n
}
