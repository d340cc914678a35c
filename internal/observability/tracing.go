package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/internal/logging"
	"github.com/signalsfoundry/constellation-routing-sim/model"
)

const (
	tracerName = "github.com/signalsfoundry/constellation-routing-sim/internal/observability"

	defaultServiceName  = "constellation-routing-sim"
	defaultOTLPEndpoint = "localhost:4317"
)

// TracingConfig governs how tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64

	// Command names the binary emitting spans (simulator, sweep).
	Command string
	// Attributes are added to the trace resource, typically
	// ConstellationAttributes of the simulated shell.
	Attributes []attribute.KeyValue

	// Writer receives stdout exporter output; defaults to stderr so traces
	// do not interleave with the run summary.
	Writer io.Writer
}

// TracingConfigFromEnv reads SIM_TRACING_ENABLED, SIM_TRACING_EXPORTER,
// SIM_OTLP_ENDPOINT, SIM_TRACING_SAMPLE_RATIO and SIM_TRACING_SERVICE_NAME.
func TracingConfigFromEnv() TracingConfig {
	return TracingConfig{
		Enabled:     strings.EqualFold(os.Getenv("SIM_TRACING_ENABLED"), "true"),
		ServiceName: envOr("SIM_TRACING_SERVICE_NAME", defaultServiceName),
		Exporter:    strings.ToLower(envOr("SIM_TRACING_EXPORTER", "stdout")),
		Endpoint:    os.Getenv("SIM_OTLP_ENDPOINT"),
		SampleRatio: sampleRatio(os.Getenv("SIM_TRACING_SAMPLE_RATIO")),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// sampleRatio parses a ratio in [0, 1]; anything else samples every trace.
func sampleRatio(raw string) float64 {
	if raw == "" {
		return 1
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return 1
	}
	return v
}

// ConstellationAttributes describes the simulated shell for the trace
// resource, so spans from different constellations can be told apart.
func ConstellationAttributes(spec model.ConstellationSpec) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("sim.constellation.planes", spec.Planes),
		attribute.Int("sim.constellation.sats_per_plane", spec.SatsPerPlane),
		attribute.Float64("sim.constellation.altitude_km", spec.AltitudeKm),
		attribute.Float64("sim.ground.lat_deg", spec.GroundStation.LatDeg),
		attribute.Float64("sim.ground.lon_deg", spec.GroundStation.LonDeg),
	}
}

// InitTracing installs the global tracer provider and propagators. The
// returned function flushes and stops the exporter.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debug(ctx, "tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.String("command", cfg.Command),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	)
	return tp.Shutdown, nil
}

func resourceAttributes(cfg TracingConfig) []attribute.KeyValue {
	service := cfg.ServiceName
	if service == "" {
		service = defaultServiceName
	}
	attrs := []attribute.KeyValue{
		attribute.String("service.name", service),
		attribute.String("service.namespace", "routing-sim"),
	}
	if cfg.Command != "" {
		attrs = append(attrs, attribute.String("sim.command", cfg.Command))
	}
	return append(attrs, cfg.Attributes...)
}

func exporterFromConfig(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// StartSpan starts a span annotated with the run_id carried by ctx, if any.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if runID := logging.RunIDFromContext(ctx); runID != "" {
		attrs = append(attrs, attribute.String("run_id", runID))
	}
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordOutcome annotates span with the packet totals of a finished run.
func RecordOutcome(span trace.Span, m core.MetricsSnapshot) {
	span.SetAttributes(
		attribute.Int("sim.packets.sent", m.TotalSent),
		attribute.Int("sim.packets.delivered", m.TotalDelivered),
		attribute.Int("sim.packets.dropped", m.TotalDropped),
		attribute.Float64("sim.delivery_rate", m.DeliveryRate),
		attribute.Float64("sim.latency.p95_s", m.LatencyP95),
	)
}

// RecordFailure marks span as failed with err.
func RecordFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// ShutdownWithTimeout calls shutdown with a five second deadline and logs,
// rather than returns, any failure.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}
