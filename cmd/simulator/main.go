package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/signalsfoundry/constellation-routing-sim/core"
	"github.com/signalsfoundry/constellation-routing-sim/internal/config"
	"github.com/signalsfoundry/constellation-routing-sim/internal/logging"
	"github.com/signalsfoundry/constellation-routing-sim/internal/observability"
	"github.com/signalsfoundry/constellation-routing-sim/internal/results"
	"github.com/signalsfoundry/constellation-routing-sim/internal/results/sqlite"
	"github.com/signalsfoundry/constellation-routing-sim/model"
	"github.com/signalsfoundry/constellation-routing-sim/routing"
	"github.com/signalsfoundry/constellation-routing-sim/timectrl"
)

// Config holds the command-line settings of one simulation run.
type Config struct {
	Scenario          string
	ScenarioFile      string
	Router            string
	Seed              int64
	ConstellationPath string
	OutputDir         string
	DBPath            string
	MetricsAddress    string
	// SnapshotAt is the simulation time to export; negative disables export.
	SnapshotAt float64
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(2)
	}

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout); err != nil {
		log.Error(ctx, "simulation failed", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	var cfg Config
	fs.StringVar(&cfg.Scenario, "scenario", config.PresetStable, "built-in scenario preset (stable or disrupted)")
	fs.StringVar(&cfg.ScenarioFile, "scenario-file", "", "YAML scenario file; overrides -scenario")
	fs.StringVar(&cfg.Router, "router", routing.NameBaseline, "routing policy (baseline, random, persistent)")
	fs.Int64Var(&cfg.Seed, "seed", routing.DefaultRandomSeed, "seed for the random router")
	fs.StringVar(&cfg.ConstellationPath, "constellation", config.DefaultConstellationPath, "YAML constellation file")
	fs.StringVar(&cfg.OutputDir, "output-dir", "outputs", "directory for the JSON results file")
	fs.StringVar(&cfg.DBPath, "db", "", "optional SQLite database that also receives the run record")
	fs.StringVar(&cfg.MetricsAddress, "metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables")
	fs.Float64Var(&cfg.SnapshotAt, "snapshot-at", -1, "export the topology at this simulation time (seconds)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg Config, log logging.Logger, stdout io.Writer) error {
	constellation, err := config.LoadConstellation(cfg.ConstellationPath)
	if err != nil {
		return err
	}
	tracing := observability.TracingConfigFromEnv()
	tracing.Command = "simulator"
	tracing.Attributes = observability.ConstellationAttributes(constellation)
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		return fmt.Errorf("initialise tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
	scenario, traffic, err := loadScenario(cfg)
	if err != nil {
		return err
	}
	policy, err := routing.New(cfg.Router, cfg.Seed)
	if err != nil {
		return err
	}

	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	log = log.With(logging.String("run_id", runID))

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		return fmt.Errorf("initialise metrics collector: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)
	defer func() {
		if metricsSrv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	engine, err := core.NewSimulationEngine(constellation, scenario, policy,
		core.WithTrafficConfig(traffic),
		core.WithLogger(log),
		core.WithRecorder(collector.ForRun(scenario.Name, cfg.Router)),
	)
	if err != nil {
		return err
	}
	engine.Clock().AddListener(progressLogger(ctx, log, engine.Clock().Total()))

	fmt.Fprintf(stdout, "Running simulation: scenario=%s, router=%s\n", scenario.Name, cfg.Router)
	fmt.Fprintf(stdout, "Duration: %g seconds\n", engine.Scenario().DurationSec)

	if cfg.SnapshotAt >= 0 {
		if err := exportSnapshot(ctx, cfg, engine, log); err != nil {
			return err
		}
	}

	metrics, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	rec := results.Record{
		RunID:          runID,
		Scenario:       scenario.Name,
		Router:         cfg.Router,
		Seed:           cfg.Seed,
		ScenarioConfig: engine.Scenario(),
		Traffic:        engine.Traffic(),
		Metrics:        metrics,
		CompletedAt:    time.Now().UTC(),
	}
	if err := results.WriteSummary(stdout, rec); err != nil {
		return err
	}

	path, err := results.WriteJSON(cfg.OutputDir, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nResults saved to: %s\n", path)

	if cfg.DBPath != "" {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Save(ctx, rec); err != nil {
			return err
		}
		log.Info(ctx, "run record stored", logging.String("db", cfg.DBPath))
	}
	return nil
}

func loadScenario(cfg Config) (model.ScenarioConfig, model.TrafficConfig, error) {
	if cfg.ScenarioFile != "" {
		s, traffic, err := config.LoadScenario(cfg.ScenarioFile)
		if err == nil && s.Name == "" {
			s.Name = strings.TrimSuffix(filepath.Base(cfg.ScenarioFile), filepath.Ext(cfg.ScenarioFile))
		}
		return s, traffic, err
	}
	s, err := config.Preset(cfg.Scenario)
	return s, model.TrafficConfig{}, err
}

// progressLogger reports roughly every tenth of the run at debug level.
func progressLogger(ctx context.Context, log logging.Logger, total int) func(timectrl.Tick) {
	every := total / 10
	if every < 1 {
		every = 1
	}
	return func(tick timectrl.Tick) {
		if tick.Index%every != 0 {
			return
		}
		log.Debug(ctx, "simulation progress",
			logging.Int("tick", tick.Index),
			logging.Int("total", total),
			logging.Float64("t", tick.Time),
		)
	}
}

func exportSnapshot(ctx context.Context, cfg Config, engine *core.SimulationEngine, log logging.Logger) error {
	if cfg.SnapshotAt > engine.Scenario().DurationSec {
		return fmt.Errorf("snapshot time %v beyond scenario duration %v", cfg.SnapshotAt, engine.Scenario().DurationSec)
	}
	// The tracing policy is a separate instance so the run's own policy state
	// stays untouched.
	tracer, err := routing.New(cfg.Router, cfg.Seed)
	if err != nil {
		return err
	}
	snap := engine.SnapshotAt(cfg.SnapshotAt, tracer)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	name := fmt.Sprintf("snapshot_%s_%s_t%g.json", results.SafeName(engine.Scenario().Name), results.SafeName(cfg.Router), cfg.SnapshotAt)
	path := filepath.Join(cfg.OutputDir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	log.Info(ctx, "topology snapshot exported",
		logging.String("path", path),
		logging.Int("nodes", len(snap.Nodes)),
		logging.Int("edges", len(snap.Edges)),
	)
	return nil
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
