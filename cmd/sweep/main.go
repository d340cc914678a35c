package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/constellation-routing-sim/internal/batch"
	"github.com/signalsfoundry/constellation-routing-sim/internal/config"
	"github.com/signalsfoundry/constellation-routing-sim/internal/logging"
	"github.com/signalsfoundry/constellation-routing-sim/internal/observability"
	"github.com/signalsfoundry/constellation-routing-sim/internal/results"
	"github.com/signalsfoundry/constellation-routing-sim/internal/results/sqlite"
	"github.com/signalsfoundry/constellation-routing-sim/kb"
	"github.com/signalsfoundry/constellation-routing-sim/model"
	"github.com/signalsfoundry/constellation-routing-sim/routing"
)

// Config holds the command-line settings of a sweep.
type Config struct {
	Scenarios         []string
	Routers           []string
	Seed              int64
	Parallel          int
	ConstellationPath string
	OutputDir         string
	DBPath            string
	MetricsAddress    string
	// DurationSec overrides the preset duration when positive.
	DurationSec float64
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
		log.Error(ctx, "sweep failed", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string) (Config, error) {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	var cfg Config
	scenarios := fs.String("scenarios", strings.Join(config.PresetNames(), ","), "comma-separated scenario presets")
	routers := fs.String("routers", strings.Join([]string{routing.NameBaseline, routing.NameRandom, routing.NamePersistent}, ","), "comma-separated routing policies")
	fs.Int64Var(&cfg.Seed, "seed", routing.DefaultRandomSeed, "seed for the random router")
	fs.IntVar(&cfg.Parallel, "parallel", 0, "maximum concurrent simulations; 0 uses GOMAXPROCS")
	fs.StringVar(&cfg.ConstellationPath, "constellation", config.DefaultConstellationPath, "YAML constellation file")
	fs.StringVar(&cfg.OutputDir, "output-dir", "outputs", "directory for JSON results files")
	fs.StringVar(&cfg.DBPath, "db", "", "optional SQLite database that also receives every run record")
	fs.StringVar(&cfg.MetricsAddress, "metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables")
	fs.Float64Var(&cfg.DurationSec, "duration", 0, "override the preset duration in seconds")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Scenarios = splitList(*scenarios)
	cfg.Routers = splitList(*routers)
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(ctx context.Context, cfg Config, log logging.Logger, stdout io.Writer) error {
	if len(cfg.Scenarios) == 0 || len(cfg.Routers) == 0 {
		return errors.New("at least one scenario and one router are required")
	}
	constellation, err := config.LoadConstellation(cfg.ConstellationPath)
	if err != nil {
		return err
	}
	tracing := observability.TracingConfigFromEnv()
	tracing.Command = "sweep"
	tracing.Attributes = observability.ConstellationAttributes(constellation)
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		return fmt.Errorf("initialise tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
	scenarios := make([]model.ScenarioConfig, 0, len(cfg.Scenarios))
	for _, name := range cfg.Scenarios {
		s, err := config.Preset(name)
		if err != nil {
			return err
		}
		if cfg.DurationSec > 0 {
			s.DurationSec = cfg.DurationSec
		}
		scenarios = append(scenarios, s)
	}
	for _, r := range cfg.Routers {
		if _, err := routing.New(r, cfg.Seed); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	simMetrics, err := observability.NewSimCollector(reg)
	if err != nil {
		return fmt.Errorf("initialise metrics collector: %w", err)
	}
	jobStats, err := observability.NewBatchCollector(reg)
	if err != nil {
		return fmt.Errorf("initialise batch collector: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, reg, log)
	defer func() {
		if metricsSrv == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	sinks := []results.Sink{results.JSONDir(cfg.OutputDir)}
	if cfg.DBPath != "" {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	store := kb.NewKnowledgeBase()
	persist := newPersister(ctx, sinks, log)
	unsubscribe := store.Subscribe(persist.handle)
	defer unsubscribe()

	runner := &batch.Runner{
		Constellation: constellation,
		Parallelism:   cfg.Parallel,
		Logger:        log,
		KB:            store,
		Metrics:       simMetrics,
		JobsStats:     jobStats,
	}
	jobs := batch.Matrix(scenarios, model.TrafficConfig{}, cfg.Routers, cfg.Seed)
	log.Info(ctx, "sweep starting",
		logging.Int("jobs", len(jobs)),
		logging.Int("parallel", cfg.Parallel),
	)
	start := time.Now()
	recs, err := runner.Run(ctx, jobs)
	if err != nil {
		return err
	}
	if err := persist.err(); err != nil {
		return err
	}
	log.Info(ctx, "sweep finished",
		logging.Int("jobs", len(recs)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return writeComparison(stdout, store, cfg.Scenarios, recs)
}

// persister saves every run published to the knowledge base and keeps the
// first failure for the caller.
type persister struct {
	ctx   context.Context
	sinks []results.Sink
	log   logging.Logger

	mu    sync.Mutex
	first error
}

func newPersister(ctx context.Context, sinks []results.Sink, log logging.Logger) *persister {
	return &persister{ctx: ctx, sinks: sinks, log: log}
}

func (p *persister) handle(ev kb.Event) {
	if ev.Type != kb.EventRunAdded {
		return
	}
	for _, sink := range p.sinks {
		if err := sink.Save(p.ctx, ev.Run); err != nil {
			p.log.Error(p.ctx, "failed to persist run",
				logging.String("run_id", ev.Run.RunID),
				logging.Err(err),
			)
			p.mu.Lock()
			if p.first == nil {
				p.first = fmt.Errorf("persist run %s: %w", ev.Run.RunID, err)
			}
			p.mu.Unlock()
		}
	}
}

func (p *persister) err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.first
}

func writeComparison(w io.Writer, store *kb.KnowledgeBase, scenarios []string, recs []results.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tROUTER\tSENT\tDELIVERED\tRATE\tMEAN\tP95\t")
	for _, rec := range recs {
		m := rec.Metrics
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f%%\t%.2f\t%.2f\t\n",
			rec.Scenario, rec.Router, m.TotalSent, m.TotalDelivered, m.DeliveryRate*100, m.LatencyMean, m.LatencyP95)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	for _, s := range scenarios {
		if best, ok := store.BestRun(s); ok {
			fmt.Fprintf(w, "Best router for %s: %s (%.2f%% delivered)\n", s, best.Router, best.Metrics.DeliveryRate*100)
		}
	}
	return nil
}

func serveMetrics(addr string, gatherer prometheus.Gatherer, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

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
