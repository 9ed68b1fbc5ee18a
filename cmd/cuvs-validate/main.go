// Command cuvs-validate runs the validation matrix against the built-in
// HNSW reference index. Configuration comes from CUVS_-prefixed
// environment variables, optionally loaded from a .env file.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eltociear/cuvs"
	"github.com/eltociear/cuvs/blobstore"
	"github.com/eltociear/cuvs/distance"
	"github.com/eltociear/cuvs/eval"
	"github.com/eltociear/cuvs/hnsw"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := cuvs.LoadEnvConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := newLogger(cfg)

	store, err := newStore(cfg)
	if err != nil {
		logger.Error("blob store setup failed", "error", err)
		os.Exit(2)
	}

	metrics, cleanup := newMetrics(cfg, logger)
	defer cleanup()

	runner, err := cuvs.NewRunner(hnsw.Factory(), func(o *cuvs.RunnerOptions) {
		o.Store = store
		o.Logger = logger
		o.Metrics = metrics
		o.Parallelism = cfg.Parallelism
		o.Tolerances = eval.Tolerances{
			Recall:      cfg.RecallTolerance,
			Consistency: cfg.ConsistencyTolerance,
		}
	})
	if err != nil {
		logger.Error("runner setup failed", "error", err)
		os.Exit(2)
	}

	matrix := cuvs.Matrix{
		Seeds:          []uint64{cfg.Seed},
		Rows:           []int{cfg.Rows},
		Dims:           []int{cfg.Dim},
		Queries:        []int{cfg.Queries},
		Ks:             []int{cfg.K},
		Metrics:        []distance.Metric{distance.MetricSquaredL2},
		AddDataOnBuild: []bool{true, false},
		ITopKs:         []int{8 * cfg.K},
		MinRecall:      cfg.MinRecall,
		Exact:          true,
	}
	configs := matrix.Configs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting validation run",
		"configurations", len(configs),
		"rows", cfg.Rows,
		"dim", cfg.Dim,
		"k", cfg.K,
		"min_recall", cfg.MinRecall,
	)

	report, err := runner.Run(ctx, configs)
	if err != nil {
		logger.Error("run aborted", "error", err)
		os.Exit(1)
	}

	failed := report.Failed()
	logger.Info("validation run finished",
		"configurations", len(report.Outcomes),
		"failed", len(failed),
	)
	for _, outcome := range failed {
		logger.Error("failed configuration",
			"config", outcome.Config.Name,
			"status", outcome.Status.String(),
			"error", outcome.Err,
		)
	}
	if len(failed) > 0 {
		os.Exit(1)
	}
}

func newLogger(cfg *cuvs.EnvConfig) *cuvs.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if cfg.LogFormat == "json" {
		return cuvs.NewJSONLogger(level)
	}
	return cuvs.NewTextLogger(level)
}

func newStore(cfg *cuvs.EnvConfig) (blobstore.Store, error) {
	if cfg.DataDir != "" {
		return blobstore.NewLocalStore(cfg.DataDir)
	}
	return blobstore.NewMemoryStore(), nil
}

// newMetrics wires a Prometheus collector when a listen address is
// configured, falling back to a no-op collector otherwise.
func newMetrics(cfg *cuvs.EnvConfig, logger *cuvs.Logger) (cuvs.MetricsCollector, func()) {
	if cfg.MetricsAddr == "" {
		return cuvs.NoopMetricsCollector{}, func() {}
	}

	reg := prometheus.NewRegistry()
	collector := cuvs.NewPrometheusCollector(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return collector, func() { _ = srv.Close() }
}
