// Command benchmark runs many seeded replicas of the market simulation and
// reports per-strategy efficiency, win rate and the Pareto frontier.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ekon-lab/internal/app"
	"ekon-lab/internal/benchmark"
	"ekon-lab/internal/domain"
	"ekon-lab/internal/observability"
	"ekon-lab/internal/reporting"
)

func main() {
	_ = app.LoadEnvFile(".env")

	configPath := flag.String("config", "", "YAML config file (defaults to the preset)")
	preset := flag.String("preset", "benchmark", "Base preset: benchmark or classic")
	only := flag.String("only", "", "Comma-separated subset of configured strategies")
	replicas := flag.Int("replicas", 0, "Override replica count")
	workers := flag.Int("workers", 0, "Override worker count")
	rounds := flag.Int("rounds", 0, "Override rounds per replica")
	seed := flag.Uint64("seed", 0, "Override run seed")
	persist := flag.Bool("persist", false, "Write results to the configured stores")
	outputDir := flag.String("output-dir", "", "Write BENCHMARK_REPORT.md and CSVs here instead of printing Markdown")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath, *preset)
	if err != nil {
		fatal(nil, "load config", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "replicas":
			cfg.Replicas = *replicas
		case "workers":
			cfg.Workers = *workers
		case "rounds":
			cfg.Rounds = *rounds
		case "seed":
			cfg.Seed = *seed
		}
	})
	if cfg, err = cfg.Only(app.SplitList(*only)); err != nil {
		fatal(nil, "select strategies", err)
	}

	logger, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fatal(nil, "build logger", err)
	}

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("", reg)
	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: observability.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	runner, err := benchmark.NewRunner(benchmark.Options{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		fatal(logger, "create runner", err)
	}

	rep, err := runner.Run(ctx)
	if err != nil {
		fatal(logger, "run benchmark", err)
	}
	logger.Info("benchmark finished",
		"run_id", rep.Run.RunID,
		"completed", rep.Run.Completed,
		"failed", rep.Run.Failed,
		"skipped", rep.Run.Skipped,
		"elapsed", rep.Elapsed,
		"replicas_per_sec", rep.ReplicasPerSecond,
		"rounds_per_sec", rep.RoundsPerSecond,
	)

	if *persist {
		// Persist even after a signal; the run itself is already over.
		pctx, pcancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
		stores, cleanup, err := app.OpenStores(pctx, cfg.Storage, metrics)
		if err != nil {
			pcancel()
			fatal(logger, "open stores", err)
		}
		err = benchmark.Persist(pctx, rep, stores)
		cleanup()
		pcancel()
		if err != nil {
			fatal(logger, "persist results", err)
		}
		logger.Info("results persisted", "run_id", rep.Run.RunID)
	}

	report := reporting.FromBenchmark(rep, time.Now().UTC())
	if *outputDir == "" {
		fmt.Print(reporting.RenderMarkdown(report))
		return
	}
	if err := writeOutputs(*outputDir, report, rep.Replicas); err != nil {
		fatal(logger, "write report", err)
	}
	fmt.Printf("Benchmark report written to %s\n", *outputDir)
}

func writeOutputs(dir string, report *reporting.Report, replicas []*domain.ReplicaResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var rows []*domain.AgentReplicaMetric
	for _, res := range replicas {
		rows = append(rows, res.AgentRows()...)
	}

	files := map[string]string{
		"BENCHMARK_REPORT.md":  reporting.RenderMarkdown(report),
		"STRATEGY_METRICS.csv": reporting.RenderCSV(report.StrategyMetrics),
		"AGENT_METRICS.csv":    reporting.RenderAgentRowsCSV(rows),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func fatal(logger *slog.Logger, msg string, err error) {
	if logger == nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		logger.Error(msg, "error", err)
	}
	os.Exit(1)
}
