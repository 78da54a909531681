// Command server runs one replica in live mode: the engine can be paused,
// stepped and stopped over HTTP while rounds stream to WebSocket clients.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ekon-lab/internal/app"
	"ekon-lab/internal/benchmark"
	"ekon-lab/internal/engine"
	"ekon-lab/internal/idhash"
	"ekon-lab/internal/metrics"
	"ekon-lab/internal/observability"
	"ekon-lab/internal/observer"
	"ekon-lab/internal/server"
	"ekon-lab/internal/strategy"
	"ekon-lab/internal/stream"
)

func main() {
	_ = app.LoadEnvFile(".env")

	configPath := flag.String("config", "", "YAML config file (defaults to the preset)")
	preset := flag.String("preset", "classic", "Base preset: classic or benchmark")
	only := flag.String("only", "", "Comma-separated subset of configured strategies")
	replica := flag.Int("replica", 0, "Replica index whose seed is derived from the run seed")
	addr := flag.String("addr", ":"+app.Getenv("PORT", "8080"), "HTTP listen address")
	paused := flag.Bool("paused", true, "Start paused; use POST /api/v1/sim/resume or /step")
	record := flag.String("record", "", "Also write round frames to this .jsonl.zst file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath, *preset)
	if err != nil {
		fatalf("load config: %v", err)
	}
	if cfg, err = cfg.Only(app.SplitList(*only)); err != nil {
		fatalf("select strategies: %v", err)
	}
	logger, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fatalf("build logger: %v", err)
	}
	factories, err := strategy.FromNames(cfg.Strategies)
	if err != nil {
		fatalf("resolve strategies: %v", err)
	}

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("", reg)

	controller := observer.NewController(*paused)
	final := &observer.FinalState{}
	hub := stream.NewHub(logger, m)
	// The controller goes last so a paused round is already published.
	observers := []engine.Observer{final, hub, observer.NewLogger(logger)}

	var rec *observer.Recorder
	if *record != "" {
		if rec, err = observer.CreateRecorder(*record); err != nil {
			fatalf("create recorder: %v", err)
		}
		observers = append(observers, rec)
	}
	observers = append(observers, controller)

	seed := idhash.ReplicaSeed(cfg.Seed, *replica)
	sim, err := benchmark.NewSimulation(cfg, factories, seed, engine.Options{
		Observer: observer.NewMulti(observers...),
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		fatalf("build simulation: %v", err)
	}

	srv := &http.Server{
		Addr: *addr,
		Handler: server.New(server.Options{
			Controller: controller,
			Final:      final,
			Hub:        hub,
			Gatherer:   reg,
			State:      sim.State,
			Logger:     logger,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("ekon-lab server listening", "addr", *addr, "seed", seed, "paused", *paused)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		out, err := sim.Run(ctx)
		if rec != nil {
			if cerr := rec.Close(); cerr != nil {
				logger.Error("close recorder", "error", cerr)
			}
		}
		if err != nil {
			logger.Error("simulation failed", "error", err)
			return
		}
		_, winner := metrics.ComputeReplica(out.Agents, out.StartingCoin, out.TotalRounds)
		logger.Info("simulation finished",
			"rounds", out.Rounds,
			"stop_reason", string(out.StopReason),
			"winner", winner,
		)
	}()

	// Keep serving the final state after the run ends until a signal arrives.
	<-ctx.Done()
	controller.Stop()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down ekon-lab server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	fmt.Println("ekon-lab server stopped")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
