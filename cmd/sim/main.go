// Command sim plays a single replica, optionally recording every round to a
// zstd-compressed frame file for cmd/replay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"ekon-lab/internal/app"
	"ekon-lab/internal/benchmark"
	"ekon-lab/internal/engine"
	"ekon-lab/internal/idhash"
	"ekon-lab/internal/metrics"
	"ekon-lab/internal/observer"
	"ekon-lab/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to the preset)")
	preset := flag.String("preset", "classic", "Base preset: classic or benchmark")
	only := flag.String("only", "", "Comma-separated subset of configured strategies")
	replica := flag.Int("replica", 0, "Replica index whose seed is derived from the run seed")
	replicaSeed := flag.Uint64("replica-seed", 0, "Use this replica seed directly")
	rounds := flag.Int("rounds", 0, "Override rounds")
	record := flag.String("record", "", "Write round frames to this .jsonl.zst file")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath, *preset)
	if err != nil {
		fatalf("load config: %v", err)
	}
	seed := idhash.ReplicaSeed(cfg.Seed, *replica)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rounds":
			cfg.Rounds = *rounds
		case "replica-seed":
			seed = *replicaSeed
		}
	})
	if cfg, err = cfg.Only(app.SplitList(*only)); err != nil {
		fatalf("select strategies: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}

	logger, err := app.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fatalf("build logger: %v", err)
	}

	factories, err := strategy.FromNames(cfg.Strategies)
	if err != nil {
		fatalf("resolve strategies: %v", err)
	}

	observers := []engine.Observer{observer.NewLogger(logger)}
	var rec *observer.Recorder
	if *record != "" {
		if rec, err = observer.CreateRecorder(*record); err != nil {
			fatalf("create recorder: %v", err)
		}
		observers = append(observers, rec)
	}

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	sim, err := benchmark.NewSimulation(cfg, factories, seed, engine.Options{
		Observer: observer.NewMulti(observers...),
		Logger:   logger,
	})
	if err != nil {
		fatalf("build simulation: %v", err)
	}

	logger.Info("simulation started", "seed", seed, "rounds", cfg.Rounds, "strategies", cfg.Strategies)
	out, runErr := sim.Run(ctx)
	if rec != nil {
		if err := rec.Close(); err != nil {
			logger.Error("close recorder", "error", err)
		} else {
			logger.Info("recording written", "path", *record, "frames", rec.Frames())
		}
	}
	if runErr != nil {
		fatalf("run simulation: %v", runErr)
	}

	agents, winner := metrics.ComputeReplica(out.Agents, out.StartingCoin, out.TotalRounds)
	fmt.Printf("seed %d: %d/%d rounds", seed, out.Rounds, out.TotalRounds)
	if out.StopReason != engine.StopNone {
		fmt.Printf(" (stopped: %s)", out.StopReason)
	}
	fmt.Printf(", winner %s\n\n", winner)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tFINAL COIN\tPROFIT/ROUND\tMS/ROUND\tEFFICIENCY\tFAILURES")
	for _, a := range out.Agents {
		m := agents[a.Name]
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.4f\t%.2f\t%d\n",
			a.Name, m.FinalCoin, m.ProfitPerRound, m.TimePerRoundMs, m.Efficiency, m.Failures)
	}
	w.Flush()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
