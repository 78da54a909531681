// Package benchmark runs many independent replicas of the simulation in
// parallel and aggregates per-strategy metrics across them.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ekon-lab/internal/agent"
	"ekon-lab/internal/config"
	"ekon-lab/internal/domain"
	"ekon-lab/internal/engine"
	"ekon-lab/internal/idhash"
	"ekon-lab/internal/metrics"
	"ekon-lab/internal/observability"
	"ekon-lab/internal/strategy"
	"ekon-lab/internal/world"
)

// ErrReplicaPanic wraps a panic raised outside the engine's own recovery.
var ErrReplicaPanic = errors.New("replica panicked")

// Options configures a Runner.
type Options struct {
	Config config.Config

	// Factories overrides the registry lookup of Config.Strategies.
	Factories []strategy.Factory

	// RunID defaults to a random UUID.
	RunID string

	// Observer optionally builds one observer per replica.
	Observer func(index int, seed uint64) engine.Observer

	// Clock optionally builds one decision clock per replica.
	Clock func() agent.Clock

	Logger  *slog.Logger // defaults to a discard logger
	Metrics *observability.Metrics
}

// Runner executes a benchmark. Run may be called once; Stop from any goroutine.
type Runner struct {
	cfg       config.Config
	factories []strategy.Factory
	names     []string
	runID     string
	observer  func(int, uint64) engine.Observer
	clock     func() agent.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	stopped atomic.Bool
	ran     atomic.Bool
}

// NewRunner validates the configuration and resolves strategy factories.
func NewRunner(opts Options) (*Runner, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factories := opts.Factories
	if factories == nil {
		var err error
		factories, err = strategy.FromNames(cfg.Strategies)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
	}
	if len(factories) == 0 {
		return nil, fmt.Errorf("%w: no strategies", config.ErrInvalidConfig)
	}

	// Instantiate once to check the names the engine will see.
	names := make([]string, len(factories))
	seen := make(map[string]struct{}, len(factories))
	for i, f := range factories {
		if f == nil {
			return nil, fmt.Errorf("%w: strategy factory %d is nil", config.ErrInvalidConfig, i)
		}
		name := f().Name()
		if name == "" {
			return nil, fmt.Errorf("%w: strategy %d has no name", config.ErrInvalidConfig, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate strategy name %q", config.ErrInvalidConfig, name)
		}
		seen[name] = struct{}{}
		names[i] = name
	}

	r := &Runner{
		cfg:       cfg,
		factories: factories,
		names:     names,
		runID:     opts.RunID,
		observer:  opts.Observer,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r, nil
}

// RunID returns the identifier of this benchmark run.
func (r *Runner) RunID() string {
	return r.runID
}

// Stop prevents further replicas from starting. In-flight replicas finish.
func (r *Runner) Stop() {
	r.stopped.Store(true)
}

// Run executes every replica with at most Config.Workers in flight.
// Cancelling ctx has the same effect as Stop. Failed replicas are reported
// in Report.Failures and excluded from aggregation.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if !r.ran.CompareAndSwap(false, true) {
		return nil, engine.ErrAlreadyRun
	}

	n := r.cfg.Replicas
	started := time.Now()
	results := make([]*domain.ReplicaResult, n)
	failures := make([]*domain.ReplicaFailure, n)
	var skipped atomic.Int64

	r.logger.Info("benchmark started",
		"run_id", r.runID,
		"replicas", n,
		"workers", r.cfg.Workers,
		"strategies", r.names,
		"seed", r.cfg.Seed,
	)

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for i := 0; i < n; i++ {
		if r.halted(ctx) {
			skipped.Add(int64(n - i))
			break
		}
		seed := idhash.ReplicaSeed(r.cfg.Seed, i)
		g.Go(func() error {
			// Stop may have arrived while waiting for a worker slot.
			if r.halted(ctx) {
				skipped.Add(1)
				return nil
			}
			done := r.metrics.WorkerBusy()
			defer done()

			replicaStart := time.Now()
			res, err := r.runReplica(context.WithoutCancel(ctx), i, seed)
			elapsed := time.Since(replicaStart)
			if err != nil {
				failures[i] = &domain.ReplicaFailure{Index: i, Seed: seed, Error: err.Error()}
				r.metrics.RecordReplica(domain.ReplicaStatusFailed, elapsed)
				r.logger.Warn("replica failed", "index", i, "seed", seed, "error", err)
				return nil
			}
			res.Duration = elapsed
			results[i] = res
			r.metrics.RecordReplica(domain.ReplicaStatusCompleted, elapsed)
			r.logger.Debug("replica completed", "index", i, "winner", res.Winner, "duration", elapsed)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	r.metrics.RecordSkipped(int(skipped.Load()))

	rep := r.fold(results, failures, int(skipped.Load()), started, time.Now())
	r.logger.Info("benchmark finished",
		"run_id", r.runID,
		"completed", rep.Run.Completed,
		"failed", rep.Run.Failed,
		"skipped", rep.Run.Skipped,
		"elapsed", rep.Elapsed,
	)
	return rep, nil
}

func (r *Runner) halted(ctx context.Context) bool {
	return r.stopped.Load() || ctx.Err() != nil
}

// runReplica plays one replica to completion. ctx is never cancelled by the
// harness so an in-flight replica always finishes.
func (r *Runner) runReplica(ctx context.Context, index int, seed uint64) (res *domain.ReplicaResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = fmt.Errorf("%w: %v\n%s", ErrReplicaPanic, p, debug.Stack())
		}
	}()

	opts := engine.Options{
		Logger:  r.logger.With("replica", index),
		Metrics: r.metrics,
	}
	if r.observer != nil {
		opts.Observer = r.observer(index, seed)
	}
	if r.clock != nil {
		opts.Clock = r.clock()
	}

	sim, err := NewSimulation(r.cfg, r.factories, seed, opts)
	if err != nil {
		return nil, err
	}
	out, err := sim.Run(ctx)
	if err != nil {
		return nil, err
	}

	agents, winner := metrics.ComputeReplica(out.Agents, out.StartingCoin, out.TotalRounds)
	return &domain.ReplicaResult{
		RunID:     r.runID,
		ReplicaID: idhash.ComputeReplicaID(r.runID, index, seed),
		Index:     index,
		Seed:      seed,
		Rounds:    out.Rounds,
		Winner:    winner,
		Agents:    agents,
	}, nil
}

// NewSimulation builds the replica of cfg identified by seed. The world,
// placement and every random draw depend only on seed, so a replica of a
// benchmark can be re-run on its own. World, Strategies, Rand, Rounds and
// StartingCoin in opts are overwritten.
func NewSimulation(cfg config.Config, factories []strategy.Factory, seed uint64, opts engine.Options) (*engine.Simulation, error) {
	rng := rand.New(rand.NewPCG(seed, ^seed))
	w, err := world.Generate(cfg.World, rng)
	if err != nil {
		return nil, fmt.Errorf("generate world: %w", err)
	}

	strategies := make([]strategy.Strategy, len(factories))
	for i, f := range factories {
		strategies[i] = f()
	}

	opts.World = w
	opts.Strategies = strategies
	opts.StartingCoin = cfg.StartingCoin
	opts.Rounds = cfg.Rounds
	opts.Rand = rng
	return engine.New(opts)
}

// fold aggregates completed replicas in index order.
func (r *Runner) fold(results []*domain.ReplicaResult, failures []*domain.ReplicaFailure, skipped int, started, finished time.Time) *Report {
	agg := metrics.NewAggregator()
	rep := &Report{
		Config:  r.cfg,
		Elapsed: finished.Sub(started),
	}

	rounds := 0
	for i := range results {
		if res := results[i]; res != nil {
			agg.Add(res)
			rep.Replicas = append(rep.Replicas, res)
			rounds += res.Rounds
		}
		if f := failures[i]; f != nil {
			rep.Failures = append(rep.Failures, *f)
		}
	}

	if agg.Completed() > 0 {
		rep.Aggregates = agg.Aggregates(r.runID)
		rep.Frontier = metrics.ParetoFrontier(rep.Aggregates)
	}
	if secs := rep.Elapsed.Seconds(); secs > 0 {
		rep.ReplicasPerSecond = float64(len(rep.Replicas)) / secs
		rep.RoundsPerSecond = float64(rounds) / secs
	}

	cfgYAML, err := r.cfg.Marshal()
	if err != nil {
		r.logger.Warn("marshal config for report", "error", err)
	}
	rep.Run = domain.BenchmarkRun{
		RunID:      r.runID,
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Seed:       r.cfg.Seed,
		Config:     cfgYAML,
		Requested:  r.cfg.Replicas,
		Completed:  len(rep.Replicas),
		Failed:     len(rep.Failures),
		Skipped:    skipped,
	}
	return rep
}
