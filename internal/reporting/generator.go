package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ekon-lab/internal/benchmark"
	"ekon-lab/internal/config"
	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runStore       storage.BenchmarkRunStore
	replicaStore   storage.ReplicaResultStore
	aggregateStore storage.StrategyAggregateStore
	now            func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	runStore storage.BenchmarkRunStore,
	replicaStore storage.ReplicaResultStore,
	aggStore storage.StrategyAggregateStore,
) *Generator {
	return &Generator{
		runStore:       runStore,
		replicaStore:   replicaStore,
		aggregateStore: aggStore,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads a stored run and builds its report. Failures are not
// stored, so the report lists none.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	aggs, err := g.aggregateStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load aggregates: %w", err)
	}

	replicas, err := g.replicaStore.GetByRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load replicas: %w", err)
	}

	rounds := 0
	if len(run.Config) > 0 {
		if cfg, err := config.Parse(run.Config, config.PresetBenchmark); err == nil {
			rounds = cfg.Rounds
		}
	}

	r := &Report{
		GeneratedAt:      g.now(),
		RunID:            run.RunID,
		Seed:             run.Seed,
		Rounds:           rounds,
		Summary:          summary(run, replicas),
		StrategyMetrics:  generateStrategyMetrics(aggs),
		Frontier:         frontier(aggs),
		ReplayReferences: generateReplayReferences(replicas),
	}
	return r, nil
}

// FromBenchmark builds a report from an in-memory benchmark result.
func FromBenchmark(rep *benchmark.Report, now time.Time) *Report {
	r := &Report{
		GeneratedAt:      now,
		RunID:            rep.Run.RunID,
		Seed:             rep.Run.Seed,
		Rounds:           rep.Config.Rounds,
		Summary:          summary(&rep.Run, rep.Replicas),
		StrategyMetrics:  generateStrategyMetrics(rep.Aggregates),
		Frontier:         append([]string(nil), rep.Frontier...),
		ReplayReferences: generateReplayReferences(rep.Replicas),
	}
	r.Summary.ReplicasPerSecond = rep.ReplicasPerSecond
	r.Summary.RoundsPerSecond = rep.RoundsPerSecond
	for _, f := range rep.Failures {
		r.Failures = append(r.Failures, FailureRow{ReplicaIndex: f.Index, Seed: f.Seed, Error: f.Error})
	}
	return r
}

func summary(run *domain.BenchmarkRun, replicas []*domain.ReplicaResult) RunSummary {
	s := RunSummary{
		Requested:  run.Requested,
		Completed:  run.Completed,
		Failed:     run.Failed,
		Skipped:    run.Skipped,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if secs := run.FinishedAt.Sub(run.StartedAt).Seconds(); secs > 0 {
		rounds := 0
		for _, res := range replicas {
			rounds += res.Rounds
		}
		s.ReplicasPerSecond = float64(run.Completed) / secs
		s.RoundsPerSecond = float64(rounds) / secs
	}
	return s
}

func generateStrategyMetrics(aggs []*domain.StrategyAggregate) []StrategyMetricRow {
	rows := make([]StrategyMetricRow, 0, len(aggs))
	for _, a := range aggs {
		rows = append(rows, StrategyMetricRow{
			Rank:               a.Rank,
			Strategy:           a.Strategy,
			Replicas:           a.Replicas,
			Wins:               a.Wins,
			WinRate:            a.WinRate,
			MeanFinalCoin:      a.MeanFinalCoin,
			MeanProfitPerRound: a.MeanProfitPerRound,
			MeanTimePerRoundMs: a.MeanTimePerRoundMs,
			MeanEfficiency:     a.MeanEfficiency,
			EfficiencyMedian:   a.EfficiencyMedian,
			EfficiencyP10:      a.EfficiencyP10,
			EfficiencyP90:      a.EfficiencyP90,
			EfficiencyStddev:   a.EfficiencyStddev,
			TotalFailures:      a.TotalFailures,
			ParetoOptimal:      a.ParetoOptimal,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Rank != rows[j].Rank {
			return rows[i].Rank < rows[j].Rank
		}
		return rows[i].Strategy < rows[j].Strategy
	})
	return rows
}

func frontier(aggs []*domain.StrategyAggregate) []string {
	var out []string
	for _, a := range aggs {
		if a.ParetoOptimal {
			out = append(out, a.Strategy)
		}
	}
	sort.Strings(out)
	return out
}

// generateReplayReferences picks each strategy's highest-efficiency replica.
// Ties go to the lower replica index.
func generateReplayReferences(replicas []*domain.ReplicaResult) []ReplayReferenceRow {
	best := make(map[string]ReplayReferenceRow)
	for _, res := range replicas {
		for name, m := range res.Agents {
			cur, ok := best[name]
			if !ok || m.Efficiency > cur.Efficiency ||
				(m.Efficiency == cur.Efficiency && res.Index < cur.ReplicaIndex) {
				best[name] = ReplayReferenceRow{Strategy: name, ReplicaIndex: res.Index, Seed: res.Seed, Efficiency: m.Efficiency}
			}
		}
	}

	rows := make([]ReplayReferenceRow, 0, len(best))
	for _, row := range best {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Strategy < rows[j].Strategy })
	return rows
}
