package benchmark

import (
	"context"
	"fmt"
	"time"

	"ekon-lab/internal/config"
	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// Report is the outcome of a benchmark run.
type Report struct {
	Run        domain.BenchmarkRun
	Config     config.Config
	Replicas   []*domain.ReplicaResult     // completed, in index order
	Failures   []domain.ReplicaFailure     // in index order
	Aggregates []*domain.StrategyAggregate // in rank order
	Frontier   []string                    // Pareto-optimal strategies, sorted

	Elapsed           time.Duration
	ReplicasPerSecond float64
	RoundsPerSecond   float64
}

// Aggregate returns the aggregate for strategy, or nil.
func (r *Report) Aggregate(strategy string) *domain.StrategyAggregate {
	for _, a := range r.Aggregates {
		if a.Strategy == strategy {
			return a
		}
	}
	return nil
}

// Stores are the destinations Persist writes to. Nil members are skipped.
type Stores = storage.Stores

// Persist writes the report. The run row goes first since replica rows reference it.
func Persist(ctx context.Context, rep *Report, stores Stores) error {
	if rep == nil {
		return storage.ErrInvalidInput
	}

	if stores.Runs != nil {
		if err := stores.Runs.Insert(ctx, &rep.Run); err != nil {
			return fmt.Errorf("persist run: %w", err)
		}
	}

	if stores.Replicas != nil && len(rep.Replicas) > 0 {
		if err := stores.Replicas.InsertBulk(ctx, rep.Replicas); err != nil {
			return fmt.Errorf("persist replica results: %w", err)
		}
	}

	if stores.Aggregates != nil && len(rep.Aggregates) > 0 {
		if err := stores.Aggregates.InsertBulk(ctx, rep.Aggregates); err != nil {
			return fmt.Errorf("persist strategy aggregates: %w", err)
		}
	}

	if stores.AgentMetrics != nil && len(rep.Replicas) > 0 {
		var rows []*domain.AgentReplicaMetric
		for _, res := range rep.Replicas {
			rows = append(rows, res.AgentRows()...)
		}
		if err := stores.AgentMetrics.InsertBulk(ctx, rows); err != nil {
			return fmt.Errorf("persist agent metrics: %w", err)
		}
	}

	return nil
}
