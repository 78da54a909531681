package storage

import (
	"context"

	"ekon-lab/internal/domain"
)

// BenchmarkRunStore provides access to benchmark_runs storage.
type BenchmarkRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BenchmarkRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BenchmarkRun, error)

	// List retrieves all runs, ordered by started_at ASC, run_id ASC.
	List(ctx context.Context) ([]*domain.BenchmarkRun, error)
}

// ReplicaResultStore provides access to replica_results storage.
type ReplicaResultStore interface {
	// InsertBulk adds multiple results atomically. Fails entire batch on
	// duplicate (run_id, replica_index).
	InsertBulk(ctx context.Context, results []*domain.ReplicaResult) error

	// GetByRun retrieves all results for a run, ordered by replica index ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.ReplicaResult, error)
}

// StrategyAggregateStore provides access to strategy_aggregates storage.
type StrategyAggregateStore interface {
	// InsertBulk adds multiple aggregates atomically. Fails entire batch on
	// duplicate (run_id, strategy).
	InsertBulk(ctx context.Context, aggregates []*domain.StrategyAggregate) error

	// GetByKey retrieves one aggregate. Returns ErrNotFound if not exists.
	GetByKey(ctx context.Context, runID, strategy string) (*domain.StrategyAggregate, error)

	// GetByRun retrieves all aggregates for a run, ordered by rank ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.StrategyAggregate, error)

	// GetByStrategy retrieves the aggregates of a strategy across runs, ordered by run_id ASC.
	GetByStrategy(ctx context.Context, strategy string) ([]*domain.StrategyAggregate, error)
}

// AgentMetricStore provides access to agent_replica_metrics storage.
type AgentMetricStore interface {
	// InsertBulk adds multiple rows atomically. Fails entire batch on
	// duplicate (run_id, replica_index, strategy).
	InsertBulk(ctx context.Context, rows []*domain.AgentReplicaMetric) error

	// GetByStrategy retrieves a strategy's rows for a run, ordered by replica index ASC.
	GetByStrategy(ctx context.Context, runID, strategy string) ([]*domain.AgentReplicaMetric, error)
}
