package storage

import (
	"context"
	"errors"
	"time"

	"ekon-lab/internal/domain"
)

// QueryRecorder receives the duration and outcome of every store call.
// *observability.Metrics implements it.
type QueryRecorder interface {
	RecordDBQuery(database, operation string, d time.Duration, err error)
}

// Instrument wraps every non-nil store of s so that each call is reported
// to rec under the database label. ErrNotFound is not counted as an error.
func Instrument(s Stores, database string, rec QueryRecorder) Stores {
	if rec == nil {
		return s
	}
	o := observer{database: database, rec: rec}
	if s.Runs != nil {
		s.Runs = &instrumentedRuns{next: s.Runs, o: o}
	}
	if s.Replicas != nil {
		s.Replicas = &instrumentedReplicas{next: s.Replicas, o: o}
	}
	if s.Aggregates != nil {
		s.Aggregates = &instrumentedAggregates{next: s.Aggregates, o: o}
	}
	if s.AgentMetrics != nil {
		s.AgentMetrics = &instrumentedAgentMetrics{next: s.AgentMetrics, o: o}
	}
	return s
}

// Stores groups the benchmark stores. Nil members are not used.
type Stores struct {
	Runs         BenchmarkRunStore
	Replicas     ReplicaResultStore
	Aggregates   StrategyAggregateStore
	AgentMetrics AgentMetricStore
}

type observer struct {
	database string
	rec      QueryRecorder
}

func (o observer) done(operation string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	o.rec.RecordDBQuery(o.database, operation, time.Since(start), err)
}

type instrumentedRuns struct {
	next BenchmarkRunStore
	o    observer
}

func (s *instrumentedRuns) Insert(ctx context.Context, r *domain.BenchmarkRun) error {
	start := time.Now()
	err := s.next.Insert(ctx, r)
	s.o.done("runs_insert", start, err)
	return err
}

func (s *instrumentedRuns) GetByID(ctx context.Context, runID string) (*domain.BenchmarkRun, error) {
	start := time.Now()
	r, err := s.next.GetByID(ctx, runID)
	s.o.done("runs_get", start, err)
	return r, err
}

func (s *instrumentedRuns) List(ctx context.Context) ([]*domain.BenchmarkRun, error) {
	start := time.Now()
	runs, err := s.next.List(ctx)
	s.o.done("runs_list", start, err)
	return runs, err
}

type instrumentedReplicas struct {
	next ReplicaResultStore
	o    observer
}

func (s *instrumentedReplicas) InsertBulk(ctx context.Context, results []*domain.ReplicaResult) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, results)
	s.o.done("replicas_insert", start, err)
	return err
}

func (s *instrumentedReplicas) GetByRun(ctx context.Context, runID string) ([]*domain.ReplicaResult, error) {
	start := time.Now()
	results, err := s.next.GetByRun(ctx, runID)
	s.o.done("replicas_get", start, err)
	return results, err
}

type instrumentedAggregates struct {
	next StrategyAggregateStore
	o    observer
}

func (s *instrumentedAggregates) InsertBulk(ctx context.Context, aggregates []*domain.StrategyAggregate) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, aggregates)
	s.o.done("aggregates_insert", start, err)
	return err
}

func (s *instrumentedAggregates) GetByKey(ctx context.Context, runID, strategy string) (*domain.StrategyAggregate, error) {
	start := time.Now()
	agg, err := s.next.GetByKey(ctx, runID, strategy)
	s.o.done("aggregates_get", start, err)
	return agg, err
}

func (s *instrumentedAggregates) GetByRun(ctx context.Context, runID string) ([]*domain.StrategyAggregate, error) {
	start := time.Now()
	aggs, err := s.next.GetByRun(ctx, runID)
	s.o.done("aggregates_by_run", start, err)
	return aggs, err
}

func (s *instrumentedAggregates) GetByStrategy(ctx context.Context, strategy string) ([]*domain.StrategyAggregate, error) {
	start := time.Now()
	aggs, err := s.next.GetByStrategy(ctx, strategy)
	s.o.done("aggregates_by_strategy", start, err)
	return aggs, err
}

type instrumentedAgentMetrics struct {
	next AgentMetricStore
	o    observer
}

func (s *instrumentedAgentMetrics) InsertBulk(ctx context.Context, rows []*domain.AgentReplicaMetric) error {
	start := time.Now()
	err := s.next.InsertBulk(ctx, rows)
	s.o.done("agent_metrics_insert", start, err)
	return err
}

func (s *instrumentedAgentMetrics) GetByStrategy(ctx context.Context, runID, strategy string) ([]*domain.AgentReplicaMetric, error) {
	start := time.Now()
	rows, err := s.next.GetByStrategy(ctx, runID, strategy)
	s.o.done("agent_metrics_get", start, err)
	return rows, err
}
