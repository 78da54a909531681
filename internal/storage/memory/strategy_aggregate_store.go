package memory

import (
	"context"
	"sort"
	"sync"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// StrategyAggregateStore is an in-memory implementation of storage.StrategyAggregateStore.
type StrategyAggregateStore struct {
	mu   sync.RWMutex
	data map[aggregateKey]*domain.StrategyAggregate
}

type aggregateKey struct {
	runID    string
	strategy string
}

// NewStrategyAggregateStore creates a new in-memory strategy aggregate store.
func NewStrategyAggregateStore() *StrategyAggregateStore {
	return &StrategyAggregateStore{
		data: make(map[aggregateKey]*domain.StrategyAggregate),
	}
}

// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
func (s *StrategyAggregateStore) InsertBulk(_ context.Context, aggregates []*domain.StrategyAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[aggregateKey]struct{}, len(aggregates))
	for _, a := range aggregates {
		if a == nil || a.RunID == "" || a.Strategy == "" {
			return storage.ErrInvalidInput
		}
		key := aggregateKey{a.RunID, a.Strategy}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, a := range aggregates {
		aggCopy := *a
		s.data[aggregateKey{a.RunID, a.Strategy}] = &aggCopy
	}
	return nil
}

// GetByKey retrieves one aggregate. Returns ErrNotFound if not exists.
func (s *StrategyAggregateStore) GetByKey(_ context.Context, runID, strategy string) (*domain.StrategyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[aggregateKey{runID, strategy}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	aggCopy := *a
	return &aggCopy, nil
}

// GetByRun retrieves all aggregates for a run, ordered by rank ASC.
func (s *StrategyAggregateStore) GetByRun(_ context.Context, runID string) ([]*domain.StrategyAggregate, error) {
	result := s.filter(func(a *domain.StrategyAggregate) bool { return a.RunID == runID })
	sort.Slice(result, func(i, j int) bool {
		if result[i].Rank != result[j].Rank {
			return result[i].Rank < result[j].Rank
		}
		return result[i].Strategy < result[j].Strategy
	})
	return result, nil
}

// GetByStrategy retrieves the aggregates of a strategy, ordered by run_id ASC.
func (s *StrategyAggregateStore) GetByStrategy(_ context.Context, strategy string) ([]*domain.StrategyAggregate, error) {
	result := s.filter(func(a *domain.StrategyAggregate) bool { return a.Strategy == strategy })
	sort.Slice(result, func(i, j int) bool { return result[i].RunID < result[j].RunID })
	return result, nil
}

func (s *StrategyAggregateStore) filter(keep func(*domain.StrategyAggregate) bool) []*domain.StrategyAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StrategyAggregate
	for _, a := range s.data {
		if keep(a) {
			aggCopy := *a
			result = append(result, &aggCopy)
		}
	}
	return result
}

var _ storage.StrategyAggregateStore = (*StrategyAggregateStore)(nil)
