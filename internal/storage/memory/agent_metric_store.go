package memory

import (
	"context"
	"sort"
	"sync"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// AgentMetricStore is an in-memory implementation of storage.AgentMetricStore.
type AgentMetricStore struct {
	mu   sync.RWMutex
	data map[agentMetricKey]*domain.AgentReplicaMetric
}

type agentMetricKey struct {
	runID    string
	index    int
	strategy string
}

// NewAgentMetricStore creates a new in-memory agent metric store.
func NewAgentMetricStore() *AgentMetricStore {
	return &AgentMetricStore{
		data: make(map[agentMetricKey]*domain.AgentReplicaMetric),
	}
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *AgentMetricStore) InsertBulk(_ context.Context, rows []*domain.AgentReplicaMetric) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[agentMetricKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.RunID == "" || r.Strategy == "" {
			return storage.ErrInvalidInput
		}
		key := agentMetricKey{r.RunID, r.ReplicaIndex, r.Strategy}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		rowCopy := *r
		s.data[agentMetricKey{r.RunID, r.ReplicaIndex, r.Strategy}] = &rowCopy
	}
	return nil
}

// GetByStrategy retrieves a strategy's rows for a run, ordered by replica index ASC.
func (s *AgentMetricStore) GetByStrategy(_ context.Context, runID, strategy string) ([]*domain.AgentReplicaMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AgentReplicaMetric
	for key, r := range s.data {
		if key.runID == runID && key.strategy == strategy {
			rowCopy := *r
			result = append(result, &rowCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ReplicaIndex < result[j].ReplicaIndex })
	return result, nil
}

var _ storage.AgentMetricStore = (*AgentMetricStore)(nil)
