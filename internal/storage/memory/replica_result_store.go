package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// ReplicaResultStore is an in-memory implementation of storage.ReplicaResultStore.
type ReplicaResultStore struct {
	mu   sync.RWMutex
	data map[string]map[int]*domain.ReplicaResult // run_id -> replica index
}

// NewReplicaResultStore creates a new in-memory replica result store.
func NewReplicaResultStore() *ReplicaResultStore {
	return &ReplicaResultStore{
		data: make(map[string]map[int]*domain.ReplicaResult),
	}
}

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *ReplicaResultStore) InsertBulk(_ context.Context, results []*domain.ReplicaResult) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct {
		runID string
		index int
	}
	batchKeys := make(map[key]struct{}, len(results))
	for _, r := range results {
		if r == nil || r.RunID == "" || r.Index < 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.RunID][r.Index]; exists {
			return storage.ErrDuplicateKey
		}
		k := key{r.RunID, r.Index}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, r := range results {
		byIndex, ok := s.data[r.RunID]
		if !ok {
			byIndex = make(map[int]*domain.ReplicaResult)
			s.data[r.RunID] = byIndex
		}
		byIndex[r.Index] = copyReplica(r)
	}
	return nil
}

// GetByRun retrieves all results for a run, ordered by replica index ASC.
func (s *ReplicaResultStore) GetByRun(_ context.Context, runID string) ([]*domain.ReplicaResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byIndex := s.data[runID]
	result := make([]*domain.ReplicaResult, 0, len(byIndex))
	for _, r := range byIndex {
		result = append(result, copyReplica(r))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

func copyReplica(r *domain.ReplicaResult) *domain.ReplicaResult {
	c := *r
	c.Agents = maps.Clone(r.Agents)
	return &c
}

var _ storage.ReplicaResultStore = (*ReplicaResultStore)(nil)
