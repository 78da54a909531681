package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// BenchmarkRunStore is an in-memory implementation of storage.BenchmarkRunStore.
type BenchmarkRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BenchmarkRun
}

// NewBenchmarkRunStore creates a new in-memory benchmark run store.
func NewBenchmarkRunStore() *BenchmarkRunStore {
	return &BenchmarkRunStore{
		data: make(map[string]*domain.BenchmarkRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *BenchmarkRunStore) Insert(_ context.Context, r *domain.BenchmarkRun) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[r.RunID] = copyRun(r)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BenchmarkRunStore) GetByID(_ context.Context, runID string) (*domain.BenchmarkRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRun(r), nil
}

// List retrieves all runs, ordered by started_at ASC, run_id ASC.
func (s *BenchmarkRunStore) List(_ context.Context) ([]*domain.BenchmarkRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BenchmarkRun, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyRun(r))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.Before(result[j].StartedAt)
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

func copyRun(r *domain.BenchmarkRun) *domain.BenchmarkRun {
	c := *r
	c.Config = slices.Clone(r.Config)
	return &c
}

var _ storage.BenchmarkRunStore = (*BenchmarkRunStore)(nil)
