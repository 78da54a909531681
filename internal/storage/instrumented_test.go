package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
	"ekon-lab/internal/storage/memory"
)

type recordedQuery struct {
	database  string
	operation string
	failed    bool
}

type fakeRecorder struct {
	mu      sync.Mutex
	queries []recordedQuery
}

func (r *fakeRecorder) RecordDBQuery(database, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, recordedQuery{database, operation, err != nil})
}

func TestInstrument_RecordsEveryCall(t *testing.T) {
	rec := &fakeRecorder{}
	stores := storage.Instrument(storage.Stores{
		Runs:       memory.NewBenchmarkRunStore(),
		Aggregates: memory.NewStrategyAggregateStore(),
	}, "memory", rec)
	ctx := context.Background()

	if stores.Replicas != nil || stores.AgentMetrics != nil {
		t.Fatal("nil stores must stay nil")
	}

	run := &domain.BenchmarkRun{RunID: "r1"}
	if err := stores.Runs.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := stores.Runs.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := stores.Runs.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := stores.Aggregates.GetByRun(ctx, "r1"); err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}

	want := []recordedQuery{
		{"memory", "runs_insert", false},
		{"memory", "runs_insert", true},
		{"memory", "runs_get", false},
		{"memory", "aggregates_by_run", false},
	}
	if len(rec.queries) != len(want) {
		t.Fatalf("expected %d queries, got %d: %+v", len(want), len(rec.queries), rec.queries)
	}
	for i, q := range want {
		if rec.queries[i] != q {
			t.Errorf("query %d: expected %+v, got %+v", i, q, rec.queries[i])
		}
	}
}

func TestInstrument_NilRecorder(t *testing.T) {
	runs := memory.NewBenchmarkRunStore()
	stores := storage.Instrument(storage.Stores{Runs: runs}, "memory", nil)
	if stores.Runs != runs {
		t.Error("nil recorder must return stores unchanged")
	}
}
