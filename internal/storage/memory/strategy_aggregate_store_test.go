package memory

import (
	"context"
	"errors"
	"testing"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

func TestStrategyAggregateStore_InsertAndGet(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	aggs := []*domain.StrategyAggregate{
		{RunID: "run-1", Strategy: "greedy_neighbour", Rank: 2, Wins: 4, MeanEfficiency: 12.5},
		{RunID: "run-1", Strategy: "random_walk", Rank: 1, Wins: 6, MeanEfficiency: 20},
	}
	if err := store.InsertBulk(ctx, aggs); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByKey(ctx, "run-1", "greedy_neighbour")
	if err != nil {
		t.Fatalf("GetByKey failed: %v", err)
	}
	if got.MeanEfficiency != 12.5 {
		t.Errorf("MeanEfficiency mismatch: got %f, want %f", got.MeanEfficiency, 12.5)
	}

	byRun, err := store.GetByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(byRun) != 2 || byRun[0].Strategy != "random_walk" {
		t.Errorf("expected rank order, got %+v", byRun)
	}
}

func TestStrategyAggregateStore_DuplicateKey(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	agg := &domain.StrategyAggregate{RunID: "run-1", Strategy: "idle"}
	if err := store.InsertBulk(ctx, []*domain.StrategyAggregate{agg}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.StrategyAggregate{agg})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestStrategyAggregateStore_BulkIsAtomic(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.StrategyAggregate{
		{RunID: "run-1", Strategy: "a"},
		{RunID: "run-1", Strategy: "a"},
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}
	if _, err := store.GetByKey(ctx, "run-1", "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected nothing inserted, got %v", err)
	}

	err = store.InsertBulk(ctx, []*domain.StrategyAggregate{{RunID: "run-1"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestStrategyAggregateStore_GetByStrategy(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	for _, run := range []string{"run-b", "run-a"} {
		if err := store.InsertBulk(ctx, []*domain.StrategyAggregate{
			{RunID: run, Strategy: "idle"},
			{RunID: run, Strategy: "random_walk"},
		}); err != nil {
			t.Fatalf("InsertBulk failed: %v", err)
		}
	}

	got, err := store.GetByStrategy(ctx, "idle")
	if err != nil {
		t.Fatalf("GetByStrategy failed: %v", err)
	}
	if len(got) != 2 || got[0].RunID != "run-a" || got[1].RunID != "run-b" {
		t.Errorf("expected run-a, run-b; got %+v", got)
	}
}

func TestStrategyAggregateStore_ReturnsCopies(t *testing.T) {
	store := NewStrategyAggregateStore()
	ctx := context.Background()

	agg := &domain.StrategyAggregate{RunID: "run-1", Strategy: "idle", Wins: 1}
	if err := store.InsertBulk(ctx, []*domain.StrategyAggregate{agg}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	agg.Wins = 99

	got, _ := store.GetByKey(ctx, "run-1", "idle")
	if got.Wins != 1 {
		t.Errorf("store aliased caller value: Wins=%d", got.Wins)
	}
}
