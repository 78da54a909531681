package metrics

import (
	"context"
	"errors"
	"math"
	"testing"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
	"ekon-lab/internal/storage/memory"
)

func replica(index int, agents map[string]domain.AgentMetrics) *domain.ReplicaResult {
	for name, m := range agents {
		m.Strategy = name
		agents[name] = m
	}
	return &domain.ReplicaResult{
		RunID:  "run-1",
		Index:  index,
		Agents: agents,
		Winner: Winner(agents),
	}
}

func testReplicas() []*domain.ReplicaResult {
	return []*domain.ReplicaResult{
		replica(0, map[string]domain.AgentMetrics{
			"a": {FinalCoin: 1100, ProfitPerRound: 1, TimePerRoundMs: 1, Efficiency: 1},
			"b": {FinalCoin: 1300, ProfitPerRound: 3, TimePerRoundMs: 1, Efficiency: 3},
		}),
		replica(1, map[string]domain.AgentMetrics{
			"a": {FinalCoin: 1500, ProfitPerRound: 5, TimePerRoundMs: 1, Efficiency: 5, Failures: 1},
			"b": {FinalCoin: 1200, ProfitPerRound: 2, TimePerRoundMs: 1, Efficiency: 2},
		}),
		replica(2, map[string]domain.AgentMetrics{
			"a": {FinalCoin: 1600, ProfitPerRound: 6, TimePerRoundMs: 2, Efficiency: 3},
			"b": {FinalCoin: 1000, ProfitPerRound: 0, TimePerRoundMs: 1, Efficiency: 0},
		}),
	}
}

func TestAggregator_MeansAndWins(t *testing.T) {
	agg := NewAggregator()
	for _, r := range testReplicas() {
		agg.Add(r)
	}

	aggs := agg.Aggregates("run-1")
	if len(aggs) != 2 {
		t.Fatalf("expected 2 aggregates, got %d", len(aggs))
	}

	a, b := aggs[0], aggs[1]
	if a.Strategy != "a" || a.Rank != 1 || b.Rank != 2 {
		t.Fatalf("unexpected ranking: %s=%d %s=%d", a.Strategy, a.Rank, b.Strategy, b.Rank)
	}

	// Mean efficiency is the arithmetic mean of per-replica values.
	if math.Abs(a.MeanEfficiency-3) > eps {
		t.Errorf("expected a mean efficiency 3, got %f", a.MeanEfficiency)
	}
	if math.Abs(b.MeanEfficiency-5.0/3.0) > eps {
		t.Errorf("expected b mean efficiency 5/3, got %f", b.MeanEfficiency)
	}
	if math.Abs(a.MeanProfitPerRound-4) > eps || math.Abs(a.MeanTimePerRoundMs-4.0/3.0) > eps {
		t.Errorf("unexpected a means: profit %f time %f", a.MeanProfitPerRound, a.MeanTimePerRoundMs)
	}
	if math.Abs(a.MeanFinalCoin-1400) > eps {
		t.Errorf("expected a mean final coin 1400, got %f", a.MeanFinalCoin)
	}

	// Win counts sum to the completed replicas.
	if a.Wins+b.Wins != agg.Completed() {
		t.Errorf("expected wins to sum to %d, got %d", agg.Completed(), a.Wins+b.Wins)
	}
	if a.Wins != 2 || b.Wins != 1 {
		t.Errorf("expected wins a=2 b=1, got a=%d b=%d", a.Wins, b.Wins)
	}
	if math.Abs(a.WinRate-2.0/3.0) > eps {
		t.Errorf("expected a win rate 2/3, got %f", a.WinRate)
	}
	if a.TotalFailures != 1 {
		t.Errorf("expected 1 failure, got %d", a.TotalFailures)
	}
	if a.EfficiencyMedian != 3 || a.Replicas != 3 {
		t.Errorf("unexpected distribution: median %f replicas %d", a.EfficiencyMedian, a.Replicas)
	}
}

func TestAggregator_Pareto(t *testing.T) {
	agg := NewAggregator()
	for _, r := range testReplicas() {
		agg.Add(r)
	}
	aggs := agg.Aggregates("run-1")

	// a: profit 4, time 4/3; b: profit 5/3, time 1. Neither dominates.
	for _, s := range aggs {
		if !s.ParetoOptimal {
			t.Errorf("expected %s on the frontier", s.Strategy)
		}
	}
}

func TestDominates(t *testing.T) {
	fast := &domain.StrategyAggregate{Strategy: "fast", MeanProfitPerRound: 10, MeanTimePerRoundMs: 0.1}
	slow := &domain.StrategyAggregate{Strategy: "slow", MeanProfitPerRound: 10, MeanTimePerRoundMs: 1}
	rich := &domain.StrategyAggregate{Strategy: "rich", MeanProfitPerRound: 50, MeanTimePerRoundMs: 2}

	if !Dominates(fast, slow) {
		t.Error("expected fast to dominate slow")
	}
	if Dominates(slow, fast) {
		t.Error("slow must not dominate fast")
	}
	if Dominates(fast, fast) {
		t.Error("nothing dominates itself")
	}
	if Dominates(fast, rich) || Dominates(rich, fast) {
		t.Error("fast and rich trade off")
	}

	frontier := ParetoFrontier([]*domain.StrategyAggregate{fast, slow, rich})
	if len(frontier) != 2 || frontier[0] != "fast" || frontier[1] != "rich" {
		t.Errorf("expected [fast rich], got %v", frontier)
	}
}

func TestAggregator_Deterministic(t *testing.T) {
	var first []*domain.StrategyAggregate
	for run := 0; run < 5; run++ {
		agg := NewAggregator()
		for _, r := range testReplicas() {
			agg.Add(r)
		}
		got := agg.Aggregates("run-1")
		if first == nil {
			first = got
			continue
		}
		for i := range got {
			if *got[i] != *first[i] {
				t.Fatalf("run %d: aggregate %d differs: %+v vs %+v", run, i, got[i], first[i])
			}
		}
	}
}

func TestComputeAndStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStrategyAggregateStore()

	empty := NewAggregator()
	if _, err := empty.ComputeAndStore(ctx, "run-1", store); !errors.Is(err, ErrNoReplicas) {
		t.Errorf("expected ErrNoReplicas, got %v", err)
	}

	agg := NewAggregator()
	for _, r := range testReplicas() {
		agg.Add(r)
	}
	if _, err := agg.ComputeAndStore(ctx, "run-1", store); err != nil {
		t.Fatalf("ComputeAndStore failed: %v", err)
	}

	stored, err := store.GetByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(stored) != 2 || stored[0].Strategy != "a" {
		t.Errorf("unexpected stored aggregates: %+v", stored)
	}

	if _, err := agg.ComputeAndStore(ctx, "run-1", store); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
