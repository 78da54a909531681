package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"ekon-lab/internal/benchmark"
	"ekon-lab/internal/config"
	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage/memory"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testReplicas() []*domain.ReplicaResult {
	return []*domain.ReplicaResult{
		{
			RunID: "run-1", ReplicaID: "r0", Index: 0, Seed: 11, Rounds: 10, Winner: "greedy",
			Agents: map[string]domain.AgentMetrics{
				"greedy": {Strategy: "greedy", FinalCoin: 1100, ProfitPerRound: 10, TimePerRoundMs: 0.5, Efficiency: 20},
				"idle":   {Strategy: "idle", FinalCoin: 1000},
			},
		},
		{
			RunID: "run-1", ReplicaID: "r1", Index: 1, Seed: 22, Rounds: 10, Winner: "greedy",
			Agents: map[string]domain.AgentMetrics{
				"greedy": {Strategy: "greedy", FinalCoin: 1300, ProfitPerRound: 30, TimePerRoundMs: 0.5, Efficiency: 60},
				"idle":   {Strategy: "idle", FinalCoin: 1000},
			},
		},
	}
}

func testAggregates() []*domain.StrategyAggregate {
	return []*domain.StrategyAggregate{
		{RunID: "run-1", Strategy: "idle", Replicas: 2, Rank: 2},
		{RunID: "run-1", Strategy: "greedy", Replicas: 2, Wins: 2, WinRate: 1, MeanEfficiency: 40, Rank: 1, ParetoOptimal: true},
	}
}

func setupStores(t *testing.T) *Generator {
	t.Helper()
	ctx := context.Background()

	runs := memory.NewBenchmarkRunStore()
	replicas := memory.NewReplicaResultStore()
	aggs := memory.NewStrategyAggregateStore()

	cfg := config.Default()
	cfg.Rounds = 10
	cfgYAML, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal config failed: %v", err)
	}
	run := &domain.BenchmarkRun{
		RunID:      "run-1",
		StartedAt:  fixedTime,
		FinishedAt: fixedTime.Add(2 * time.Second),
		Seed:       7,
		Config:     cfgYAML,
		Requested:  3,
		Completed:  2,
		Skipped:    1,
	}
	if err := runs.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}
	if err := replicas.InsertBulk(ctx, testReplicas()); err != nil {
		t.Fatalf("Insert replicas failed: %v", err)
	}
	if err := aggs.InsertBulk(ctx, testAggregates()); err != nil {
		t.Fatalf("Insert aggregates failed: %v", err)
	}

	return NewGenerator(runs, replicas, aggs).WithClock(func() time.Time { return fixedTime })
}

func TestGenerator_Generate(t *testing.T) {
	g := setupStores(t)

	r, err := g.Generate(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if r.Rounds != 10 {
		t.Errorf("Rounds = %d, want 10", r.Rounds)
	}
	if r.Summary.Completed != 2 || r.Summary.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", r.Summary)
	}
	if r.Summary.ReplicasPerSecond != 1 {
		t.Errorf("ReplicasPerSecond = %v, want 1", r.Summary.ReplicasPerSecond)
	}
	if r.Summary.RoundsPerSecond != 10 {
		t.Errorf("RoundsPerSecond = %v, want 10", r.Summary.RoundsPerSecond)
	}

	if len(r.StrategyMetrics) != 2 || r.StrategyMetrics[0].Strategy != "greedy" {
		t.Fatalf("expected greedy ranked first, got %+v", r.StrategyMetrics)
	}
	if len(r.Frontier) != 1 || r.Frontier[0] != "greedy" {
		t.Errorf("Frontier = %v", r.Frontier)
	}

	if len(r.ReplayReferences) != 2 {
		t.Fatalf("expected 2 replay references, got %d", len(r.ReplayReferences))
	}
	ref := r.ReplayReferences[0]
	if ref.Strategy != "greedy" || ref.ReplicaIndex != 1 || ref.Seed != 22 {
		t.Errorf("unexpected greedy reference: %+v", ref)
	}
	if idle := r.ReplayReferences[1]; idle.ReplicaIndex != 0 {
		t.Errorf("ties should go to the lower replica index, got %d", idle.ReplicaIndex)
	}
}

func TestGenerator_UnknownRun(t *testing.T) {
	g := setupStores(t)
	if _, err := g.Generate(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestFromBenchmark(t *testing.T) {
	rep := &benchmark.Report{
		Run:        domain.BenchmarkRun{RunID: "run-1", Requested: 3, Completed: 2, Failed: 1},
		Replicas:   testReplicas(),
		Aggregates: testAggregates(),
		Frontier:   []string{"greedy"},
		Failures:   []domain.ReplicaFailure{{Index: 2, Seed: 33, Error: "engine fault: boom\ngoroutine 1"}},

		ReplicasPerSecond: 4,
	}
	rep.Config.Rounds = 10

	r := FromBenchmark(rep, fixedTime)
	if r.Summary.ReplicasPerSecond != 4 {
		t.Errorf("ReplicasPerSecond = %v, want 4", r.Summary.ReplicasPerSecond)
	}
	if len(r.Failures) != 1 || r.Failures[0].ReplicaIndex != 2 {
		t.Errorf("Failures = %+v", r.Failures)
	}
	if r.StrategyMetrics[0].Rank != 1 {
		t.Errorf("expected rank order, got %+v", r.StrategyMetrics)
	}
}

func TestRenderMarkdown(t *testing.T) {
	rep := &benchmark.Report{
		Run:        domain.BenchmarkRun{RunID: "run-1", Requested: 3, Completed: 2, Failed: 1},
		Replicas:   testReplicas(),
		Aggregates: testAggregates(),
		Frontier:   []string{"greedy"},
		Failures:   []domain.ReplicaFailure{{Index: 2, Seed: 33, Error: "engine fault: a|b\ngoroutine 1"}},
	}
	md := RenderMarkdown(FromBenchmark(rep, fixedTime))

	for _, want := range []string{
		"# Benchmark Report",
		"Generated: 2026-03-01T12:00:00Z",
		"| Completed Replicas | 2 |",
		"## Strategy Metrics",
		"| 1 | greedy | 2 | 2 | 1.0000 |",
		"## Pareto Frontier",
		"- greedy",
		"| greedy | 1 | 22 | 60.0000 |",
		"## Failed Replicas",
		`engine fault: a\|b |`,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "goroutine 1") {
		t.Error("stack traces must not reach the table")
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(&Report{GeneratedAt: fixedTime})
	if !strings.Contains(md, "No strategy metrics available.") {
		t.Error("expected empty metrics notice")
	}
	if strings.Contains(md, "Failed Replicas") {
		t.Error("failures section should be omitted when empty")
	}
}

func TestRenderCSV(t *testing.T) {
	csv := RenderCSV(generateStrategyMetrics(testAggregates()))
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "rank,strategy,replicas,wins") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,greedy,2,2,1.000000,") || !strings.HasSuffix(lines[1], ",0,true") {
		t.Errorf("unexpected first row: %s", lines[1])
	}
}

func TestRenderAgentRowsCSV(t *testing.T) {
	var rows []*domain.AgentReplicaMetric
	for _, r := range testReplicas() {
		rows = append(rows, r.AgentRows()...)
	}
	csv := RenderAgentRowsCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(lines))
	}
	if lines[1] != "run-1,0,11,greedy,1100,10.000000,0.500000,20.000000,0,true" {
		t.Errorf("unexpected row: %s", lines[1])
	}
}
