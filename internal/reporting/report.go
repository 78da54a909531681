// Package reporting renders benchmark runs as Markdown and CSV.
package reporting

import "time"

// Report represents a benchmark report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Seed        uint64
	Rounds      int // configured rounds per replica

	// Run Summary
	Summary RunSummary

	// Strategy Metrics (rank order)
	StrategyMetrics []StrategyMetricRow

	// Pareto frontier on (profit per round, time per round), sorted
	Frontier []string

	// Replay References: best replica per strategy, re-runnable from its seed
	ReplayReferences []ReplayReferenceRow

	// Failed replicas
	Failures []FailureRow
}

// RunSummary describes replica accounting and throughput.
type RunSummary struct {
	Requested         int
	Completed         int
	Failed            int
	Skipped           int
	StartedAt         time.Time
	FinishedAt        time.Time
	ReplicasPerSecond float64
	RoundsPerSecond   float64
}

// StrategyMetricRow represents one row in strategy metrics table.
type StrategyMetricRow struct {
	Rank               int
	Strategy           string
	Replicas           int
	Wins               int
	WinRate            float64
	MeanFinalCoin      float64
	MeanProfitPerRound float64
	MeanTimePerRoundMs float64
	MeanEfficiency     float64
	EfficiencyMedian   float64
	EfficiencyP10      float64
	EfficiencyP90      float64
	EfficiencyStddev   float64
	TotalFailures      int // strategy invocation failures
	ParetoOptimal      bool
}

// ReplayReferenceRow points at the replica where a strategy did best.
type ReplayReferenceRow struct {
	Strategy     string
	ReplicaIndex int
	Seed         uint64
	Efficiency   float64
}

// FailureRow lists one failed replica.
type FailureRow struct {
	ReplicaIndex int
	Seed         uint64
	Error        string
}
