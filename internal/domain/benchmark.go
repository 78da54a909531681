package domain

import (
	"sort"
	"time"
)

// ReplicaStatus constants.
const (
	ReplicaStatusCompleted = "completed"
	ReplicaStatusFailed    = "failed"
	ReplicaStatusSkipped   = "skipped"
)

// AgentMetrics holds the per-agent outcome of one replica.
type AgentMetrics struct {
	Strategy       string  `json:"strategy"`
	FinalCoin      int64   `json:"final_coin"`
	ProfitPerRound float64 `json:"profit_per_round"`  // (final - starting coin) / rounds
	TimePerRoundMs float64 `json:"time_per_round_ms"` // decision seconds / rounds * 1000
	Efficiency     float64 `json:"efficiency"`        // profit per round / floored time per round
	Failures       int     `json:"failures"`          // failed strategy invocations
}

// ReplicaResult is the outcome of one completed replica.
// Corresponds to the replica_results table.
type ReplicaResult struct {
	RunID     string                  `json:"run_id"`
	ReplicaID string                  `json:"replica_id"` // deterministic hash of run/index/seed
	Index     int                     `json:"index"`
	Seed      uint64                  `json:"seed"`
	Rounds    int                     `json:"rounds"`
	Winner    string                  `json:"winner"`
	Agents    map[string]AgentMetrics `json:"agents"` // keyed by strategy name
	Duration  time.Duration           `json:"duration_ns"`
}

// ReplicaFailure records a replica that did not complete.
type ReplicaFailure struct {
	Index int    `json:"index"`
	Seed  uint64 `json:"seed"`
	Error string `json:"error"`
}

// StrategyAggregate holds per-strategy metrics across the completed replicas of a run.
// Corresponds to the strategy_aggregates table.
type StrategyAggregate struct {
	RunID    string `json:"run_id"`
	Strategy string `json:"strategy"`

	// Counts
	Replicas int     `json:"replicas"` // completed replicas the strategy took part in
	Wins     int     `json:"wins"`
	WinRate  float64 `json:"win_rate"` // wins / replicas

	// Means
	MeanFinalCoin      float64 `json:"mean_final_coin"`
	MeanProfitPerRound float64 `json:"mean_profit_per_round"`
	MeanTimePerRoundMs float64 `json:"mean_time_per_round_ms"`
	MeanEfficiency     float64 `json:"mean_efficiency"`

	// Efficiency distribution
	EfficiencyMedian float64 `json:"efficiency_median"`
	EfficiencyP10    float64 `json:"efficiency_p10"`
	EfficiencyP90    float64 `json:"efficiency_p90"`
	EfficiencyStddev float64 `json:"efficiency_stddev"`

	TotalFailures int  `json:"total_failures"` // strategy invocation failures across replicas
	Rank          int  `json:"rank"`           // 1 = best mean efficiency
	ParetoOptimal bool `json:"pareto_optimal"` // not dominated on (profit, time)
}

// BenchmarkRun describes one harness invocation.
// Corresponds to the benchmark_runs table.
type BenchmarkRun struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Seed       uint64    `json:"seed"`
	Config     []byte    `json:"config"` // YAML document the run was started with

	Requested int `json:"requested"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// AgentReplicaMetric is one agent's metrics within one replica, flattened for analytics.
// Corresponds to the agent_replica_metrics table.
type AgentReplicaMetric struct {
	RunID        string `json:"run_id"`
	ReplicaID    string `json:"replica_id"`
	ReplicaIndex int    `json:"replica_index"`
	Seed         uint64 `json:"seed"`
	Winner       bool   `json:"winner"`
	AgentMetrics
}

// AgentRows flattens the replica into one row per agent, ordered by strategy name.
func (r *ReplicaResult) AgentRows() []*AgentReplicaMetric {
	rows := make([]*AgentReplicaMetric, 0, len(r.Agents))
	for _, name := range r.StrategyNames() {
		rows = append(rows, &AgentReplicaMetric{
			RunID:        r.RunID,
			ReplicaID:    r.ReplicaID,
			ReplicaIndex: r.Index,
			Seed:         r.Seed,
			Winner:       name == r.Winner,
			AgentMetrics: r.Agents[name],
		})
	}
	return rows
}

// StrategyNames returns the strategies of the replica in ascending order.
func (r *ReplicaResult) StrategyNames() []string {
	names := make([]string, 0, len(r.Agents))
	for name := range r.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
