package reporting

import (
	"fmt"
	"strings"

	"ekon-lab/internal/domain"
)

// RenderCSV renders strategy metrics as CSV string.
func RenderCSV(metrics []StrategyMetricRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("rank,strategy,replicas,wins,win_rate,mean_final_coin,")
	sb.WriteString("mean_profit_per_round,mean_time_per_round_ms,mean_efficiency,")
	sb.WriteString("efficiency_median,efficiency_p10,efficiency_p90,efficiency_stddev,")
	sb.WriteString("total_failures,pareto_optimal\n")

	// Rows
	for _, m := range metrics {
		sb.WriteString(fmt.Sprintf("%d,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%t\n",
			m.Rank,
			m.Strategy,
			m.Replicas,
			m.Wins,
			m.WinRate,
			m.MeanFinalCoin,
			m.MeanProfitPerRound,
			m.MeanTimePerRoundMs,
			m.MeanEfficiency,
			m.EfficiencyMedian,
			m.EfficiencyP10,
			m.EfficiencyP90,
			m.EfficiencyStddev,
			m.TotalFailures,
			m.ParetoOptimal,
		))
	}

	return sb.String()
}

// RenderAgentRowsCSV renders one row per (replica, strategy).
func RenderAgentRowsCSV(rows []*domain.AgentReplicaMetric) string {
	var sb strings.Builder
	sb.WriteString("run_id,replica_index,seed,strategy,final_coin,profit_per_round,time_per_round_ms,efficiency,failures,winner\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%d,%.6f,%.6f,%.6f,%d,%t\n",
			row.RunID, row.ReplicaIndex, row.Seed, row.Strategy, row.FinalCoin,
			row.ProfitPerRound, row.TimePerRoundMs, row.Efficiency, row.Failures, row.Winner))
	}
	return sb.String()
}
