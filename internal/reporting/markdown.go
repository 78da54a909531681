package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Seed: %d | Rounds: %d\n\n", r.RunID, r.Seed, r.Rounds))

	// Run Summary
	s := r.Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Requested Replicas | %d |\n", s.Requested))
	sb.WriteString(fmt.Sprintf("| Completed Replicas | %d |\n", s.Completed))
	sb.WriteString(fmt.Sprintf("| Failed Replicas | %d |\n", s.Failed))
	sb.WriteString(fmt.Sprintf("| Skipped Replicas | %d |\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("| Replicas/sec | %.2f |\n", s.ReplicasPerSecond))
	sb.WriteString(fmt.Sprintf("| Rounds/sec | %.2f |\n", s.RoundsPerSecond))
	sb.WriteString("\n")

	// Strategy Metrics
	sb.WriteString("## Strategy Metrics\n\n")
	if len(r.StrategyMetrics) > 0 {
		sb.WriteString("| Rank | Strategy | Replicas | Wins | WinRate | FinalCoin | Profit/Round | Time/Round (ms) | Efficiency | Median | P10 | P90 | Stddev | Failures | Pareto |\n")
		sb.WriteString("|------|----------|----------|------|---------|-----------|--------------|-----------------|------------|--------|-----|-----|--------|----------|--------|\n")
		for _, m := range r.StrategyMetrics {
			pareto := ""
			if m.ParetoOptimal {
				pareto = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %.4f | %.2f | %.4f | %.6f | %.4f | %.4f | %.4f | %.4f | %.4f | %d | %s |\n",
				m.Rank, m.Strategy, m.Replicas, m.Wins, m.WinRate,
				m.MeanFinalCoin, m.MeanProfitPerRound, m.MeanTimePerRoundMs, m.MeanEfficiency,
				m.EfficiencyMedian, m.EfficiencyP10, m.EfficiencyP90, m.EfficiencyStddev,
				m.TotalFailures, pareto))
		}
	} else {
		sb.WriteString("No strategy metrics available.\n")
	}
	sb.WriteString("\n")

	// Pareto Frontier
	sb.WriteString("## Pareto Frontier\n\n")
	if len(r.Frontier) > 0 {
		for _, name := range r.Frontier {
			sb.WriteString(fmt.Sprintf("- %s\n", name))
		}
	} else {
		sb.WriteString("No frontier available.\n")
	}
	sb.WriteString("\n")

	// Replay References
	sb.WriteString("## Replay References\n\n")
	if len(r.ReplayReferences) > 0 {
		sb.WriteString("| Strategy | Replica | Seed | Efficiency |\n")
		sb.WriteString("|----------|---------|------|------------|\n")
		for _, ref := range r.ReplayReferences {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f |\n",
				ref.Strategy, ref.ReplicaIndex, ref.Seed, ref.Efficiency))
		}
	} else {
		sb.WriteString("No replay references available.\n")
	}
	sb.WriteString("\n")

	// Failures (only shown if present)
	if len(r.Failures) > 0 {
		sb.WriteString("## Failed Replicas\n\n")
		sb.WriteString("| Replica | Seed | Error |\n")
		sb.WriteString("|---------|------|-------|\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("| %d | %d | %s |\n", f.ReplicaIndex, f.Seed, firstLine(f.Error)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// firstLine drops panic stacks from table cells.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
