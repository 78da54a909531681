package metrics

import (
	"math"
	"sort"

	"ekon-lab/internal/domain"
)

// MinTimePerRoundMs floors the time per round in the efficiency ratio.
const MinTimePerRoundMs = 0.001

// ComputeAgentMetrics derives an agent's replica metrics from its final state.
// rounds is the replica's configured total, also when an observer stopped it early.
func ComputeAgentMetrics(a domain.AgentSnapshot, startingCoin int64, rounds int) domain.AgentMetrics {
	m := domain.AgentMetrics{
		Strategy:  a.Name,
		FinalCoin: a.Coin,
		Failures:  a.Failures,
	}
	if rounds <= 0 {
		return m
	}
	m.ProfitPerRound = float64(a.Coin-startingCoin) / float64(rounds)
	m.TimePerRoundMs = a.DecisionTime.Seconds() / float64(rounds) * 1000
	m.Efficiency = Efficiency(m.ProfitPerRound, m.TimePerRoundMs)
	return m
}

// Efficiency returns profit per round over time per round, with the time floored
// at MinTimePerRoundMs.
func Efficiency(profitPerRound, timePerRoundMs float64) float64 {
	return profitPerRound / math.Max(timePerRoundMs, MinTimePerRoundMs)
}

// ComputeReplica computes every agent's metrics and the replica winner.
func ComputeReplica(agents []domain.AgentSnapshot, startingCoin int64, rounds int) (map[string]domain.AgentMetrics, string) {
	out := make(map[string]domain.AgentMetrics, len(agents))
	for _, a := range agents {
		out[a.Name] = ComputeAgentMetrics(a, startingCoin, rounds)
	}
	return out, Winner(out)
}

// Winner returns the strategy with the highest efficiency. Ties go to the
// lexically smallest name. Returns "" for no agents.
func Winner(agents map[string]domain.AgentMetrics) string {
	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	winner := ""
	best := math.Inf(-1)
	for _, name := range names {
		if e := agents[name].Efficiency; winner == "" || e > best {
			winner, best = name, e
		}
	}
	return winner
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates the arithmetic mean of values, summed in order.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
