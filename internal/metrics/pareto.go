package metrics

import "ekon-lab/internal/domain"

// Dominates reports whether a dominates b: at least the profit per round and
// at most the time per round, strictly better in one of them.
func Dominates(a, b *domain.StrategyAggregate) bool {
	if a.MeanProfitPerRound < b.MeanProfitPerRound || a.MeanTimePerRoundMs > b.MeanTimePerRoundMs {
		return false
	}
	return a.MeanProfitPerRound > b.MeanProfitPerRound || a.MeanTimePerRoundMs < b.MeanTimePerRoundMs
}

// ParetoFrontier returns the strategies no other aggregate dominates, in input order.
func ParetoFrontier(aggs []*domain.StrategyAggregate) []string {
	var frontier []string
	for i, a := range aggs {
		dominated := false
		for j, b := range aggs {
			if i != j && Dominates(b, a) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, a.Strategy)
		}
	}
	return frontier
}
