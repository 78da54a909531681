package metrics

import (
	"context"
	"errors"
	"sort"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/storage"
)

// ErrNoReplicas is returned when nothing has been aggregated.
var ErrNoReplicas = errors.New("no completed replicas to aggregate")

// series holds one strategy's per-replica values in fold order.
type series struct {
	finalCoin  []float64
	profit     []float64
	time       []float64
	efficiency []float64
	wins       int
	failures   int
}

// Aggregator folds completed replica results into per-strategy aggregates.
// Results must be added in replica index order for reproducible floating
// point sums. Not safe for concurrent use.
type Aggregator struct {
	strategies map[string]*series
	completed  int
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{strategies: make(map[string]*series)}
}

// Add folds one replica.
func (a *Aggregator) Add(r *domain.ReplicaResult) {
	a.completed++
	for _, name := range r.StrategyNames() {
		m := r.Agents[name]
		s, ok := a.strategies[name]
		if !ok {
			s = &series{}
			a.strategies[name] = s
		}
		s.finalCoin = append(s.finalCoin, float64(m.FinalCoin))
		s.profit = append(s.profit, m.ProfitPerRound)
		s.time = append(s.time, m.TimePerRoundMs)
		s.efficiency = append(s.efficiency, m.Efficiency)
		s.failures += m.Failures
		if name == r.Winner {
			s.wins++
		}
	}
}

// Completed returns the number of replicas folded so far.
func (a *Aggregator) Completed() int {
	return a.completed
}

// Aggregates computes one aggregate per strategy, ordered by rank.
// Rank 1 has the highest mean efficiency; ties go to the smaller name.
func (a *Aggregator) Aggregates(runID string) []*domain.StrategyAggregate {
	out := make([]*domain.StrategyAggregate, 0, len(a.strategies))
	for name, s := range a.strategies {
		out = append(out, computeAggregate(runID, name, s))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanEfficiency != out[j].MeanEfficiency {
			return out[i].MeanEfficiency > out[j].MeanEfficiency
		}
		return out[i].Strategy < out[j].Strategy
	})
	for i, agg := range out {
		agg.Rank = i + 1
	}

	frontier := make(map[string]struct{})
	for _, name := range ParetoFrontier(out) {
		frontier[name] = struct{}{}
	}
	for _, agg := range out {
		_, agg.ParetoOptimal = frontier[agg.Strategy]
	}
	return out
}

// ComputeAndStore computes aggregates and persists them.
// Returns storage.ErrDuplicateKey if the run already has aggregates (append-only).
func (a *Aggregator) ComputeAndStore(ctx context.Context, runID string, store storage.StrategyAggregateStore) ([]*domain.StrategyAggregate, error) {
	if a.completed == 0 {
		return nil, ErrNoReplicas
	}
	aggs := a.Aggregates(runID)
	if err := store.InsertBulk(ctx, aggs); err != nil {
		return nil, err
	}
	return aggs, nil
}

func computeAggregate(runID, name string, s *series) *domain.StrategyAggregate {
	n := len(s.efficiency)
	sorted := make([]float64, n)
	copy(sorted, s.efficiency)
	sort.Float64s(sorted)

	meanEff := computeMean(s.efficiency)

	return &domain.StrategyAggregate{
		RunID:    runID,
		Strategy: name,

		// Counts
		Replicas: n,
		Wins:     s.wins,
		WinRate:  computeWinRate(s.wins, n),

		// Means
		MeanFinalCoin:      computeMean(s.finalCoin),
		MeanProfitPerRound: computeMean(s.profit),
		MeanTimePerRoundMs: computeMean(s.time),
		MeanEfficiency:     meanEff,

		// Efficiency distribution
		EfficiencyMedian: computePercentile(sorted, 0.50),
		EfficiencyP10:    computePercentile(sorted, 0.10),
		EfficiencyP90:    computePercentile(sorted, 0.90),
		EfficiencyStddev: computeStddev(s.efficiency, meanEff),

		TotalFailures: s.failures,
	}
}
