package metrics

import (
	"math"
	"testing"
	"time"

	"ekon-lab/internal/domain"
)

const eps = 1e-9

func TestComputeAgentMetrics(t *testing.T) {
	a := domain.AgentSnapshot{
		Name:         "greedy",
		Coin:         1400,
		DecisionTime: 20 * time.Millisecond,
		Failures:     2,
	}

	m := ComputeAgentMetrics(a, 1000, 10)

	// (1400 - 1000) / 10
	if m.ProfitPerRound != 40 {
		t.Errorf("expected ProfitPerRound 40, got %f", m.ProfitPerRound)
	}
	// 0.020s / 10 * 1000
	if math.Abs(m.TimePerRoundMs-2) > eps {
		t.Errorf("expected TimePerRoundMs 2, got %f", m.TimePerRoundMs)
	}
	if math.Abs(m.Efficiency-20) > eps {
		t.Errorf("expected Efficiency 20, got %f", m.Efficiency)
	}
	if m.FinalCoin != 1400 || m.Failures != 2 || m.Strategy != "greedy" {
		t.Errorf("unexpected identity fields: %+v", m)
	}
}

func TestComputeAgentMetrics_ZeroRounds(t *testing.T) {
	m := ComputeAgentMetrics(domain.AgentSnapshot{Name: "x", Coin: 50}, 10, 0)
	if m.ProfitPerRound != 0 || m.Efficiency != 0 {
		t.Errorf("expected zero metrics for zero rounds, got %+v", m)
	}
}

func TestEfficiency_FloorsTime(t *testing.T) {
	if got := Efficiency(5, 0); got != 5/MinTimePerRoundMs {
		t.Errorf("expected %f, got %f", 5/MinTimePerRoundMs, got)
	}
	if got := Efficiency(-3, 0.0000001); got != -3/MinTimePerRoundMs {
		t.Errorf("expected floored negative efficiency, got %f", got)
	}
	if got := Efficiency(10, 2); got != 5 {
		t.Errorf("expected 5, got %f", got)
	}
}

func TestWinner(t *testing.T) {
	tests := []struct {
		name   string
		agents map[string]domain.AgentMetrics
		want   string
	}{
		{"empty", nil, ""},
		{"highest efficiency", map[string]domain.AgentMetrics{
			"a": {Efficiency: 1},
			"b": {Efficiency: 3},
			"c": {Efficiency: 2},
		}, "b"},
		{"tie goes to smaller name", map[string]domain.AgentMetrics{
			"zed":   {Efficiency: 4},
			"alpha": {Efficiency: 4},
		}, "alpha"},
		{"all negative", map[string]domain.AgentMetrics{
			"a": {Efficiency: -5},
			"b": {Efficiency: -1},
		}, "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Winner(tt.agents); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestComputeReplica(t *testing.T) {
	agents := []domain.AgentSnapshot{
		{Name: "slow", Coin: 2000, DecisionTime: time.Second},
		{Name: "fast", Coin: 1500, DecisionTime: time.Millisecond},
	}

	metrics, winner := ComputeReplica(agents, 1000, 100)
	if len(metrics) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(metrics))
	}
	// slow: 10 / 10ms = 1; fast: 5 / 0.01ms = 500
	if winner != "fast" {
		t.Errorf("expected winner fast, got %s", winner)
	}
}

func TestComputePercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		p    float64
		want float64
	}{
		{0.0, 1},
		{0.5, 3},
		{0.1, 1.4},
		{0.9, 4.6},
		{1.0, 5},
	}
	for _, tt := range tests {
		if got := computePercentile(sorted, tt.p); math.Abs(got-tt.want) > eps {
			t.Errorf("p=%.2f: expected %f, got %f", tt.p, tt.want, got)
		}
	}

	if got := computePercentile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty input, got %f", got)
	}
	if got := computePercentile([]float64{7}, 0.9); got != 7 {
		t.Errorf("expected 7 for single value, got %f", got)
	}
}

func TestComputeStddev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := computeMean(values)
	if mean != 5 {
		t.Fatalf("expected mean 5, got %f", mean)
	}
	// Sample variance = 32 / 7
	want := math.Sqrt(32.0 / 7.0)
	if got := computeStddev(values, mean); math.Abs(got-want) > eps {
		t.Errorf("expected %f, got %f", want, got)
	}
	if got := computeStddev([]float64{1}, 1); got != 0 {
		t.Errorf("expected 0 for single sample, got %f", got)
	}
}
