package domain

import "time"

// Meta is the round context passed to strategies.
type Meta struct {
	CurrentRound int `json:"current_round"`
	TotalRounds  int `json:"total_rounds"`
}

// LastRound reports whether CurrentRound is the final round.
func (m Meta) LastRound() bool {
	return m.CurrentRound == m.TotalRounds-1
}

// AgentSnapshot is a point-in-time copy of an agent's engine-visible state.
type AgentSnapshot struct {
	Name         string           `json:"name"`
	Coin         int64            `json:"coin"`
	Position     int              `json:"position"`
	Holdings     map[string]int64 `json:"holdings"`
	DecisionTime time.Duration    `json:"decision_time_ns"`
	Failures     int              `json:"failures"` // failed strategy invocations so far
}

// RoundSnapshot is handed to observers at the end of each round.
// All maps are copies owned by the receiver.
type RoundSnapshot struct {
	Round       int                        `json:"round"`
	TotalRounds int                        `json:"total_rounds"`
	Agents      []AgentSnapshot            `json:"agents"`
	Markets     map[int]map[string]Listing `json:"markets"`
}

// ResourceTotals returns the per-resource sum of market quantities and agent holdings.
func (s *RoundSnapshot) ResourceTotals() map[string]int64 {
	totals := make(map[string]int64)
	for _, m := range s.Markets {
		for res, l := range m {
			totals[res] += l.Quantity
		}
	}
	for _, a := range s.Agents {
		for res, q := range a.Holdings {
			totals[res] += q
		}
	}
	return totals
}

// RoundFrame is one recorded round: the end-of-round snapshot plus the
// sub-action events reported during it, in order.
type RoundFrame struct {
	RoundSnapshot
	Events []ActionEvent `json:"events"`
}
