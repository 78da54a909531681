// Package settlement validates and applies an agent's action bundle against
// its current market and the world graph.
package settlement

import (
	"math"
	"sort"

	"ekon-lab/internal/agent"
	"ekon-lab/internal/domain"
	"ekon-lab/internal/market"
)

// maxQuantity bounds a single order so quantity arithmetic cannot overflow.
const maxQuantity = 1 << 53

// Graph answers movement questions.
type Graph interface {
	// Reachable reports whether to equals from or is adjacent to it.
	Reachable(from, to int) bool
}

// Settle applies b to agent a trading at market m, one sub-action at a time.
// Order is sells, then buys (each by resource name), then the move. Every
// non-zero order and every explicit move yields an event, accepted or not.
// Rejected sub-actions leave all state untouched.
func Settle(round int, g Graph, m *market.Market, a *agent.Agent, b *domain.ActionBundle) []domain.ActionEvent {
	if b == nil {
		return nil
	}

	var events []domain.ActionEvent
	emit := func(e domain.ActionEvent) {
		e.Round = round
		e.Agent = a.Name
		e.From = a.Position
		e.To = a.Position
		events = append(events, e)
	}

	for _, res := range sortedKeys(b.Sell) {
		qty, reason := whole(b.Sell[res])
		if reason == "" && qty == 0 {
			continue
		}
		emit(sell(m, a, res, qty, reason))
	}

	for _, res := range sortedKeys(b.Buy) {
		qty, reason := whole(b.Buy[res])
		if reason == "" && qty == 0 {
			continue
		}
		emit(buy(m, a, res, qty, reason))
	}

	if b.MoveTo != nil {
		e := domain.ActionEvent{
			Round:    round,
			Agent:    a.Name,
			Type:     domain.ActionMove,
			From:     a.Position,
			To:       *b.MoveTo,
			Accepted: g.Reachable(a.Position, *b.MoveTo),
		}
		if e.Accepted {
			a.Position = *b.MoveTo
		} else {
			e.Reason = domain.RejectNotAdjacent
		}
		events = append(events, e)
	}

	return events
}

func sell(m *market.Market, a *agent.Agent, res string, qty int64, reason string) domain.ActionEvent {
	e := domain.ActionEvent{Type: domain.ActionSell, Resource: res, Quantity: qty}
	l, ok := m.Listing(res)
	e.Price = l.BuyPrice

	switch {
	case reason != "":
	case !ok:
		reason = domain.RejectNotTraded
	case a.Held(res) < qty:
		reason = domain.RejectInsufficientHeld
	}
	if reason != "" {
		e.Reason = reason
		return e
	}

	if err := m.Put(res, qty); err != nil {
		e.Reason = err.Error()
		return e
	}
	a.Holdings[res] -= qty
	a.Coin += qty * l.BuyPrice
	e.Accepted = true
	return e
}

func buy(m *market.Market, a *agent.Agent, res string, qty int64, reason string) domain.ActionEvent {
	e := domain.ActionEvent{Type: domain.ActionBuy, Resource: res, Quantity: qty}
	l, ok := m.Listing(res)
	e.Price = l.SellPrice

	switch {
	case reason != "":
	case !ok:
		reason = domain.RejectNotTraded
	case l.Quantity < qty:
		reason = domain.RejectInsufficientStock
	case l.SellPrice > 0 && qty > a.Coin/l.SellPrice:
		reason = domain.RejectInsufficientCoin
	}
	if reason != "" {
		e.Reason = reason
		return e
	}

	if err := m.Take(res, qty); err != nil {
		e.Reason = err.Error()
		return e
	}
	a.Holdings[res] += qty
	a.Coin -= qty * l.SellPrice
	e.Accepted = true
	return e
}

// whole floors a proposed quantity. A non-empty reason means the order is
// rejected outright.
func whole(q float64) (int64, string) {
	switch {
	case math.IsNaN(q) || math.IsInf(q, 0):
		return 0, domain.RejectInvalidQuantity
	case q < 0:
		return int64(math.Max(math.Floor(q), -maxQuantity)), domain.RejectNegativeQuantity
	case q >= maxQuantity:
		return 0, domain.RejectInvalidQuantity
	}
	return int64(math.Floor(q)), ""
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
