package strategy

import (
	"context"
	"sort"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/market"
)

// Reference strategy names.
const (
	IdleName            = "idle"
	RandomWalkName      = "random_walk"
	GreedyNeighbourName = "greedy_neighbour"
)

// Idle never trades or moves.
type Idle struct{}

// Decide returns an empty bundle.
func (Idle) Decide(context.Context, *Turn, Memory) (*domain.ActionBundle, error) {
	return domain.Stay(), nil
}

// Name returns IdleName.
func (Idle) Name() string { return IdleName }

// RandomWalk steps to a random neighbour each turn, sells everything it can
// and buys whatever the destination pays more for, best ratio first.
type RandomWalk struct{}

// Name returns RandomWalkName.
func (*RandomWalk) Name() string { return RandomWalkName }

// Decide implements Strategy.
func (*RandomWalk) Decide(_ context.Context, turn *Turn, _ Memory) (*domain.ActionBundle, error) {
	here := turn.Here()
	pos := turn.Self.Position

	sells, coin := sellAll(turn.Self, here)
	if turn.Meta.LastRound() {
		return &domain.ActionBundle{Sell: sells, MoveTo: domain.MoveTo(pos)}, nil
	}

	neighbours := turn.World.Neighbours(pos)
	if len(neighbours) == 0 {
		return &domain.ActionBundle{Sell: sells, MoveTo: domain.MoveTo(pos)}, nil
	}
	next := neighbours[turn.Rand.IntN(len(neighbours))]
	there := turn.World.Market(next)

	type trade struct {
		ratio    float64
		resource string
		price    int64
		stock    int64
	}
	var trades []trade
	for _, res := range here.Resources() {
		l, _ := here.Listing(res)
		if l.Quantity <= 0 || l.SellPrice <= 0 {
			continue
		}
		if nl, ok := there.Listing(res); ok && nl.BuyPrice > l.SellPrice {
			trades = append(trades, trade{float64(nl.BuyPrice) / float64(l.SellPrice), res, l.SellPrice, l.Quantity})
		}
	}
	sort.SliceStable(trades, func(i, j int) bool { return trades[i].ratio > trades[j].ratio })

	buys := make(map[string]float64)
	budget := coin
	for _, tr := range trades {
		if budget <= 0 {
			break
		}
		units := min(budget/tr.price, tr.stock)
		if units > 0 {
			buys[tr.resource] = float64(units)
			budget -= units * tr.price
		}
	}

	return &domain.ActionBundle{Sell: sells, Buy: buys, MoveTo: domain.MoveTo(next)}, nil
}

// GreedyNeighbour buys the single resource with the best absolute margin
// against one neighbour and carries it there. Without a profitable trade it
// explores, avoiding the node it just came from.
type GreedyNeighbour struct{}

// Name returns GreedyNeighbourName.
func (*GreedyNeighbour) Name() string { return GreedyNeighbourName }

const memPrevious = "previous"

// Decide implements Strategy.
func (*GreedyNeighbour) Decide(_ context.Context, turn *Turn, mem Memory) (*domain.ActionBundle, error) {
	here := turn.Here()
	pos := turn.Self.Position

	sells, coin := sellAll(turn.Self, here)
	if turn.Meta.LastRound() {
		return &domain.ActionBundle{Sell: sells, MoveTo: domain.MoveTo(pos)}, nil
	}

	bestNode, bestRes, bestUnits, bestProfit := -1, "", int64(0), int64(0)
	for _, nb := range turn.World.Neighbours(pos) {
		there := turn.World.Market(nb)
		for _, res := range here.Resources() {
			l, _ := here.Listing(res)
			nl, ok := there.Listing(res)
			if !ok || l.SellPrice <= 0 || nl.BuyPrice <= l.SellPrice {
				continue
			}
			units := min(l.Quantity, coin/l.SellPrice)
			if profit := units * (nl.BuyPrice - l.SellPrice); profit > bestProfit {
				bestNode, bestRes, bestUnits, bestProfit = nb, res, units, profit
			}
		}
	}

	bundle := &domain.ActionBundle{Sell: sells}
	switch {
	case bestNode >= 0:
		bundle.Buy = map[string]float64{bestRes: float64(bestUnits)}
		bundle.MoveTo = domain.MoveTo(bestNode)
	default:
		bundle.MoveTo = domain.MoveTo(explore(turn, mem))
	}
	mem[memPrevious] = pos
	return bundle, nil
}

// explore picks a random neighbour other than the previous position when possible.
func explore(turn *Turn, mem Memory) int {
	pos := turn.Self.Position
	prev, ok := mem[memPrevious].(int)
	if !ok {
		prev = -1
	}
	var options []int
	for _, nb := range turn.World.Neighbours(pos) {
		if nb != prev || len(turn.World.Neighbours(pos)) == 1 {
			options = append(options, nb)
		}
	}
	if len(options) == 0 {
		return pos
	}
	return options[turn.Rand.IntN(len(options))]
}

// sellAll proposes selling every held unit the market trades and returns the
// coin the agent would hold afterwards.
func sellAll(self Self, here market.View) (map[string]float64, int64) {
	sells := make(map[string]float64)
	coin := self.Coin
	for res, qty := range self.Holdings {
		if qty <= 0 {
			continue
		}
		if l, ok := here.Listing(res); ok {
			sells[res] = float64(qty)
			coin += qty * l.BuyPrice
		}
	}
	return sells, coin
}

var (
	_ Strategy = Idle{}
	_ Strategy = (*RandomWalk)(nil)
	_ Strategy = (*GreedyNeighbour)(nil)
)
