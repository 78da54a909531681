// Package agent holds per-agent engine state and invokes strategies with
// timing and failure isolation.
package agent

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"runtime/debug"
	"time"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/strategy"
)

// Clock supplies the time used to measure decisions.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Agent is one participant in a replica.
// Coin and holdings never go negative; settlement is the only writer.
type Agent struct {
	Name         string
	Strategy     strategy.Strategy
	StartingCoin int64
	Coin         int64
	Position     int
	Holdings     map[string]int64
	DecisionTime time.Duration
	Failures     int
	Memory       strategy.Memory
	Rand         *rand.Rand
}

// New creates an agent at position with coin and no holdings.
func New(s strategy.Strategy, coin int64, position int, rng *rand.Rand) *Agent {
	return &Agent{
		Name:         s.Name(),
		Strategy:     s,
		StartingCoin: coin,
		Coin:         coin,
		Position:     position,
		Holdings:     make(map[string]int64),
		Memory:       make(strategy.Memory),
		Rand:         rng,
	}
}

// Self returns the strategy's view of the agent. Holdings is a fresh copy.
func (a *Agent) Self() strategy.Self {
	return strategy.Self{
		Coin:     a.Coin,
		Position: a.Position,
		Holdings: maps.Clone(a.Holdings),
	}
}

// Held returns the units of res the agent holds.
func (a *Agent) Held(res string) int64 {
	return a.Holdings[res]
}

// Profit returns coin gained since the start of the replica.
func (a *Agent) Profit() int64 {
	return a.Coin - a.StartingCoin
}

// Snapshot returns a copy of the agent's state.
func (a *Agent) Snapshot() domain.AgentSnapshot {
	return domain.AgentSnapshot{
		Name:         a.Name,
		Coin:         a.Coin,
		Position:     a.Position,
		Holdings:     maps.Clone(a.Holdings),
		DecisionTime: a.DecisionTime,
		Failures:     a.Failures,
	}
}

// Invoke asks the strategy for this turn's actions. The elapsed time is added
// to DecisionTime whatever the outcome. Errors, panics and nil bundles come
// back as *TurnError and count as a failure.
func (a *Agent) Invoke(ctx context.Context, meta domain.Meta, world strategy.WorldView, clock Clock) (*domain.ActionBundle, *TurnError) {
	turn := &strategy.Turn{
		Self:  a.Self(),
		Meta:  meta,
		World: world,
		Rand:  a.Rand,
	}

	start := clock.Now()
	bundle, terr := a.decide(ctx, turn)
	a.DecisionTime += clock.Now().Sub(start)

	if terr != nil {
		terr.Agent = a.Name
		terr.Round = meta.CurrentRound
		a.Failures++
		return nil, terr
	}
	return bundle, nil
}

func (a *Agent) decide(ctx context.Context, turn *strategy.Turn) (bundle *domain.ActionBundle, terr *TurnError) {
	defer func() {
		if r := recover(); r != nil {
			bundle = nil
			terr = &TurnError{
				Kind:  KindPanic,
				Err:   fmt.Errorf("%v", r),
				Stack: string(debug.Stack()),
			}
		}
	}()

	bundle, err := a.Strategy.Decide(ctx, turn, a.Memory)
	if err != nil {
		return nil, &TurnError{Kind: KindError, Err: err}
	}
	if bundle == nil {
		return nil, &TurnError{Kind: KindNilBundle, Err: ErrNilBundle}
	}
	return bundle, nil
}
