// Package strategy defines the decision contract the engine invokes once per
// agent turn, plus a few reference strategies.
package strategy

import (
	"context"
	"math/rand/v2"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/market"
)

// Strategy decides an agent's actions for a turn.
type Strategy interface {
	// Decide returns the proposed actions for this turn.
	// A returned error, a panic or a nil bundle is treated as a no-op turn.
	Decide(ctx context.Context, turn *Turn, mem Memory) (*domain.ActionBundle, error)

	// Name returns the strategy identifier. Names must be unique within a run.
	Name() string
}

// WorldView is the read-only world handed to strategies.
type WorldView interface {
	NodeCount() int
	Neighbours(node int) []int
	Market(node int) market.View
}

// Self is the agent's own state. Holdings is a copy owned by the strategy.
type Self struct {
	Coin     int64
	Position int
	Holdings map[string]int64
}

// Turn is the input to Decide.
type Turn struct {
	Self  Self
	Meta  domain.Meta
	World WorldView
	Rand  *rand.Rand // per-agent source, deterministic for a replica seed
}

// Here returns the market at the agent's position.
func (t *Turn) Here() market.View {
	return t.World.Market(t.Self.Position)
}

// Memory is the opaque per-agent slot carried across turns.
// The engine creates it empty and passes the same value back every turn.
type Memory map[string]any

// Func adapts a function to Strategy.
type Func struct {
	ID string
	Fn func(ctx context.Context, turn *Turn, mem Memory) (*domain.ActionBundle, error)
}

// Decide calls Fn.
func (f *Func) Decide(ctx context.Context, turn *Turn, mem Memory) (*domain.ActionBundle, error) {
	return f.Fn(ctx, turn, mem)
}

// Name returns ID.
func (f *Func) Name() string {
	return f.ID
}

var _ Strategy = (*Func)(nil)
