package engine

import (
	"context"

	"ekon-lab/internal/domain"
)

// Observer receives the engine's progress. Both callbacks run synchronously
// on the simulation goroutine.
type Observer interface {
	// OnRoundEnd is called after every agent has acted. It may block, for
	// example to pause. Returning false stops the simulation.
	OnRoundEnd(ctx context.Context, snap *domain.RoundSnapshot) bool

	// OnAgentAction reports one settled sub-action or failed turn.
	OnAgentAction(e domain.ActionEvent)
}

// RoundStarter is optionally implemented by an Observer to hear about round starts.
type RoundStarter interface {
	OnRoundStart(round, totalRounds int)
}
