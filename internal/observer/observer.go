// Package observer provides engine.Observer implementations: fan-out,
// interactive pause/step control, final state capture, frame recording
// and structured action logging.
package observer

import (
	"context"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/engine"
)

// Multi fans callbacks out to every member in order. The run continues
// only while all members return true.
type Multi []engine.Observer

// Compile-time interface checks.
var (
	_ engine.Observer     = Multi(nil)
	_ engine.RoundStarter = Multi(nil)
)

// NewMulti drops nil members.
func NewMulti(observers ...engine.Observer) Multi {
	m := make(Multi, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

// OnRoundStart forwards to members implementing engine.RoundStarter.
func (m Multi) OnRoundStart(round, totalRounds int) {
	for _, o := range m {
		if rs, ok := o.(engine.RoundStarter); ok {
			rs.OnRoundStart(round, totalRounds)
		}
	}
}

// OnAgentAction forwards the event to every member.
func (m Multi) OnAgentAction(e domain.ActionEvent) {
	for _, o := range m {
		o.OnAgentAction(e)
	}
}

// OnRoundEnd calls every member, even after one has asked to stop.
func (m Multi) OnRoundEnd(ctx context.Context, snap *domain.RoundSnapshot) bool {
	cont := true
	for _, o := range m {
		if !o.OnRoundEnd(ctx, snap) {
			cont = false
		}
	}
	return cont
}
