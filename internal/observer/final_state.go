package observer

import (
	"context"
	"sync"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/engine"
)

// FinalState keeps the most recent round snapshot.
type FinalState struct {
	mu   sync.RWMutex
	last *domain.RoundSnapshot
}

var _ engine.Observer = (*FinalState)(nil)

// OnAgentAction is a no-op.
func (f *FinalState) OnAgentAction(domain.ActionEvent) {}

// OnRoundEnd stores snap and always continues.
func (f *FinalState) OnRoundEnd(_ context.Context, snap *domain.RoundSnapshot) bool {
	f.mu.Lock()
	f.last = snap
	f.mu.Unlock()
	return true
}

// Snapshot returns the last snapshot, or nil before the first round ends.
// The snapshot is shared and must not be modified.
func (f *FinalState) Snapshot() *domain.RoundSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last
}
