package observer

import (
	"context"
	"sync"

	"ekon-lab/internal/domain"
	"ekon-lab/internal/engine"
)

// ControllerStatus is a point-in-time view of a Controller.
type ControllerStatus struct {
	Paused  bool `json:"paused"`
	Stopped bool `json:"stopped"`
	Waiting bool `json:"waiting"` // the engine is blocked in OnRoundEnd
	Round   int  `json:"round"`   // last completed round, -1 before the first
}

// Controller suspends the engine between rounds. Pause, Resume, Step and
// Stop are safe to call from any goroutine.
type Controller struct {
	mu      sync.Mutex
	paused  bool
	stopped bool
	waiting bool
	steps   int
	round   int
	wake    chan struct{} // closed and replaced on every state change
}

var _ engine.Observer = (*Controller)(nil)

// NewController creates a controller, optionally starting paused.
func NewController(startPaused bool) *Controller {
	return &Controller{
		paused: startPaused,
		round:  -1,
		wake:   make(chan struct{}),
	}
}

// Pause blocks the engine at the end of the next round.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	c.steps = 0
	c.broadcastLocked()
}

// Resume lets the engine run freely.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	c.steps = 0
	c.broadcastLocked()
}

// Step lets a paused engine play exactly one more round. It has no
// effect while running.
func (c *Controller) Step() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.steps++
	c.broadcastLocked()
}

// Stop ends the run at the next round boundary.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.broadcastLocked()
}

// Status returns the current controller state.
func (c *Controller) Status() ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ControllerStatus{
		Paused:  c.paused,
		Stopped: c.stopped,
		Waiting: c.waiting,
		Round:   c.round,
	}
}

// OnAgentAction is a no-op.
func (c *Controller) OnAgentAction(domain.ActionEvent) {}

// OnRoundEnd blocks while paused. A cancelled context releases it and the
// engine then observes the cancellation itself.
func (c *Controller) OnRoundEnd(ctx context.Context, snap *domain.RoundSnapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.round = snap.Round

	for {
		switch {
		case c.stopped:
			return false
		case !c.paused:
			return true
		case c.steps > 0:
			c.steps--
			return true
		}

		wake := c.wake
		c.waiting = true
		c.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
		}
		c.mu.Lock()
		c.waiting = false
		if ctx.Err() != nil {
			return true
		}
	}
}

func (c *Controller) broadcastLocked() {
	close(c.wake)
	c.wake = make(chan struct{})
}
