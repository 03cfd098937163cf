package enhancer

import (
	"context"
	"sync"
	"time"
)

// Gate pauses every worker of a run at once. Closing the gate for d makes
// each Wait block until d has passed; closing it again while closed only
// ever extends the pause.
type Gate struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// Close shuts the gate for d from now.
func (g *Gate) Close(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if until := g.now().Add(d); until.After(g.until) {
		g.until = until
	}
}

// Remaining returns how long the gate stays closed.
func (g *Gate) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if d := g.until.Sub(g.now()); d > 0 {
		return d
	}
	return 0
}

// Wait blocks until the gate is open or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		d := g.Remaining()
		if d == 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
