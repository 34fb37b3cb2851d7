package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
)

// gate implements the downloader.Gate contract for one run. Open is the
// normal state; Pause swaps in an unclosed channel so Wait blocks, Resume
// closes it again. Stop flips a latch and opens the gate so paused waiters
// wake up and observe the stop.
type gate struct {
	mu      sync.Mutex
	ch      chan struct{} // closed while the gate is open
	paused  bool
	stopped atomic.Bool
}

func newGate() *gate {
	ch := make(chan struct{})
	close(ch)

	return &gate{ch: ch}
}

// Wait blocks while the run is paused. It returns nil once the gate is
// open, or the context error if ctx is done first.
func (g *gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stopped reports whether Stop was called. The latch never resets.
func (g *gate) Stopped() bool {
	return g.stopped.Load()
}

// Pause closes the gate. Calling Pause on a paused gate is a no-op.
func (g *gate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused || g.stopped.Load() {
		return false
	}

	g.ch = make(chan struct{})
	g.paused = true

	return true
}

// Resume opens the gate. Calling Resume on an open gate is a no-op.
func (g *gate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.paused {
		return false
	}

	close(g.ch)
	g.paused = false

	return true
}

// Stop latches the stop flag and opens the gate. It reports whether this
// call flipped the latch.
func (g *gate) Stop() bool {
	latched := g.stopped.CompareAndSwap(false, true)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.paused {
		close(g.ch)
		g.paused = false
	}

	return latched
}

// Paused reports whether the gate is currently closed.
func (g *gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.paused
}
