package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Gate delays callers before they talk to a rate-limited service.
type Gate struct {
	interval time.Duration
	fixed    bool
	clock    Clock

	mu   sync.Mutex
	last time.Time
}

// NewFixedDelay returns a gate whose Wait always sleeps the full interval.
func NewFixedDelay(interval time.Duration, clock Clock) *Gate {
	return newGate(interval, true, clock)
}

// NewMinInterval returns a gate whose Wait sleeps only until interval has
// elapsed since the last Mark.
func NewMinInterval(interval time.Duration, clock Clock) *Gate {
	return newGate(interval, false, clock)
}

func newGate(interval time.Duration, fixed bool, clock Clock) *Gate {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval < 0 {
		interval = 0
	}
	return &Gate{interval: interval, fixed: fixed, clock: clock}
}

// Interval reports the configured delay.
func (g *Gate) Interval() time.Duration {
	if g == nil {
		return 0
	}
	return g.interval
}

// Wait blocks until the gate opens or ctx is cancelled. A nil gate never blocks.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	if g.fixed {
		return Sleep(ctx, g.clock, g.interval)
	}
	g.mu.Lock()
	last := g.last
	g.mu.Unlock()
	if last.IsZero() {
		return ctx.Err()
	}
	elapsed := g.clock.Now().Sub(last)
	if elapsed >= g.interval {
		return ctx.Err()
	}
	return Sleep(ctx, g.clock, g.interval-elapsed)
}

// Mark records that a call just completed.
func (g *Gate) Mark() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.last = g.clock.Now()
	g.mu.Unlock()
}
