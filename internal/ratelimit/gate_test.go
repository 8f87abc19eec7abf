package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedDelayWaitsFullIntervalEveryTime(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	gate := NewFixedDelay(10*time.Second, clock)

	for i := 0; i < 3; i++ {
		if err := gate.Wait(context.Background()); err != nil {
			t.Fatalf("Wait returned error: %v", err)
		}
		gate.Mark()
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 3 {
		t.Fatalf("expected three sleeps, got %v", sleeps)
	}
	for _, d := range sleeps {
		if d != 10*time.Second {
			t.Fatalf("expected 10s sleep, got %s", d)
		}
	}
}

func TestMinIntervalWaitsOnlyForRemainder(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	gate := NewMinInterval(time.Second, clock)

	if err := gate.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if len(clock.Sleeps()) != 0 {
		t.Fatalf("expected no sleep before first mark, got %v", clock.Sleeps())
	}

	gate.Mark()
	clock.Advance(300 * time.Millisecond)
	if err := gate.Wait(context.Background()); err != nil {
		t.Fatalf("second Wait: %v", err)
	}
	sleeps := clock.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != 700*time.Millisecond {
		t.Fatalf("expected 700ms remainder, got %v", sleeps)
	}

	gate.Mark()
	clock.Advance(2 * time.Second)
	if err := gate.Wait(context.Background()); err != nil {
		t.Fatalf("third Wait: %v", err)
	}
	if len(clock.Sleeps()) != 1 {
		t.Fatalf("expected no sleep once interval elapsed, got %v", clock.Sleeps())
	}
}

func TestWaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gate := NewFixedDelay(time.Hour, SystemClock{})
	start := time.Now()
	err := gate.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Wait blocked despite cancelled context")
	}
}

func TestNilGateNeverBlocks(t *testing.T) {
	var gate *Gate
	if err := gate.Wait(context.Background()); err != nil {
		t.Fatalf("nil gate Wait: %v", err)
	}
	gate.Mark()
	if gate.Interval() != 0 {
		t.Fatalf("expected zero interval, got %s", gate.Interval())
	}
}
