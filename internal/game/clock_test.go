package game

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownExpires(t *testing.T) {
	var ticks, expires atomic.Int32
	c := startCountdown(100*time.Millisecond, 20*time.Millisecond,
		func(int) { ticks.Add(1) },
		func() { expires.Add(1) },
	)
	defer c.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for expires.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if expires.Load() != 1 {
		t.Fatalf("expires = %d, want 1", expires.Load())
	}
	if ticks.Load() < 2 {
		t.Fatalf("ticks = %d, want at least the immediate tick plus one interval", ticks.Load())
	}
}

func TestCountdownStopCancelsExpiry(t *testing.T) {
	var expires atomic.Int32
	c := startCountdown(50*time.Millisecond, 10*time.Millisecond,
		func(int) {},
		func() { expires.Add(1) },
	)
	c.Stop()
	c.Stop() // idempotent

	time.Sleep(150 * time.Millisecond)
	if expires.Load() != 0 {
		t.Fatalf("expiry fired after stop")
	}
}

func TestCountdownTicksWholeSeconds(t *testing.T) {
	var first atomic.Int32
	first.Store(-1)
	c := startCountdown(2*time.Second, 20*time.Millisecond,
		func(remaining int) {
			first.CompareAndSwap(-1, int32(remaining))
		},
		func() {},
	)
	defer c.Stop()

	deadline := time.Now().Add(time.Second)
	for first.Load() == -1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if first.Load() != 2 {
		t.Fatalf("first tick = %d, want full 2 seconds", first.Load())
	}
}
