package game

import (
	"sync"
	"time"
)

// countdown drives one timed phase (a round or a break). It fires onTick
// with the whole seconds remaining at every interval, then exactly one of
// onExpire or nothing if stopped first. Callbacks run on the countdown's
// own goroutine; callers are expected to turn them into events on the
// room's serialized queue.
type countdown struct {
	stopCh   chan struct{}
	stopOnce sync.Once
}

// startCountdown begins a countdown of the given total duration, ticking
// at interval. The first tick fires immediately with the full duration.
func startCountdown(total, interval time.Duration, onTick func(remaining int), onExpire func()) *countdown {
	c := &countdown{stopCh: make(chan struct{})}

	go func() {
		deadline := time.Now().Add(total)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		expiry := time.NewTimer(total)
		defer expiry.Stop()

		onTick(int(total / time.Second))

		for {
			select {
			case <-c.stopCh:
				return
			case <-expiry.C:
				onExpire()
				return
			case <-ticker.C:
				remaining := time.Until(deadline)
				if remaining <= 0 {
					// Let the expiry timer deliver the transition.
					continue
				}
				onTick(int((remaining + time.Second/2) / time.Second))
			}
		}
	}()

	return c
}

// Stop cancels the countdown. No callbacks fire after Stop returns, except
// one that may already be in flight; stale ones are filtered by the room's
// timer generation.
func (c *countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
