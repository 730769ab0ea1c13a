package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// TickFunc receives the seconds left on a countdown
type TickFunc func(remaining int)

// Countdown runs independent one-second countdowns keyed by session code
type Countdown struct {
	clock  clockwork.Clock
	mu     sync.Mutex
	timers map[string]*countdownTimer
	logger zerolog.Logger
}

type countdownTimer struct {
	remaining int
	ticker    clockwork.Ticker
	done      chan struct{}
}

// NewCountdown creates a countdown scheduler on the given clock
func NewCountdown(clock clockwork.Clock, logger zerolog.Logger) *Countdown {
	return &Countdown{
		clock:  clock,
		timers: make(map[string]*countdownTimer),
		logger: logger.With().Str("component", "countdown").Logger(),
	}
}

// Start begins a countdown for id, replacing any countdown already running for
// it. onTick is called with seconds before Start returns, then once a second
// with the decremented value down to 0, after which onComplete runs once.
func (c *Countdown) Start(id string, seconds int, onTick TickFunc, onComplete func()) {
	t := &countdownTimer{
		remaining: seconds,
		ticker:    c.clock.NewTicker(time.Second),
		done:      make(chan struct{}),
	}

	c.mu.Lock()
	if existing, ok := c.timers[id]; ok {
		existing.cancel()
		c.logger.Debug().Str("id", id).Msg("replaced running countdown")
	}
	c.timers[id] = t
	c.mu.Unlock()

	onTick(seconds)

	go c.run(id, t, onTick, onComplete)
}

// Stop cancels the countdown for id. Stopping an unknown or finished
// countdown is a no-op.
func (c *Countdown) Stop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[id]; ok {
		t.cancel()
		delete(c.timers, id)
		c.logger.Debug().Str("id", id).Msg("stopped countdown")
	}
}

// StopAll cancels every running countdown
func (c *Countdown) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, t := range c.timers {
		t.cancel()
		delete(c.timers, id)
	}
}

// Remaining returns the seconds left for id, 0 when none is running
func (c *Countdown) Remaining(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[id]; ok {
		return t.remaining
	}
	return 0
}

// IsRunning reports whether a countdown is active for id
func (c *Countdown) IsRunning(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.timers[id]
	return ok
}

// run drives one countdown until it completes or is cancelled
func (c *Countdown) run(id string, t *countdownTimer, onTick TickFunc, onComplete func()) {
	defer t.ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.Chan():
			c.mu.Lock()
			if c.timers[id] != t {
				// Replaced or stopped between the tick and the lock
				c.mu.Unlock()
				return
			}
			t.remaining--
			remaining := t.remaining
			finished := remaining <= 0
			if finished {
				delete(c.timers, id)
			}
			c.mu.Unlock()

			onTick(remaining)

			if finished {
				onComplete()
				return
			}
		}
	}
}

// cancel stops the ticker and wakes the goroutine; caller must hold c.mu
func (t *countdownTimer) cancel() {
	t.ticker.Stop()
	close(t.done)
}
