package app

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countdownProbe struct {
	ticks chan int
	done  chan struct{}
}

func newProbe() *countdownProbe {
	return &countdownProbe{ticks: make(chan int, 16), done: make(chan struct{}, 4)}
}

func (p *countdownProbe) tick(remaining int) { p.ticks <- remaining }
func (p *countdownProbe) complete()          { p.done <- struct{}{} }

func (p *countdownProbe) nextTick(t *testing.T) int {
	t.Helper()
	select {
	case v := <-p.ticks:
		return v
	case <-time.After(time.Second):
		t.Fatal("no tick")
		return -1
	}
}

func TestCountdownSequence(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCountdown(clock, zerolog.Nop())
	p := newProbe()

	c.Start("ABCD", 3, p.tick, p.complete)

	// The first tick is delivered before Start returns
	require.Len(t, p.ticks, 1)
	assert.Equal(t, 3, p.nextTick(t))
	assert.True(t, c.IsRunning("ABCD"))
	assert.Equal(t, 3, c.Remaining("ABCD"))

	for _, want := range []int{2, 1, 0} {
		clock.Advance(time.Second)
		assert.Equal(t, want, p.nextTick(t))
	}

	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("completion never fired")
	}

	assert.False(t, c.IsRunning("ABCD"))
	assert.Equal(t, 0, c.Remaining("ABCD"))

	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return len(p.done) > 0 || len(p.ticks) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestCountdownRestartReplaces(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCountdown(clock, zerolog.Nop())
	first, second := newProbe(), newProbe()

	c.Start("ABCD", 2, first.tick, first.complete)
	assert.Equal(t, 2, first.nextTick(t))

	c.Start("ABCD", 5, second.tick, second.complete)
	assert.Equal(t, 5, second.nextTick(t))

	clock.Advance(time.Second)
	assert.Equal(t, 4, second.nextTick(t))
	clock.Advance(time.Second)
	assert.Equal(t, 3, second.nextTick(t))

	assert.Empty(t, first.ticks)
	assert.Empty(t, first.done)
}

func TestCountdownStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCountdown(clock, zerolog.Nop())
	p := newProbe()

	c.Stop("nothing") // no-op

	c.Start("ABCD", 2, p.tick, p.complete)
	p.nextTick(t)

	c.Stop("ABCD")
	c.Stop("ABCD")
	assert.False(t, c.IsRunning("ABCD"))

	clock.Advance(3 * time.Second)
	assert.Never(t, func() bool { return len(p.done) > 0 || len(p.ticks) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestCountdownIndependentIDs(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCountdown(clock, zerolog.Nop())
	a, b := newProbe(), newProbe()

	c.Start("AAAA", 1, a.tick, a.complete)
	c.Start("BBBB", 10, b.tick, b.complete)
	a.nextTick(t)
	b.nextTick(t)

	c.Stop("BBBB")

	clock.Advance(time.Second)
	assert.Equal(t, 0, a.nextTick(t))
	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("completion never fired")
	}
	assert.Empty(t, b.ticks)

	c.StopAll()
	assert.False(t, c.IsRunning("AAAA"))
}
