package app

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider/internal/domain"
)

func newQueue(t *testing.T) *GameSession {
	t.Helper()
	now := time.Now()
	gs := newGameSession(domain.NewSession("ABCD", domain.NewParticipant("p1", "Host", nil, now), now), zerolog.Nop())
	t.Cleanup(gs.Close)
	return gs
}

func TestGameSessionRunsTasksInOrder(t *testing.T) {
	gs := newQueue(t)

	var order []int
	for i := 0; i < 100; i++ {
		i := i
		gs.Post(func(*domain.Session) { order = append(order, i) })
	}

	// Do runs after everything posted before it
	require.NoError(t, gs.Do(func(*domain.Session) error { return nil }))
	require.Len(t, order, 100)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestGameSessionSerializesConcurrentCallers(t *testing.T) {
	gs := newQueue(t)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = gs.Do(func(*domain.Session) error {
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestGameSessionReturnsTaskError(t *testing.T) {
	gs := newQueue(t)

	err := gs.Do(func(*domain.Session) error { return domain.ErrWrongPhase })
	assert.ErrorIs(t, err, domain.ErrWrongPhase)
}

func TestGameSessionSurvivesPanics(t *testing.T) {
	gs := newQueue(t)

	err := gs.Do(func(*domain.Session) error { panic("boom") })
	assert.ErrorIs(t, err, errTaskPanicked)

	assert.NoError(t, gs.Do(func(*domain.Session) error { return nil }))
}

func TestGameSessionAfterDelete(t *testing.T) {
	gs := newQueue(t)

	ran := false
	require.NoError(t, gs.Do(func(*domain.Session) error {
		gs.markDeleted()
		return nil
	}))

	assert.ErrorIs(t, gs.Do(func(*domain.Session) error { ran = true; return nil }), domain.ErrSessionNotFound)
	assert.False(t, gs.Post(func(*domain.Session) { ran = true }))
	assert.False(t, ran)

	select {
	case <-gs.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not exit")
	}
}

func TestGameSessionDropsQueuedTasksOnceDeleted(t *testing.T) {
	gs := newQueue(t)

	release := make(chan struct{})
	gs.Post(func(*domain.Session) { <-release })
	gs.Post(func(*domain.Session) { gs.markDeleted() })

	ran := false
	gs.Post(func(*domain.Session) { ran = true })
	close(release)

	<-gs.Done()
	assert.False(t, ran)
}
