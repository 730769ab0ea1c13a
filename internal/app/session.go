package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"insider/internal/domain"
)

var errTaskPanicked = errors.New("session task panicked")

// GameSession owns one session's state and runs every task touching it, one
// at a time, on a dedicated goroutine. Tasks are never dropped; they queue
// without bound.
type GameSession struct {
	session *domain.Session
	logger  zerolog.Logger

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	closed  bool
	stopped chan struct{}

	// Only touched from inside tasks
	deleted  bool
	timerGen uint64
}

// newGameSession wraps a session and starts its task loop
func newGameSession(s *domain.Session, logger zerolog.Logger) *GameSession {
	gs := &GameSession{
		session: s,
		logger:  logger.With().Str("code", s.Code).Logger(),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}

	go gs.loop()

	return gs
}

// Code returns the session code
func (g *GameSession) Code() string {
	return g.session.Code
}

// Do runs fn on the session's goroutine and waits for its result. It must
// not be called from inside another task of the same session.
func (g *GameSession) Do(fn func(s *domain.Session) error) error {
	result := make(chan error, 1)

	ok := g.enqueue(func() {
		if g.deleted {
			result <- domain.ErrSessionNotFound
			return
		}
		finished := false
		defer func() {
			if !finished {
				result <- errTaskPanicked
			}
		}()
		result <- fn(g.session)
		finished = true
	})
	if !ok {
		return domain.ErrSessionNotFound
	}

	return <-result
}

// Post queues fn without waiting. It reports false if the session is closed.
func (g *GameSession) Post(fn func(s *domain.Session)) bool {
	return g.enqueue(func() {
		if g.deleted {
			return
		}
		fn(g.session)
	})
}

// Close stops accepting tasks; queued tasks still run
func (g *GameSession) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	g.signal()
}

// Done is closed once the task loop has exited
func (g *GameSession) Done() <-chan struct{} {
	return g.stopped
}

func (g *GameSession) enqueue(task func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	g.pending = append(g.pending, task)
	g.signal()
	return true
}

// signal wakes the loop; caller must hold g.mu
func (g *GameSession) signal() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// loop processes tasks in submission order
func (g *GameSession) loop() {
	defer close(g.stopped)

	for {
		g.mu.Lock()
		if len(g.pending) == 0 {
			if g.closed {
				g.mu.Unlock()
				return
			}
			g.mu.Unlock()
			<-g.wake
			continue
		}
		task := g.pending[0]
		g.pending[0] = nil
		g.pending = g.pending[1:]
		g.mu.Unlock()

		g.run(task)
	}
}

// run executes a task, keeping the loop alive if it panics
func (g *GameSession) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().Interface("panic", r).Msg("session task panicked")
		}
	}()
	task()
}

// markDeleted flags the session as gone and closes the queue; call from inside a task
func (g *GameSession) markDeleted() {
	g.deleted = true
	g.Close()
}

// nextTimerGen invalidates callbacks from earlier timers; call from inside a task
func (g *GameSession) nextTimerGen() uint64 {
	g.timerGen++
	return g.timerGen
}
