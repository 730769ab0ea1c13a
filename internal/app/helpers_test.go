package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"insider/internal/domain"
)

const testWord = "Lighthouse"

// recorder is a Notifier and Publisher that keeps everything it is given
type recorder struct {
	mu        sync.Mutex
	events    map[string][]*domain.GameEvent
	published []*domain.GameEvent
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]*domain.GameEvent)}
}

func (r *recorder) Notify(participantID string, event *domain.GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[participantID] = append(r.events[participantID], event)
}

func (r *recorder) Publish(event *domain.GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, event)
}

// of returns the events of one type delivered to a participant
func (r *recorder) of(participantID string, eventType domain.EventType) []*domain.GameEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.GameEvent
	for _, e := range r.events[participantID] {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) publishedTypes() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.EventType, len(r.published))
	for i, e := range r.published {
		out[i] = e.Type
	}
	return out
}

func testTimings() domain.Timings {
	return domain.Timings{
		domain.PhaseRoleReveal:  1,
		domain.PhaseWordReveal:  1,
		domain.PhaseQuestion:    300,
		domain.PhaseDiscussion:  1,
		domain.PhaseInitialVote: 30,
		domain.PhaseVoting:      30,
	}
}

func newTestRegistry(clock clockwork.Clock) *Registry {
	return NewRegistry(clock, zerolog.Nop(), RegistryOptions{
		TokenCost:    bcrypt.MinCost,
		StaleTimeout: time.Hour,
	})
}

// harness is an engine on a fake clock with one session of players p1..pN.
// Role assignment follows join order: p1 is Master, p2 is Insider.
type harness struct {
	t      *testing.T
	clock  *clockwork.FakeClock
	rec    *recorder
	engine *Engine
	code   string
	tokens map[string]string
}

func newHarness(t *testing.T, players int, settings Settings) *harness {
	t.Helper()

	clock := clockwork.NewFakeClock()
	rec := newRecorder()
	registry := newTestRegistry(clock)
	engine := NewEngine(registry, NewCountdown(clock, zerolog.Nop()), NewWordPool([]string{testWord}), rec, zerolog.Nop(),
		WithPublisher(rec),
		WithSettings(settings),
	)
	engine.shuffle = func([]string) {}
	t.Cleanup(engine.Close)

	h := &harness{t: t, clock: clock, rec: rec, engine: engine, tokens: make(map[string]string)}

	adm, err := engine.CreateSession("p1", "Player 1")
	require.NoError(t, err)
	h.code = adm.Code
	h.tokens["p1"] = adm.Token

	for i := 2; i <= players; i++ {
		id := fmt.Sprintf("p%d", i)
		adm, err := engine.JoinSession(h.code, id, "Player "+id)
		require.NoError(t, err)
		h.tokens[id] = adm.Token
	}

	return h
}

func newGameHarness(t *testing.T, players int) *harness {
	return newHarness(t, players, Settings{Timings: testTimings()})
}

// view returns the projection for one participant ("" for an observer)
func (h *harness) view(forID string) *domain.SessionView {
	h.t.Helper()
	v, err := h.engine.View(h.code, forID)
	require.NoError(h.t, err)
	return v
}

func (h *harness) phase() domain.Phase {
	return h.view("").Game.Phase
}

// advanceUntil moves the fake clock a second at a time until phase is reached
func (h *harness) advanceUntil(phase domain.Phase) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		if h.phase() == phase {
			return true
		}
		h.clock.Advance(time.Second)
		return false
	}, 5*time.Second, 2*time.Millisecond, "never reached %s, stuck in %s", phase, h.phase())
}

// toQuestion starts the game and waits out both reveal timers
func (h *harness) toQuestion() {
	h.t.Helper()
	require.NoError(h.t, h.engine.StartGame(h.code, "p1"))
	h.advanceUntil(domain.PhaseQuestion)
}

// toInitialVote plays until the initial vote, with guesser finding the word
func (h *harness) toInitialVote(guesser string) {
	h.t.Helper()
	h.toQuestion()
	require.NoError(h.t, h.engine.GuessWord(h.code, guesser, testWord))
	require.Equal(h.t, domain.PhaseDiscussion, h.phase())
	h.advanceUntil(domain.PhaseInitialVote)
}

// mutate edits the session directly inside its task
func (h *harness) mutate(fn func(s *domain.Session)) {
	h.t.Helper()
	gs, err := h.engine.registry.lookup(h.code)
	require.NoError(h.t, err)
	require.NoError(h.t, gs.Do(func(s *domain.Session) error {
		fn(s)
		return nil
	}))
}
