package app

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"insider/internal/domain"
)

// End-of-game reasons
const (
	ReasonTimeExpired       = "time expired without a correct guess"
	ReasonGuesserIdentified = "guesser correctly identified as Insider"
	ReasonGuesserWronged    = "guesser wrongly accused"
	ReasonInsiderFound      = "Insider correctly identified"
	ReasonInsiderHidden     = "Insider not identified"
)

// DefaultReconnectGrace is how long a disconnected participant keeps their seat
const DefaultReconnectGrace = 2 * time.Minute

// Settings tunes game pacing
type Settings struct {
	Timings        domain.Timings
	ReconnectGrace time.Duration
}

// DefaultSettings returns the standard pacing
func DefaultSettings() Settings {
	return Settings{
		Timings:        domain.DefaultTimings(),
		ReconnectGrace: DefaultReconnectGrace,
	}
}

// Engine runs the game state machine for every session in a registry
type Engine struct {
	registry  *Registry
	countdown *Countdown
	words     *WordPool
	notifier  Notifier
	publisher Publisher
	clock     clockwork.Clock
	logger    zerolog.Logger
	settings  Settings

	shuffle func(ids []string)
}

// EngineOption customises an Engine
type EngineOption func(*Engine)

// WithPublisher forwards lifecycle events to p
func WithPublisher(p Publisher) EngineOption {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithSettings overrides the default pacing
func WithSettings(s Settings) EngineOption {
	return func(e *Engine) {
		if s.Timings != nil {
			e.settings.Timings = s.Timings
		}
		e.settings.ReconnectGrace = s.ReconnectGrace
	}
}

// NewEngine creates an engine over the given registry
func NewEngine(registry *Registry, countdown *Countdown, words *WordPool, notifier Notifier, logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		registry:  registry,
		countdown: countdown,
		words:     words,
		notifier:  notifier,
		publisher: nopPublisher{},
		clock:     registry.clock,
		logger:    logger.With().Str("component", "engine").Logger(),
		settings:  DefaultSettings(),
		shuffle: func(ids []string) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		},
	}

	for _, opt := range opts {
		opt(e)
	}

	registry.onRemoved(e.sessionRemoved)

	return e
}

// Registry returns the registry the engine drives
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Close tears down every session and timer
func (e *Engine) Close() {
	e.registry.Close()
	e.countdown.StopAll()
}

// CreateSession creates a session hosted by hostID
func (e *Engine) CreateSession(hostID, name string) (*Admission, error) {
	adm, err := e.registry.Create(hostID, name)
	if err != nil {
		return nil, err
	}

	err = e.within(adm.Code, func(gs *GameSession, s *domain.Session) error {
		e.notify(s, hostID, domain.EventSessionCreated, &domain.SessionCreatedPayload{Code: s.Code})
		e.notify(s, hostID, domain.EventSessionJoined, &domain.SessionJoinedPayload{
			View:          adm.View,
			ParticipantID: hostID,
			Token:         adm.Token,
		})
		e.publisher.Publish(domain.NewEvent(domain.EventSessionCreated, s.Code, &domain.SessionCreatedPayload{Code: s.Code}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return adm, nil
}

// JoinSession adds a participant to a waiting session
func (e *Engine) JoinSession(code, participantID, name string) (*Admission, error) {
	var adm *Admission
	err := e.within(code, func(gs *GameSession, s *domain.Session) error {
		var err error
		adm, err = e.registry.join(gs, s, participantID, name)
		if err != nil {
			return err
		}

		e.notify(s, participantID, domain.EventSessionJoined, &domain.SessionJoinedPayload{
			View:          adm.View,
			ParticipantID: participantID,
			Token:         adm.Token,
		})
		e.broadcastExcept(s, participantID, domain.EventParticipantJoined, &domain.ParticipantJoinedPayload{
			Participant: adm.Participant,
		})
		e.broadcastState(s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return adm, nil
}

// LeaveSession removes a participant permanently
func (e *Engine) LeaveSession(participantID string) (*Departure, error) {
	gs, err := e.registry.sessionOf(participantID)
	if err != nil {
		return nil, err
	}

	var dep *Departure
	err = gs.Do(func(s *domain.Session) error {
		var err error
		dep, err = e.registry.depart(gs, s, participantID)
		if err != nil {
			return err
		}
		e.departed(gs, s, participantID, dep)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}

// Disconnect marks a participant disconnected. The session is deleted when
// nobody is left connected; otherwise the participant keeps their seat for
// the reconnect grace period.
func (e *Engine) Disconnect(participantID string) (*Disconnection, error) {
	gs, err := e.registry.sessionOf(participantID)
	if err != nil {
		return nil, err
	}

	var disc *Disconnection
	err = gs.Do(func(s *domain.Session) error {
		var err error
		disc, err = e.registry.disconnect(s, participantID)
		if err != nil {
			return err
		}

		if disc.ShouldDelete {
			e.registry.remove(gs, s, RemovedDisconnected)
			return nil
		}

		e.broadcastExcept(s, participantID, domain.EventParticipantLeft, &domain.ParticipantLeftPayload{
			ParticipantID: participantID,
			Permanent:     false,
		})
		e.broadcastState(s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !disc.ShouldDelete && e.settings.ReconnectGrace > 0 {
		at := disc.At
		e.clock.AfterFunc(e.settings.ReconnectGrace, func() {
			e.expire(participantID, at)
		})
	}

	return disc, nil
}

// expire turns a lingering disconnect into a departure
func (e *Engine) expire(participantID string, since time.Time) {
	gs, err := e.registry.sessionOf(participantID)
	if err != nil {
		return
	}

	_ = gs.Do(func(s *domain.Session) error {
		dep, err := e.registry.expire(gs, s, participantID, since)
		if err != nil || dep == nil {
			return err
		}
		e.logger.Info().Str("code", s.Code).Str("participant", participantID).Msg("reconnect grace expired")
		e.departed(gs, s, participantID, dep)
		return nil
	})
}

// Reconnect restores a participant who presents their reconnection token
func (e *Engine) Reconnect(code, participantID, token string) (*domain.SessionView, error) {
	var view *domain.SessionView
	err := e.registry.reconnect(code, participantID, token, func(gs *GameSession, s *domain.Session) {
		view = Project(s, participantID)
		e.broadcastExcept(s, participantID, domain.EventParticipantReconnected, &domain.ParticipantPayload{
			ParticipantID: participantID,
		})
		e.broadcastState(s)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// View returns the projection of a session for one participant
func (e *Engine) View(code, forID string) (*domain.SessionView, error) {
	var view *domain.SessionView
	err := e.within(code, func(gs *GameSession, s *domain.Session) error {
		view = Project(s, forID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// StartGame deals roles, draws a word, and begins the reveal
func (e *Engine) StartGame(code, requesterID string) error {
	return e.within(code, func(gs *GameSession, s *domain.Session) error {
		if !s.IsHost(requesterID) {
			return domain.ErrNotHost
		}
		if s.Game.Phase != domain.PhaseWaiting {
			return domain.ErrWrongPhase
		}
		if n := s.Size(); n < domain.MinPlayers || n > domain.MaxPlayers {
			return domain.ErrPlayerCount
		}

		ids := s.ParticipantIDs()
		e.shuffle(ids)

		g := s.Game
		for i, id := range ids {
			p := s.Participants[id]
			switch i {
			case 0:
				p.Role = domain.RoleMaster
				g.MasterID = id
			case 1:
				p.Role = domain.RoleInsider
				g.InsiderID = id
			default:
				p.Role = domain.RoleCommon
			}
		}
		g.SecretWord = e.words.Next()

		for _, id := range ids {
			e.notify(s, id, domain.EventRoleAssigned, &domain.RoleAssignedPayload{Role: s.Participants[id].Role})
		}

		e.publisher.Publish(domain.NewEvent(domain.EventGameStarted, s.Code, &domain.GameStartedPayload{
			Players:  len(ids),
			MasterID: g.MasterID,
		}))

		e.logger.Info().Str("code", s.Code).Int("players", len(ids)).Msg("game started")

		e.transition(gs, s, domain.PhaseRoleReveal)
		return nil
	})
}

// ResetGame returns a session to the lobby, clearing the last game
func (e *Engine) ResetGame(code, requesterID string) error {
	return e.within(code, func(gs *GameSession, s *domain.Session) error {
		if !s.IsHost(requesterID) {
			return domain.ErrNotHost
		}

		e.stopTimer(gs)
		s.Game.Reset()
		s.ClearRoles()

		e.broadcast(s, domain.EventPhaseChanged, &domain.PhaseChangedPayload{Phase: domain.PhaseWaiting})
		e.broadcastState(s)
		return nil
	})
}

// AskQuestion logs a yes/no question for the Master
func (e *Engine) AskQuestion(code, participantID, text string) error {
	text = strings.TrimSpace(text)

	return e.within(code, func(gs *GameSession, s *domain.Session) error {
		p, err := s.Participant(participantID)
		if err != nil {
			return err
		}
		g := s.Game
		if g.Phase != domain.PhaseQuestion {
			return domain.ErrWrongPhase
		}
		if participantID == g.MasterID {
			return domain.ErrWrongRole
		}
		if text == "" {
			return domain.ErrEmptyText
		}

		rec := domain.NewQuestion(uuid.NewString(), p, text, e.clock.Now())
		g.AddRecord(rec)

		e.broadcast(s, domain.EventQuestionAsked, &domain.QuestionAskedPayload{Record: rec.Copy()})
		return nil
	})
}

// AnswerQuestion records the Master's answer to a question
func (e *Engine) AnswerQuestion(code, masterID, recordID string, answer domain.Answer) error {
	return e.within(code, func(gs *GameSession, s *domain.Session) error {
		g := s.Game
		if g.Phase != domain.PhaseQuestion {
			return domain.ErrWrongPhase
		}
		if masterID != g.MasterID {
			return domain.ErrWrongRole
		}
		if !answer.Valid() {
			return domain.ErrInvalidAnswer
		}
		rec, ok := g.FindRecord(recordID)
		if !ok {
			return domain.ErrRecordNotFound
		}
		if rec.IsAnswered() {
			return domain.ErrAlreadyAnswered
		}

		rec.Answer = answer

		e.broadcast(s, domain.EventQuestionAnswered, &domain.QuestionAnsweredPayload{
			RecordID: rec.ID,
			Answer:   answer,
		})
		return nil
	})
}

// GuessWord submits a guess at the secret word. An exact match ends the
// question phase at once; anything else waits for the Master's ruling.
func (e *Engine) GuessWord(code, participantID, word string) error {
	word = strings.TrimSpace(word)

	return e.within(code, func(gs *GameSession, s *domain.Session) error {
		p, err := s.Participant(participantID)
		if err != nil {
			return err
		}
		g := s.Game
		if g.Phase != domain.PhaseQuestion {
			return domain.ErrWrongPhase
		}
		if participantID == g.MasterID {
			return domain.ErrWrongRole
		}
		if word == "" {
			return domain.ErrEmptyText
		}

		exact := g.IsSecretWord(word)
		rec := domain.NewGuess(uuid.NewString(), p, word, exact, e.clock.Now())
		g.AddRecord(rec)

		e.broadcast(s, domain.EventQuestionAsked, &domain.QuestionAskedPayload{Record: rec.Copy()})

		if !exact {
			e.broadcast(s, domain.EventGuessPending, &domain.GuessPendingPayload{
				RecordID:      rec.ID,
				ParticipantID: p.ID,
				Name:          p.Name,
				Word:          word,
			})
			return nil
		}

		e.broadcast(s, domain.EventWordGuessed, &domain.WordGuessedPayload{
			ParticipantID: p.ID,
			Name:          p.Name,
			Word:          word,
			Correct:       true,
		})
		e.wordFound(gs, s, p.ID)
		return nil
	})
}

// ApproveGuess settles a pending guess
func (e *Engine) ApproveGuess(code, masterID, recordID string, approved bool) error {
	return e.within(code, func(gs *GameSession, s *domain.Session) error {
		g := s.Game
		if g.Phase != domain.PhaseQuestion {
			return domain.ErrWrongPhase
		}
		if masterID != g.MasterID {
			return domain.ErrWrongRole
		}
		rec, ok := g.FindRecord(recordID)
		if !ok {
			return domain.ErrRecordNotFound
		}
		if !rec.PendingApproval {
			return domain.ErrNotPendingApproval
		}

		rec.Resolve(approved)

		e.broadcast(s, domain.EventGuessApproved, &domain.GuessApprovedPayload{
			RecordID: rec.ID,
			Approved: approved,
		})
		e.broadcast(s, domain.EventWordGuessed, &domain.WordGuessedPayload{
			ParticipantID: rec.AuthorID,
			Name:          rec.AuthorName,
			Word:          rec.GuessedWord,
			Correct:       approved,
		})

		if approved {
			e.wordFound(gs, s, rec.AuthorID)
		}
		return nil
	})
}

// SubmitInitialVote records a yes/no on whether the guesser is the Insider
func (e *Engine) SubmitInitialVote(code, voterID string, votesYes bool) error {
	return e.within(code, func(gs *GameSession, s *domain.Session) error {
		if _, err := s.Participant(voterID); err != nil {
			return err
		}
		g := s.Game
		if g.Phase != domain.PhaseInitialVote {
			return domain.ErrWrongPhase
		}

		g.CastInitialVote(voterID, votesYes)

		e.broadcast(s, domain.EventVoteReceived, &domain.VoteReceivedPayload{
			VoterID:    voterID,
			VotedCount: len(g.InitialVotes),
		})

		e.checkVotes(gs, s)
		return nil
	})
}

// SubmitVote records an accusation
func (e *Engine) SubmitVote(code, voterID, targetID string) error {
	return e.within(code, func(gs *GameSession, s *domain.Session) error {
		if _, err := s.Participant(voterID); err != nil {
			return err
		}
		g := s.Game
		if g.Phase != domain.PhaseVoting {
			return domain.ErrWrongPhase
		}
		if voterID == g.MasterID {
			return domain.ErrWrongRole
		}
		if _, err := s.Participant(targetID); err != nil || targetID == g.MasterID {
			return domain.ErrInvalidTarget
		}

		g.CastVote(voterID, targetID)

		e.broadcast(s, domain.EventVoteReceived, &domain.VoteReceivedPayload{
			VoterID:    voterID,
			VotedCount: len(g.Votes),
		})

		e.checkVotes(gs, s)
		return nil
	})
}

// within runs fn as a task of the session with the given code
func (e *Engine) within(code string, fn func(gs *GameSession, s *domain.Session) error) error {
	gs, err := e.registry.lookup(code)
	if err != nil {
		return err
	}

	return gs.Do(func(s *domain.Session) error {
		if err := fn(gs, s); err != nil {
			return err
		}
		s.Touch(e.clock.Now())
		return nil
	})
}

// transition moves the session into phase and starts its countdown
func (e *Engine) transition(gs *GameSession, s *domain.Session, phase domain.Phase) {
	g := s.Game
	if !g.Phase.CanTransitionTo(phase) {
		e.logger.Warn().Str("code", s.Code).Str("from", g.Phase.String()).Str("to", phase.String()).Msg("rejected phase transition")
		return
	}

	duration := e.settings.Timings.Duration(phase)
	g.Phase = phase
	g.TimerRemaining = duration

	e.broadcast(s, domain.EventPhaseChanged, &domain.PhaseChangedPayload{Phase: phase, Duration: duration})

	if phase == domain.PhaseWordReveal {
		for _, id := range []string{g.MasterID, g.InsiderID} {
			e.notify(s, id, domain.EventWordRevealed, &domain.WordRevealedPayload{Word: g.SecretWord})
		}
	}

	e.broadcastState(s)

	if duration > 0 {
		e.startTimer(gs, s, phase, duration)
	} else {
		e.stopTimer(gs)
	}

	e.logger.Debug().Str("code", s.Code).Str("phase", phase.String()).Int("duration", duration).Msg("phase changed")
}

// startTimer runs the phase countdown. Callbacks re-enter the session queue
// and are dropped once a newer timer has been started or the timer stopped.
func (e *Engine) startTimer(gs *GameSession, s *domain.Session, phase domain.Phase, seconds int) {
	gen := gs.nextTimerGen()

	e.countdown.Start(s.Code, seconds,
		func(remaining int) {
			gs.Post(func(s *domain.Session) {
				if gs.timerGen != gen {
					return
				}
				s.Game.TimerRemaining = remaining
				e.broadcast(s, domain.EventTimerTick, &domain.TimerTickPayload{Remaining: remaining})
			})
		},
		func() {
			gs.Post(func(s *domain.Session) {
				if gs.timerGen != gen {
					return
				}
				e.timeout(gs, s, phase)
			})
		},
	)
}

// stopTimer cancels the session's countdown and any callback already queued
func (e *Engine) stopTimer(gs *GameSession) {
	gs.nextTimerGen()
	e.countdown.Stop(gs.Code())
}

// timeout handles a phase countdown reaching zero
func (e *Engine) timeout(gs *GameSession, s *domain.Session, phase domain.Phase) {
	if s.Game.Phase != phase {
		return
	}

	switch phase {
	case domain.PhaseRoleReveal:
		e.transition(gs, s, domain.PhaseWordReveal)
	case domain.PhaseWordReveal:
		e.transition(gs, s, domain.PhaseQuestion)
	case domain.PhaseQuestion:
		e.endGame(gs, s, domain.WinnerInsider, ReasonTimeExpired)
	case domain.PhaseDiscussion:
		e.transition(gs, s, domain.PhaseInitialVote)
	case domain.PhaseInitialVote:
		e.tallyInitialVotes(gs, s)
	case domain.PhaseVoting:
		e.tallyVotes(gs, s)
	}
}

// wordFound records the guesser and moves on to discussion
func (e *Engine) wordFound(gs *GameSession, s *domain.Session, guesserID string) {
	s.Game.WordGuessedBy = guesserID
	e.stopTimer(gs)
	e.transition(gs, s, domain.PhaseDiscussion)
}

// checkVotes tallies early once everyone eligible has voted
func (e *Engine) checkVotes(gs *GameSession, s *domain.Session) {
	g := s.Game
	switch g.Phase {
	case domain.PhaseInitialVote:
		if len(g.InitialVotes) >= s.Size() {
			e.stopTimer(gs)
			e.tallyInitialVotes(gs, s)
		}
	case domain.PhaseVoting:
		if len(g.Votes) >= s.EligibleVoterCount() {
			e.stopTimer(gs)
			e.tallyVotes(gs, s)
		}
	}
}

// tallyInitialVotes decides whether the guesser is accused outright
func (e *Engine) tallyInitialVotes(gs *GameSession, s *domain.Session) {
	g := s.Game
	if g.WordGuessedBy == "" {
		e.transition(gs, s, domain.PhaseVoting)
		return
	}

	res := g.TallyInitialVotes()
	g.InitialResult = &res

	e.broadcast(s, domain.EventInitialVoteResult, &res)

	if !res.Majority() {
		e.transition(gs, s, domain.PhaseVoting)
		return
	}

	if res.GuesserIsInsider {
		e.endGame(gs, s, domain.WinnerCommons, ReasonGuesserIdentified)
	} else {
		e.endGame(gs, s, domain.WinnerInsider, ReasonGuesserWronged)
	}
}

// tallyVotes settles the accusation vote
func (e *Engine) tallyVotes(gs *GameSession, s *domain.Session) {
	g := s.Game
	accused := g.MostVoted()

	if accused != "" && accused == g.InsiderID {
		e.endGame(gs, s, domain.WinnerCommons, ReasonInsiderFound)
	} else {
		e.endGame(gs, s, domain.WinnerInsider, ReasonInsiderHidden)
	}
}

// endGame moves the session to results and reveals everything
func (e *Engine) endGame(gs *GameSession, s *domain.Session, winner domain.Winner, reason string) {
	g := s.Game
	if !g.Phase.CanTransitionTo(domain.PhaseResults) {
		return
	}

	e.stopTimer(gs)
	g.End(winner, reason)

	ended := &domain.GameEndedPayload{
		Winner:    winner,
		InsiderID: g.InsiderID,
		Votes:     g.VoteCounts(),
		Reason:    reason,
	}

	e.broadcast(s, domain.EventGameEnded, ended)
	e.broadcastState(s)
	e.publisher.Publish(domain.NewEvent(domain.EventGameEnded, s.Code, ended))

	e.logger.Info().Str("code", s.Code).Str("winner", string(winner)).Str("reason", reason).Msg("game ended")
}

// departed announces a permanent departure and re-checks pending votes
func (e *Engine) departed(gs *GameSession, s *domain.Session, participantID string, dep *Departure) {
	if dep.Deleted {
		return
	}

	s.Game.DropVoter(participantID)

	e.broadcast(s, domain.EventParticipantLeft, &domain.ParticipantLeftPayload{
		ParticipantID: participantID,
		Permanent:     true,
	})
	if dep.WasHost && dep.NewHostID != "" {
		e.broadcast(s, domain.EventHostChanged, &domain.HostChangedPayload{NewHostID: dep.NewHostID})
	}
	e.broadcastState(s)

	e.checkVotes(gs, s)
}

// sessionRemoved runs inside the session task when the registry drops it
func (e *Engine) sessionRemoved(s *domain.Session, reason string) {
	e.countdown.Stop(s.Code)

	closed := &domain.SessionClosedPayload{Reason: reason}
	for _, id := range s.ParticipantIDs() {
		if p := s.Participants[id]; p.IsConnected() {
			e.notify(s, id, domain.EventSessionClosed, closed)
		}
	}

	e.publisher.Publish(domain.NewEvent(domain.EventSessionClosed, s.Code, closed))
}

func (e *Engine) notify(s *domain.Session, participantID string, eventType domain.EventType, payload interface{}) {
	e.notifier.Notify(participantID, domain.NewEvent(eventType, s.Code, payload))
}

func (e *Engine) broadcast(s *domain.Session, eventType domain.EventType, payload interface{}) {
	event := domain.NewEvent(eventType, s.Code, payload)
	for _, id := range s.ParticipantIDs() {
		e.notifier.Notify(id, event)
	}
}

func (e *Engine) broadcastExcept(s *domain.Session, exceptID string, eventType domain.EventType, payload interface{}) {
	event := domain.NewEvent(eventType, s.Code, payload)
	for _, id := range s.ParticipantIDs() {
		if id != exceptID {
			e.notifier.Notify(id, event)
		}
	}
}

// broadcastState sends every participant their own projection
func (e *Engine) broadcastState(s *domain.Session) {
	for _, id := range s.ParticipantIDs() {
		e.notify(s, id, domain.EventStateUpdate, &domain.StateUpdatePayload{View: Project(s, id)})
	}
}
