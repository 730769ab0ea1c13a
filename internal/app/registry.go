package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"insider/internal/domain"
)

const (
	// CodeLength is the length of session codes
	CodeLength = 4

	// DefaultStaleTimeout is how long an idle lobby or finished game is kept
	DefaultStaleTimeout = 2 * time.Hour

	sweepInterval   = 10 * time.Minute
	maxCodeAttempts = 100
)

// CodeChars are characters used for session codes (no ambiguous chars)
const CodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Removal reasons passed to the removal hook
const (
	RemovedEmpty        = "last participant left"
	RemovedDisconnected = "all participants disconnected"
	RemovedDeleted      = "deleted"
	RemovedStale        = "inactive"
	RemovedShutdown     = "server shutting down"
)

// RegistryOptions tunes a Registry
type RegistryOptions struct {
	// TokenCost is the bcrypt cost for reconnection tokens
	TokenCost int

	// StaleTimeout is how long a waiting or finished session may sit idle
	StaleTimeout time.Duration
}

// DefaultRegistryOptions returns production settings
func DefaultRegistryOptions() RegistryOptions {
	return RegistryOptions{
		TokenCost:    bcrypt.DefaultCost,
		StaleTimeout: DefaultStaleTimeout,
	}
}

// Admission is the outcome of creating or joining a session
type Admission struct {
	Code          string
	ParticipantID string
	Token         string
	View          *domain.SessionView
	Participant   domain.ParticipantView
}

// Departure is the outcome of a permanent leave
type Departure struct {
	Code      string
	WasHost   bool
	NewHostID string
	Deleted   bool
}

// Disconnection is the outcome of marking a participant disconnected
type Disconnection struct {
	Code         string
	ShouldDelete bool
	At           time.Time
}

// RoomSummary is the public, unauthenticated description of a session
type RoomSummary struct {
	Code        string       `json:"roomCode"`
	PlayerCount int          `json:"playerCount"`
	Phase       domain.Phase `json:"phase"`
	CanJoin     bool         `json:"canJoin"`
}

// Registry owns all active sessions and the participant to session index
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*GameSession
	members  map[string]string // participantID -> code

	clock     clockwork.Clock
	logger    zerolog.Logger
	opts      RegistryOptions
	dummyHash []byte

	// removed runs inside the session task whenever a session is torn down
	removed func(s *domain.Session, reason string)
}

// NewRegistry creates an empty registry
func NewRegistry(clock clockwork.Clock, logger zerolog.Logger, opts RegistryOptions) *Registry {
	if opts.TokenCost == 0 {
		opts.TokenCost = bcrypt.DefaultCost
	}
	if opts.StaleTimeout == 0 {
		opts.StaleTimeout = DefaultStaleTimeout
	}

	r := &Registry{
		sessions: make(map[string]*GameSession),
		members:  make(map[string]string),
		clock:    clock,
		logger:   logger.With().Str("component", "registry").Logger(),
		opts:     opts,
	}

	// Compared against when the session or participant is unknown, so every
	// failed reconnect costs one bcrypt comparison.
	r.dummyHash, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), opts.TokenCost)

	return r
}

// Create creates a session hosted by hostID
func (r *Registry) Create(hostID, hostName string) (*Admission, error) {
	token, hash, err := r.issueToken()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.members[hostID]; exists {
		r.mu.Unlock()
		return nil, domain.ErrAlreadyInSession
	}

	code, err := r.uniqueCode()
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	now := r.clock.Now()
	host := domain.NewParticipant(hostID, hostName, hash, now)
	gs := newGameSession(domain.NewSession(code, host, now), r.logger)
	r.sessions[code] = gs
	r.members[hostID] = code
	r.mu.Unlock()

	r.logger.Info().Str("code", code).Str("host", hostID).Msg("session created")

	adm := &Admission{Code: code, ParticipantID: hostID, Token: token}
	err = gs.Do(func(s *domain.Session) error {
		adm.View = r.Project(s, hostID)
		adm.Participant = host.ToView(false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return adm, nil
}

// Join adds a participant to an existing session
func (r *Registry) Join(code, participantID, name string) (*Admission, error) {
	gs, err := r.lookup(code)
	if err != nil {
		return nil, err
	}

	var adm *Admission
	err = gs.Do(func(s *domain.Session) error {
		var err error
		adm, err = r.join(gs, s, participantID, name)
		return err
	})
	if err != nil {
		return nil, err
	}

	return adm, nil
}

// join admits a participant; runs inside the session task
func (r *Registry) join(gs *GameSession, s *domain.Session, participantID, name string) (*Admission, error) {
	if s.Size() >= domain.MaxPlayers {
		return nil, domain.ErrRoomFull
	}
	if s.Game.Phase != domain.PhaseWaiting {
		return nil, domain.ErrNotJoinable
	}

	token, hash, err := r.issueToken()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.members[participantID]; exists {
		r.mu.Unlock()
		return nil, domain.ErrAlreadyInSession
	}

	now := r.clock.Now()
	p := domain.NewParticipant(participantID, name, hash, now)
	if err := s.AddParticipant(p); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.members[participantID] = s.Code
	r.mu.Unlock()

	s.Touch(now)

	r.logger.Info().Str("code", s.Code).Str("participant", participantID).Int("players", s.Size()).Msg("participant joined")

	return &Admission{
		Code:          s.Code,
		ParticipantID: participantID,
		Token:         token,
		View:          r.Project(s, participantID),
		Participant:   p.ToView(false),
	}, nil
}

// Leave removes a participant permanently
func (r *Registry) Leave(participantID string) (*Departure, error) {
	gs, err := r.sessionOf(participantID)
	if err != nil {
		return nil, err
	}

	var dep *Departure
	err = gs.Do(func(s *domain.Session) error {
		var err error
		dep, err = r.depart(gs, s, participantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}

// depart removes a participant; runs inside the session task
func (r *Registry) depart(gs *GameSession, s *domain.Session, participantID string) (*Departure, error) {
	wasHost, newHostID, err := s.RemoveParticipant(participantID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.members[participantID] == s.Code {
		delete(r.members, participantID)
	}
	r.mu.Unlock()

	s.Touch(r.clock.Now())

	dep := &Departure{
		Code:      s.Code,
		WasHost:   wasHost,
		NewHostID: newHostID,
	}

	if s.Size() == 0 {
		r.remove(gs, s, RemovedEmpty)
		dep.Deleted = true
	}

	r.logger.Info().
		Str("code", s.Code).
		Str("participant", participantID).
		Str("newHost", newHostID).
		Bool("deleted", dep.Deleted).
		Msg("participant left")

	return dep, nil
}

// MarkDisconnected flags a participant as disconnected without removing them
func (r *Registry) MarkDisconnected(participantID string) (*Disconnection, error) {
	gs, err := r.sessionOf(participantID)
	if err != nil {
		return nil, err
	}

	var disc *Disconnection
	err = gs.Do(func(s *domain.Session) error {
		var err error
		disc, err = r.disconnect(s, participantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return disc, nil
}

// disconnect runs inside the session task
func (r *Registry) disconnect(s *domain.Session, participantID string) (*Disconnection, error) {
	p, err := s.Participant(participantID)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	p.Disconnect(now)

	return &Disconnection{
		Code:         s.Code,
		ShouldDelete: s.ConnectedCount() == 0,
		At:           now,
	}, nil
}

// ExpireDisconnected turns a disconnect into a departure if the participant
// has stayed disconnected since the given time. It returns nil when there is
// nothing to expire.
func (r *Registry) ExpireDisconnected(participantID string, since time.Time) (*Departure, error) {
	gs, err := r.sessionOf(participantID)
	if err != nil {
		return nil, err
	}

	var dep *Departure
	err = gs.Do(func(s *domain.Session) error {
		var err error
		dep, err = r.expire(gs, s, participantID, since)
		return err
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}

// expire runs inside the session task
func (r *Registry) expire(gs *GameSession, s *domain.Session, participantID string, since time.Time) (*Departure, error) {
	p, err := s.Participant(participantID)
	if err != nil {
		return nil, nil
	}
	if !p.DisconnectedSince(since) {
		return nil, nil
	}
	return r.depart(gs, s, participantID)
}

// Reconnect restores a disconnected participant who presents the token issued
// at join time. Every failure returns ErrInvalidCredentials.
func (r *Registry) Reconnect(code, participantID, token string) (*domain.SessionView, error) {
	var view *domain.SessionView
	err := r.reconnect(code, participantID, token, func(gs *GameSession, s *domain.Session) {
		view = r.Project(s, participantID)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// reconnect verifies the token outside the session task, then applies the
// reconnect and runs then inside it.
func (r *Registry) reconnect(code, participantID, token string, then func(gs *GameSession, s *domain.Session)) error {
	gs, err := r.lookup(code)
	if err != nil {
		r.burnComparison(token)
		return domain.ErrInvalidCredentials
	}

	var hash []byte
	_ = gs.Do(func(s *domain.Session) error {
		if p, err := s.Participant(participantID); err == nil {
			hash = append([]byte(nil), p.TokenHash...)
		}
		return nil
	})

	if hash == nil {
		r.burnComparison(token)
		return domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
		return domain.ErrInvalidCredentials
	}

	return gs.Do(func(s *domain.Session) error {
		p, err := s.Participant(participantID)
		if err != nil || !bytes.Equal(p.TokenHash, hash) {
			return domain.ErrInvalidCredentials
		}

		p.Reconnect()
		r.mu.Lock()
		r.members[participantID] = s.Code
		r.mu.Unlock()
		s.Touch(r.clock.Now())

		r.logger.Info().Str("code", s.Code).Str("participant", participantID).Msg("participant reconnected")

		if then != nil {
			then(gs, s)
		}
		return nil
	})
}

// Delete tears down a session regardless of who is in it
func (r *Registry) Delete(code string) {
	gs, err := r.lookup(code)
	if err != nil {
		return
	}

	_ = gs.Do(func(s *domain.Session) error {
		r.remove(gs, s, RemovedDeleted)
		return nil
	})
}

// remove drops a session from the table and closes its queue; runs inside the session task
func (r *Registry) remove(gs *GameSession, s *domain.Session, reason string) {
	r.mu.Lock()
	if r.sessions[s.Code] == gs {
		delete(r.sessions, s.Code)
	}
	for id := range s.Participants {
		if r.members[id] == s.Code {
			delete(r.members, id)
		}
	}
	r.mu.Unlock()

	if r.removed != nil {
		r.removed(s, reason)
	}

	gs.markDeleted()

	r.logger.Info().Str("code", s.Code).Str("reason", reason).Msg("session removed")
}

// Summary returns public information about a session
func (r *Registry) Summary(code string) (*RoomSummary, error) {
	gs, err := r.lookup(code)
	if err != nil {
		return nil, err
	}

	var sum *RoomSummary
	err = gs.Do(func(s *domain.Session) error {
		sum = &RoomSummary{
			Code:        s.Code,
			PlayerCount: s.Size(),
			Phase:       s.Game.Phase,
			CanJoin:     s.Game.Phase == domain.PhaseWaiting && s.Size() < domain.MaxPlayers,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sum, nil
}

// Exists reports whether a session code is active
func (r *Registry) Exists(code string) bool {
	_, err := r.lookup(code)
	return err == nil
}

// SessionOf returns the code of the session a participant belongs to
func (r *Registry) SessionOf(participantID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.members[participantID]
	return code, ok
}

// Count returns the number of active sessions
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ParticipantCount returns the number of participants across all sessions
func (r *Registry) ParticipantCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Run sweeps stale sessions until ctx is cancelled
func (r *Registry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.Sweep()
		}
	}
}

// Sweep removes lobbies and finished games that have been idle too long
func (r *Registry) Sweep() {
	for _, gs := range r.snapshot() {
		gs := gs
		gs.Post(func(s *domain.Session) {
			phase := s.Game.Phase
			if phase != domain.PhaseWaiting && phase != domain.PhaseResults {
				return
			}
			if r.clock.Since(s.LastActivity) > r.opts.StaleTimeout {
				r.remove(gs, s, RemovedStale)
			}
		})
	}
}

// Close removes every session
func (r *Registry) Close() {
	for _, gs := range r.snapshot() {
		_ = gs.Do(func(s *domain.Session) error {
			r.remove(gs, s, RemovedShutdown)
			return nil
		})
	}
}

// onRemoved installs the teardown hook
func (r *Registry) onRemoved(fn func(s *domain.Session, reason string)) {
	r.removed = fn
}

func (r *Registry) snapshot() []*GameSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*GameSession, 0, len(r.sessions))
	for _, gs := range r.sessions {
		out = append(out, gs)
	}
	return out
}

// lookup returns a session by code
func (r *Registry) lookup(code string) (*GameSession, error) {
	code = NormalizeCode(code)

	r.mu.RLock()
	defer r.mu.RUnlock()

	gs, ok := r.sessions[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return gs, nil
}

// sessionOf returns the session a participant belongs to
func (r *Registry) sessionOf(participantID string) (*GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.members[participantID]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	gs, ok := r.sessions[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return gs, nil
}

// issueToken creates a reconnection token and its bcrypt hash
func (r *Registry) issueToken() (string, []byte, error) {
	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), r.opts.TokenCost)
	if err != nil {
		return "", nil, err
	}
	return token, hash, nil
}

func (r *Registry) burnComparison(token string) {
	_ = bcrypt.CompareHashAndPassword(r.dummyHash, []byte(token))
}

// uniqueCode generates a code not currently in use; caller must hold r.mu
func (r *Registry) uniqueCode() (string, error) {
	for attempts := 0; attempts < maxCodeAttempts; attempts++ {
		code := generateCode()
		if _, exists := r.sessions[code]; !exists {
			return code, nil
		}
	}
	return "", domain.ErrCodeExhausted
}

// generateCode generates a random session code
func generateCode() string {
	b := make([]byte, CodeLength)
	rand.Read(b)

	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = CodeChars[int(b[i])%len(CodeChars)]
	}

	return string(code)
}

// NormalizeCode upper-cases and trims a user-supplied session code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
