package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of game event
type EventType string

const (
	EventSessionCreated         EventType = "session_created"
	EventSessionJoined          EventType = "session_joined"
	EventSessionClosed          EventType = "session_closed"
	EventParticipantJoined      EventType = "participant_joined"
	EventParticipantLeft        EventType = "participant_left"
	EventParticipantReconnected EventType = "participant_reconnected"
	EventHostChanged            EventType = "host_changed"
	EventGameStarted            EventType = "game_started"
	EventRoleAssigned           EventType = "role_assigned"
	EventWordRevealed           EventType = "word_revealed"
	EventPhaseChanged           EventType = "phase_changed"
	EventStateUpdate            EventType = "state_update"
	EventTimerTick              EventType = "timer_tick"
	EventQuestionAsked          EventType = "question_asked"
	EventQuestionAnswered       EventType = "question_answered"
	EventGuessPending           EventType = "guess_pending_approval"
	EventGuessApproved          EventType = "guess_approved"
	EventWordGuessed            EventType = "word_guessed"
	EventVoteReceived           EventType = "vote_received"
	EventInitialVoteResult      EventType = "initial_vote_result"
	EventGameEnded              EventType = "game_ended"
	EventError                  EventType = "error"
)

// GameEvent represents an event that occurred in a session
type GameEvent struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	SessionCode string      `json:"sessionCode,omitempty"`
	Payload     interface{} `json:"payload,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewEvent creates a new game event
func NewEvent(eventType EventType, code string, payload interface{}) *GameEvent {
	return &GameEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		SessionCode: code,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	}
}

// Payload types for different events

// SessionCreatedPayload is sent to the host after creating a session
type SessionCreatedPayload struct {
	Code string `json:"roomCode"`
}

// SessionJoinedPayload is sent privately after create, join or reconnect
type SessionJoinedPayload struct {
	View          *SessionView `json:"room"`
	ParticipantID string       `json:"playerId"`
	Token         string       `json:"reconnectToken"`
}

// SessionClosedPayload tells the remaining participants the session is gone
type SessionClosedPayload struct {
	Reason string `json:"reason"`
}

// ParticipantJoinedPayload announces a new participant
type ParticipantJoinedPayload struct {
	Participant ParticipantView `json:"player"`
}

// ParticipantLeftPayload announces a disconnect or a departure
type ParticipantLeftPayload struct {
	ParticipantID string `json:"playerId"`
	Permanent     bool   `json:"permanent"`
}

// ParticipantPayload carries a single participant id
type ParticipantPayload struct {
	ParticipantID string `json:"playerId"`
}

// HostChangedPayload is sent when the host flag moves
type HostChangedPayload struct {
	NewHostID string `json:"newHostId"`
}

// RoleAssignedPayload is sent to each player with their role
type RoleAssignedPayload struct {
	Role Role `json:"role"`
}

// WordRevealedPayload is sent to the Master and the Insider only
type WordRevealedPayload struct {
	Word string `json:"word"`
}

// PhaseChangedPayload is sent on every transition
type PhaseChangedPayload struct {
	Phase    Phase `json:"phase"`
	Duration int   `json:"timerRemaining"`
}

// StateUpdatePayload carries a per-recipient projection
type StateUpdatePayload struct {
	View *SessionView `json:"room"`
}

// TimerTickPayload is sent every second while a phase timer runs
type TimerTickPayload struct {
	Remaining int `json:"remaining"`
}

// QuestionAskedPayload announces a new question
type QuestionAskedPayload struct {
	Record Record `json:"question"`
}

// QuestionAnsweredPayload announces the Master's answer
type QuestionAnsweredPayload struct {
	RecordID string `json:"questionId"`
	Answer   Answer `json:"answer"`
}

// GuessPendingPayload asks the Master to judge a non-exact guess
type GuessPendingPayload struct {
	RecordID      string `json:"questionId"`
	ParticipantID string `json:"playerId"`
	Name          string `json:"playerName"`
	Word          string `json:"word"`
}

// GuessApprovedPayload announces the Master's ruling on a guess
type GuessApprovedPayload struct {
	RecordID string `json:"questionId"`
	Approved bool   `json:"approved"`
}

// WordGuessedPayload announces a settled guess
type WordGuessedPayload struct {
	ParticipantID string `json:"playerId"`
	Name          string `json:"playerName"`
	Word          string `json:"word"`
	Correct       bool   `json:"correct"`
}

// VoteReceivedPayload is sent when a vote is cast (without revealing the target)
type VoteReceivedPayload struct {
	VoterID    string `json:"voterId"`
	VotedCount int    `json:"votedCount"`
}

// GameStartedPayload is published when roles are dealt
type GameStartedPayload struct {
	Players  int    `json:"players"`
	MasterID string `json:"masterId"`
}

// GameEndedPayload is sent when a game reaches results
type GameEndedPayload struct {
	Winner    Winner         `json:"winner"`
	InsiderID string         `json:"insiderId"`
	Votes     map[string]int `json:"votes"`
	Reason    string         `json:"reason"`
}

// ErrorPayload is sent when a command is rejected
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
