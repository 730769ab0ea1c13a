package ws

import (
	"encoding/json"
	"errors"

	"insider/internal/domain"
)

// MessageType represents the type of an inbound WebSocket command
type MessageType string

// Client → Server message types
const (
	MsgCreateSession     MessageType = "create_session"
	MsgJoinSession       MessageType = "join_session"
	MsgReconnect         MessageType = "reconnect"
	MsgLeaveSession      MessageType = "leave_session"
	MsgStartGame         MessageType = "start_game"
	MsgResetGame         MessageType = "reset_game"
	MsgAskQuestion       MessageType = "ask_question"
	MsgAnswerQuestion    MessageType = "answer_question"
	MsgGuessWord         MessageType = "guess_word"
	MsgApproveGuess      MessageType = "approve_guess"
	MsgSubmitVote        MessageType = "submit_vote"
	MsgSubmitInitialVote MessageType = "submit_initial_vote"
	MsgPing              MessageType = "ping"
)

// EventPong answers a ping; every other outbound type is a domain event
const EventPong domain.EventType = "pong"

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client message payloads

// CreateSessionPayload is the payload for create_session
type CreateSessionPayload struct {
	Name string `json:"name"`
}

// JoinSessionPayload is the payload for join_session
type JoinSessionPayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ReconnectPayload is the payload for reconnect
type ReconnectPayload struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participantId"`
	Token         string `json:"token"`
}

// AskQuestionPayload is the payload for ask_question
type AskQuestionPayload struct {
	Text string `json:"text"`
}

// AnswerQuestionPayload is the payload for answer_question
type AnswerQuestionPayload struct {
	RecordID string        `json:"recordId"`
	Answer   domain.Answer `json:"answer"`
}

// GuessWordPayload is the payload for guess_word
type GuessWordPayload struct {
	Word string `json:"word"`
}

// ApproveGuessPayload is the payload for approve_guess
type ApproveGuessPayload struct {
	RecordID string `json:"recordId"`
	Approved bool   `json:"approved"`
}

// SubmitVotePayload is the payload for submit_vote
type SubmitVotePayload struct {
	TargetID string `json:"targetId"`
}

// SubmitInitialVotePayload is the payload for submit_initial_vote
type SubmitInitialVotePayload struct {
	VotesYes bool `json:"votesYes"`
}

// Error codes
const (
	ErrCodeInvalidMessage     = "INVALID_MESSAGE"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeNotInSession       = "NOT_IN_SESSION"
	ErrCodeAlreadyInSession   = "ALREADY_IN_SESSION"
	ErrCodeRoomFull           = "ROOM_FULL"
	ErrCodeNotJoinable        = "NOT_JOINABLE"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeNotHost            = "NOT_HOST"
	ErrCodePlayerCount        = "PLAYER_COUNT"
	ErrCodeWrongPhase         = "WRONG_PHASE"
	ErrCodeWrongRole          = "WRONG_ROLE"
	ErrCodeInvalidTarget      = "INVALID_TARGET"
	ErrCodeRecordNotFound     = "RECORD_NOT_FOUND"
	ErrCodeAlreadyAnswered    = "ALREADY_ANSWERED"
	ErrCodeNotPending         = "NOT_PENDING_APPROVAL"
	ErrCodeInvalidAnswer      = "INVALID_ANSWER"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrSessionNotFound, ErrCodeSessionNotFound},
	{domain.ErrParticipantNotFound, ErrCodeNotInSession},
	{domain.ErrAlreadyInSession, ErrCodeAlreadyInSession},
	{domain.ErrRoomFull, ErrCodeRoomFull},
	{domain.ErrNotJoinable, ErrCodeNotJoinable},
	{domain.ErrInvalidCredentials, ErrCodeInvalidCredentials},
	{domain.ErrNotHost, ErrCodeNotHost},
	{domain.ErrPlayerCount, ErrCodePlayerCount},
	{domain.ErrWrongPhase, ErrCodeWrongPhase},
	{domain.ErrWrongRole, ErrCodeWrongRole},
	{domain.ErrInvalidTarget, ErrCodeInvalidTarget},
	{domain.ErrRecordNotFound, ErrCodeRecordNotFound},
	{domain.ErrAlreadyAnswered, ErrCodeAlreadyAnswered},
	{domain.ErrNotPendingApproval, ErrCodeNotPending},
	{domain.ErrInvalidAnswer, ErrCodeInvalidAnswer},
	{domain.ErrEmptyText, ErrCodeInvalidMessage},
}

// errorCode maps a domain error to its wire code
func errorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ErrCodeInternalError
}
