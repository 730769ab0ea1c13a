package domain

import "errors"

// Domain errors
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAlreadyInSession    = errors.New("participant already in a session")
	ErrRoomFull            = errors.New("session is full")
	ErrNotJoinable         = errors.New("game already in progress")
	ErrInvalidCredentials  = errors.New("invalid reconnection credentials")
	ErrCodeExhausted       = errors.New("failed to generate unique session code")
	ErrNotHost             = errors.New("only host can perform this action")
	ErrPlayerCount         = errors.New("need 4 to 8 players to start")
	ErrWrongPhase          = errors.New("invalid action for current phase")
	ErrWrongRole           = errors.New("action not allowed for your role")
	ErrInvalidTarget       = errors.New("invalid vote target")
	ErrRecordNotFound      = errors.New("question not found")
	ErrAlreadyAnswered     = errors.New("question already answered")
	ErrNotPendingApproval  = errors.New("guess is not pending approval")
	ErrInvalidAnswer       = errors.New("invalid answer")
	ErrEmptyText           = errors.New("text cannot be empty")
)
