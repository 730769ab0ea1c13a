package domain

// SessionView is the redacted snapshot of a session tailored to one viewer
type SessionView struct {
	Code         string            `json:"code"`
	HostID       string            `json:"hostId"`
	Participants []ParticipantView `json:"players"`
	Game         GameView          `json:"gameState"`
}

// GameView is the redacted game state. Hidden fields are left empty.
type GameView struct {
	Phase          Phase              `json:"phase"`
	SecretWord     string             `json:"secretWord"`
	MasterID       string             `json:"masterId"`
	InsiderID      string             `json:"insiderId"`
	Records        []Record           `json:"questions"`
	TimerRemaining int                `json:"timerRemaining"`
	Votes          map[string]string  `json:"votes"`
	InitialVotes   map[string]bool    `json:"initialVotes"`
	Winner         Winner             `json:"winner"`
	WordGuessedBy  string             `json:"wordGuessedBy"`
	VoteCounts     map[string]int     `json:"voteCounts,omitempty"`
	InitialResult  *InitialVoteResult `json:"initialVoteResult,omitempty"`
}

// Participant returns the view of one participant
func (v *SessionView) Participant(id string) (ParticipantView, bool) {
	for _, p := range v.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return ParticipantView{}, false
}
