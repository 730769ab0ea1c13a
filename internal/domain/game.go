package domain

import "strings"

// GameState holds the mutable state of one game inside a session
type GameState struct {
	Phase          Phase              `json:"phase"`
	SecretWord     string             `json:"secretWord"`
	MasterID       string             `json:"masterId"`
	InsiderID      string             `json:"insiderId"`
	Records        []*Record          `json:"questions"`
	TimerRemaining int                `json:"timerRemaining"`
	Votes          map[string]string  `json:"votes"`
	InitialVotes   map[string]bool    `json:"initialVotes"`
	Winner         Winner             `json:"winner"`
	WordGuessedBy  string             `json:"wordGuessedBy"`
	InitialResult  *InitialVoteResult `json:"initialVoteResult,omitempty"`
	EndReason      string             `json:"endReason,omitempty"`

	// voteOrder lists voters in the order they first voted; it drives the
	// accusation tie-break.
	voteOrder []string
}

// NewGameState creates a game in the waiting phase
func NewGameState() *GameState {
	g := &GameState{}
	g.Reset()
	return g
}

// Reset clears the game in place back to the waiting phase
func (g *GameState) Reset() {
	g.Phase = PhaseWaiting
	g.SecretWord = ""
	g.MasterID = ""
	g.InsiderID = ""
	g.Records = make([]*Record, 0)
	g.TimerRemaining = 0
	g.Votes = make(map[string]string)
	g.InitialVotes = make(map[string]bool)
	g.Winner = WinnerNone
	g.WordGuessedBy = ""
	g.InitialResult = nil
	g.EndReason = ""
	g.voteOrder = nil
}

// FindRecord returns the record with the given id
func (g *GameState) FindRecord(id string) (*Record, bool) {
	for _, r := range g.Records {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// AddRecord appends a question or guess
func (g *GameState) AddRecord(r *Record) {
	g.Records = append(g.Records, r)
}

// IsSecretWord compares a guess with the secret word, ignoring case and
// surrounding whitespace.
func (g *GameState) IsSecretWord(guess string) bool {
	if g.SecretWord == "" {
		return false
	}
	return normalizeWord(guess) == normalizeWord(g.SecretWord)
}

func normalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CastVote records an accusation, replacing any earlier vote by the same voter
func (g *GameState) CastVote(voterID, targetID string) {
	if _, voted := g.Votes[voterID]; !voted {
		g.voteOrder = append(g.voteOrder, voterID)
	}
	g.Votes[voterID] = targetID
}

// CastInitialVote records a yes/no on whether the guesser is the Insider
func (g *GameState) CastInitialVote(voterID string, yes bool) {
	g.InitialVotes[voterID] = yes
}

// DropVoter forgets every vote cast by a participant who left
func (g *GameState) DropVoter(voterID string) {
	delete(g.Votes, voterID)
	delete(g.InitialVotes, voterID)
	for i, id := range g.voteOrder {
		if id == voterID {
			g.voteOrder = append(g.voteOrder[:i:i], g.voteOrder[i+1:]...)
			break
		}
	}
}

// End moves the game to results
func (g *GameState) End(winner Winner, reason string) {
	g.Winner = winner
	g.EndReason = reason
	g.Phase = PhaseResults
	g.TimerRemaining = 0
}
