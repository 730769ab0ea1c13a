package domain

import "time"

// Record is a logged question or word guess together with its answer
type Record struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"playerId"`
	AuthorName string    `json:"playerName"`
	Text       string    `json:"text"`
	Answer     Answer    `json:"answer"`
	IsGuess    bool      `json:"isGuess"`
	CreatedAt  time.Time `json:"createdAt"`

	// Guess-only fields
	GuessedWord     string `json:"guessedWord,omitempty"`
	GuessCorrect    *bool  `json:"guessCorrect,omitempty"`
	PendingApproval bool   `json:"pendingMasterApproval,omitempty"`
}

// NewQuestion creates an unanswered question
func NewQuestion(id string, author *Participant, text string, now time.Time) *Record {
	return &Record{
		ID:         id,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Text:       text,
		Answer:     AnswerNone,
		CreatedAt:  now,
	}
}

// NewGuess creates a guess record. An exact guess is answered YES at once;
// anything else waits for the Master.
func NewGuess(id string, author *Participant, word string, exact bool, now time.Time) *Record {
	r := &Record{
		ID:          id,
		AuthorID:    author.ID,
		AuthorName:  author.Name,
		Text:        `Guessed: "` + word + `"`,
		Answer:      AnswerNone,
		IsGuess:     true,
		CreatedAt:   now,
		GuessedWord: word,
	}
	if exact {
		correct := true
		r.Answer = AnswerYes
		r.GuessCorrect = &correct
	} else {
		r.PendingApproval = true
	}
	return r
}

// IsAnswered returns true once the Master has answered
func (r *Record) IsAnswered() bool {
	return r.Answer != AnswerNone
}

// Resolve settles a pending guess
func (r *Record) Resolve(approved bool) {
	r.PendingApproval = false
	r.GuessCorrect = &approved
	if approved {
		r.Answer = AnswerYes
	} else {
		r.Answer = AnswerNo
	}
}

// Copy returns a deep copy safe to hand outside the owning session
func (r *Record) Copy() Record {
	c := *r
	if r.GuessCorrect != nil {
		v := *r.GuessCorrect
		c.GuessCorrect = &v
	}
	return c
}
