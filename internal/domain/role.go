package domain

// Role represents a player's role in a game
type Role string

const (
	RoleNone    Role = ""
	RoleMaster  Role = "MASTER"
	RoleInsider Role = "INSIDER"
	RoleCommon  Role = "COMMON"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// KnowsWord returns true if this role is told the secret word
func (r Role) KnowsWord() bool {
	return r == RoleMaster || r == RoleInsider
}

// Winner identifies the side that won a finished game
type Winner string

const (
	WinnerNone    Winner = ""
	WinnerInsider Winner = "INSIDER"
	WinnerCommons Winner = "COMMONS"
)

// Answer is the Master's reply to a question or guess
type Answer string

const (
	AnswerNone    Answer = ""
	AnswerYes     Answer = "YES"
	AnswerNo      Answer = "NO"
	AnswerUnknown Answer = "I_DONT_KNOW"
)

// Valid reports whether a is one of the answers the Master may give.
func (a Answer) Valid() bool {
	switch a {
	case AnswerYes, AnswerNo, AnswerUnknown:
		return true
	}
	return false
}
