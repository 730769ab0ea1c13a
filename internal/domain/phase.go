package domain

// Phase represents the current phase of a game
type Phase string

const (
	PhaseWaiting     Phase = "WAITING"      // Lobby, players joining
	PhaseRoleReveal  Phase = "ROLE_REVEAL"  // Each player sees their own role
	PhaseWordReveal  Phase = "WORD_REVEAL"  // Master and Insider see the word
	PhaseQuestion    Phase = "QUESTION"     // Yes/no questions and guesses
	PhaseDiscussion  Phase = "DISCUSSION"   // Word found, talk it over
	PhaseInitialVote Phase = "INITIAL_VOTE" // Is the guesser the Insider?
	PhaseVoting      Phase = "VOTING"       // Accuse a player
	PhaseResults     Phase = "RESULTS"      // Everything revealed
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// IsTerminal reports whether the phase has no successor without a reset.
func (p Phase) IsTerminal() bool {
	return p == PhaseResults
}

// CanTransitionTo checks if a transition from current phase to target phase is valid.
// Resetting to PhaseWaiting is always allowed and is not checked here.
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseWaiting:     {PhaseRoleReveal},
		PhaseRoleReveal:  {PhaseWordReveal},
		PhaseWordReveal:  {PhaseQuestion},
		PhaseQuestion:    {PhaseDiscussion, PhaseResults},
		PhaseDiscussion:  {PhaseInitialVote},
		PhaseInitialVote: {PhaseVoting, PhaseResults},
		PhaseVoting:      {PhaseResults},
		PhaseResults:     {PhaseWaiting},
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}

// Timings maps each timed phase to its countdown length in seconds.
// Phases missing from the map (WAITING, RESULTS) have no timer.
type Timings map[Phase]int

// DefaultTimings returns the standard phase durations
func DefaultTimings() Timings {
	return Timings{
		PhaseRoleReveal:  5,
		PhaseWordReveal:  5,
		PhaseQuestion:    300,
		PhaseDiscussion:  300,
		PhaseInitialVote: 30,
		PhaseVoting:      30,
	}
}

// Duration returns the countdown length for a phase, 0 when untimed.
func (t Timings) Duration(p Phase) int {
	if p == PhaseWaiting || p == PhaseResults {
		return 0
	}
	return t[p]
}
