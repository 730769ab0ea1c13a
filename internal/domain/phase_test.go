package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseWaiting, PhaseRoleReveal, true},
		{PhaseRoleReveal, PhaseWordReveal, true},
		{PhaseWordReveal, PhaseQuestion, true},
		{PhaseQuestion, PhaseDiscussion, true},
		{PhaseQuestion, PhaseResults, true},
		{PhaseQuestion, PhaseVoting, false},
		{PhaseDiscussion, PhaseInitialVote, true},
		{PhaseDiscussion, PhaseResults, false},
		{PhaseInitialVote, PhaseVoting, true},
		{PhaseInitialVote, PhaseResults, true},
		{PhaseVoting, PhaseResults, true},
		{PhaseResults, PhaseWaiting, true},
		{PhaseResults, PhaseRoleReveal, false},
		{PhaseWaiting, PhaseQuestion, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTimings(t *testing.T) {
	d := DefaultTimings()

	assert.Equal(t, 0, d.Duration(PhaseWaiting))
	assert.Equal(t, 5, d.Duration(PhaseRoleReveal))
	assert.Equal(t, 5, d.Duration(PhaseWordReveal))
	assert.Equal(t, 300, d.Duration(PhaseQuestion))
	assert.Equal(t, 300, d.Duration(PhaseDiscussion))
	assert.Equal(t, 30, d.Duration(PhaseInitialVote))
	assert.Equal(t, 30, d.Duration(PhaseVoting))
	assert.Equal(t, 0, d.Duration(PhaseResults))

	// Results never gets a timer even if configured
	d[PhaseResults] = 10
	assert.Equal(t, 0, d.Duration(PhaseResults))
	assert.True(t, PhaseResults.IsTerminal())
}

func TestAnswerValid(t *testing.T) {
	assert.True(t, AnswerYes.Valid())
	assert.True(t, AnswerNo.Valid())
	assert.True(t, AnswerUnknown.Valid())
	assert.False(t, AnswerNone.Valid())
	assert.False(t, Answer("MAYBE").Valid())
}
