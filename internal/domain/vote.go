package domain

// InitialVoteResult is the outcome of the "is the guesser the Insider" vote
type InitialVoteResult struct {
	YesCount         int  `json:"yesCount"`
	NoCount          int  `json:"noCount"`
	GuesserIsInsider bool `json:"guesserIsInsider"`
}

// Majority reports whether yes votes strictly outnumber no votes
func (r InitialVoteResult) Majority() bool {
	return r.YesCount > r.NoCount
}

// TallyInitialVotes counts yes and no votes
func (g *GameState) TallyInitialVotes() InitialVoteResult {
	res := InitialVoteResult{
		GuesserIsInsider: g.WordGuessedBy != "" && g.WordGuessedBy == g.InsiderID,
	}
	for _, yes := range g.InitialVotes {
		if yes {
			res.YesCount++
		} else {
			res.NoCount++
		}
	}
	return res
}

// VoteCounts groups accusation votes by target
func (g *GameState) VoteCounts() map[string]int {
	counts := make(map[string]int, len(g.Votes))
	for _, target := range g.Votes {
		counts[target]++
	}
	return counts
}

// MostVoted returns the target with the strictly highest vote count. On a
// tie, the tied target that first received a vote wins, where voters are
// ordered by when they first voted. Returns "" when nobody voted.
func (g *GameState) MostVoted() string {
	counts := g.VoteCounts()

	// Targets in order of first appearance
	seen := make(map[string]bool, len(counts))
	order := make([]string, 0, len(counts))
	for _, voterID := range g.voteOrder {
		target, ok := g.Votes[voterID]
		if !ok || seen[target] {
			continue
		}
		seen[target] = true
		order = append(order, target)
	}

	maxVotes := 0
	mostVoted := ""
	for _, target := range order {
		if counts[target] > maxVotes {
			maxVotes = counts[target]
			mostVoted = target
		}
	}
	return mostVoted
}
