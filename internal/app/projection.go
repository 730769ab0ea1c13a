package app

import (
	"maps"

	"insider/internal/domain"
)

// Project derives the view of s that forID is entitled to see. An empty
// forID gets the view of an outside observer.
func (r *Registry) Project(s *domain.Session, forID string) *domain.SessionView {
	return Project(s, forID)
}

// Project derives the view of s that forID is entitled to see
func Project(s *domain.Session, forID string) *domain.SessionView {
	g := s.Game
	results := g.Phase == domain.PhaseResults

	view := &domain.SessionView{
		Code:         s.Code,
		HostID:       s.HostID,
		Participants: make([]domain.ParticipantView, 0, s.Size()),
	}

	for _, p := range s.Ordered() {
		own := forID != "" && p.ID == forID && g.Phase != domain.PhaseWaiting
		view.Participants = append(view.Participants, p.ToView(results || own))
	}

	privileged := forID != "" && (forID == g.MasterID || forID == g.InsiderID)

	gv := domain.GameView{
		Phase:          g.Phase,
		MasterID:       g.MasterID,
		Records:        make([]domain.Record, len(g.Records)),
		TimerRemaining: g.TimerRemaining,
		Votes:          make(map[string]string),
		InitialVotes:   maps.Clone(g.InitialVotes),
		Winner:         g.Winner,
		WordGuessedBy:  g.WordGuessedBy,
	}
	if gv.InitialVotes == nil {
		gv.InitialVotes = make(map[string]bool)
	}

	for i, rec := range g.Records {
		gv.Records[i] = rec.Copy()
	}

	if results || privileged {
		gv.SecretWord = g.SecretWord
	}

	if results {
		gv.InsiderID = g.InsiderID
		gv.Votes = maps.Clone(g.Votes)
		gv.VoteCounts = g.VoteCounts()
	}

	if g.InitialResult != nil {
		res := *g.InitialResult
		gv.InitialResult = &res
	}

	view.Game = gv
	return view
}
