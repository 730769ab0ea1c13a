package domain

import (
	"sort"
	"time"
)

const (
	// MinPlayers is the fewest participants a game can start with
	MinPlayers = 4

	// MaxPlayers is the most participants a session can hold
	MaxPlayers = 8
)

// Session represents one game room
type Session struct {
	Code         string                  `json:"code"`
	HostID       string                  `json:"hostId"`
	Participants map[string]*Participant `json:"players"`
	Game         *GameState              `json:"gameState"`
	CreatedAt    time.Time               `json:"createdAt"`
	LastActivity time.Time               `json:"lastActivity"`
}

// NewSession creates a session whose only participant is the host
func NewSession(code string, host *Participant, now time.Time) *Session {
	host.IsHost = true
	return &Session{
		Code:         code,
		HostID:       host.ID,
		Participants: map[string]*Participant{host.ID: host},
		Game:         NewGameState(),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Participant returns a participant by ID
func (s *Session) Participant(id string) (*Participant, error) {
	p, ok := s.Participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

// Size returns the number of participants
func (s *Session) Size() int {
	return len(s.Participants)
}

// AddParticipant adds a participant to the session
func (s *Session) AddParticipant(p *Participant) error {
	if len(s.Participants) >= MaxPlayers {
		return ErrRoomFull
	}
	if s.Game.Phase != PhaseWaiting {
		return ErrNotJoinable
	}
	s.Participants[p.ID] = p
	return nil
}

// RemoveParticipant removes a participant. If the host left, the flag moves to
// another remaining participant whose ID is returned.
func (s *Session) RemoveParticipant(id string) (wasHost bool, newHostID string, err error) {
	p, ok := s.Participants[id]
	if !ok {
		return false, "", ErrParticipantNotFound
	}

	delete(s.Participants, id)
	wasHost = p.IsHost

	// If host left, the longest-standing participant takes over
	if wasHost && len(s.Participants) > 0 {
		next := s.Ordered()[0]
		next.IsHost = true
		s.HostID = next.ID
		newHostID = next.ID
	}

	return wasHost, newHostID, nil
}

// IsHost checks if the given participant is the host
func (s *Session) IsHost(id string) bool {
	return s.HostID == id
}

// ConnectedCount returns the number of connected participants
func (s *Session) ConnectedCount() int {
	count := 0
	for _, p := range s.Participants {
		if p.IsConnected() {
			count++
		}
	}
	return count
}

// ParticipantIDs returns participant IDs ordered by join time
func (s *Session) ParticipantIDs() []string {
	ps := s.Ordered()
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}

// EligibleVoterCount returns how many participants may accuse, i.e. everyone but the Master
func (s *Session) EligibleVoterCount() int {
	count := 0
	for id := range s.Participants {
		if id != s.Game.MasterID {
			count++
		}
	}
	return count
}

// ClearRoles sets every participant's role back to none
func (s *Session) ClearRoles() {
	for _, p := range s.Participants {
		p.Role = RoleNone
	}
}

// Touch records activity on the session
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// Ordered returns participants sorted by join time, then ID
func (s *Session) Ordered() []*Participant {
	ps := make([]*Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].JoinedAt.Equal(ps[j].JoinedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].JoinedAt.Before(ps[j].JoinedAt)
	})
	return ps
}
