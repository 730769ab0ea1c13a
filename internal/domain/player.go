package domain

import "time"

// Participant represents a player bound to one session
type Participant struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Role           Role       `json:"role,omitempty"`
	IsHost         bool       `json:"isHost"`
	Connected      bool       `json:"connected"`
	DisconnectedAt *time.Time `json:"disconnectedAt,omitempty"`
	JoinedAt       time.Time  `json:"joinedAt"`

	// TokenHash is the bcrypt hash of the reconnection token issued at join.
	TokenHash []byte `json:"-"`
}

// NewParticipant creates a connected participant with no role
func NewParticipant(id, name string, tokenHash []byte, now time.Time) *Participant {
	return &Participant{
		ID:        id,
		Name:      name,
		Role:      RoleNone,
		Connected: true,
		JoinedAt:  now,
		TokenHash: tokenHash,
	}
}

// IsConnected returns true if the participant is currently connected
func (p *Participant) IsConnected() bool {
	return p.Connected
}

// Disconnect marks the participant as disconnected at the given time
func (p *Participant) Disconnect(at time.Time) {
	p.Connected = false
	p.DisconnectedAt = &at
}

// Reconnect marks the participant as connected
func (p *Participant) Reconnect() {
	p.Connected = true
	p.DisconnectedAt = nil
}

// DisconnectedSince reports whether the participant is disconnected and has
// been since exactly at.
func (p *Participant) DisconnectedSince(at time.Time) bool {
	return !p.Connected && p.DisconnectedAt != nil && p.DisconnectedAt.Equal(at)
}

// ParticipantView is a safe view of participant data; Role is only set when
// the viewer is entitled to see it.
type ParticipantView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	IsHost    bool   `json:"isHost"`
	Connected bool   `json:"connected"`
}

// ToView converts a Participant to ParticipantView, revealing the role only if asked.
func (p *Participant) ToView(revealRole bool) ParticipantView {
	v := ParticipantView{
		ID:        p.ID,
		Name:      p.Name,
		IsHost:    p.IsHost,
		Connected: p.Connected,
	}
	if revealRole {
		v.Role = p.Role
	}
	return v
}
