package app

import "insider/internal/domain"

// Notifier delivers events to a single participant. Implementations must not
// block; delivery is fire-and-forget.
type Notifier interface {
	Notify(participantID string, event *domain.GameEvent)
}

// Publisher forwards session lifecycle events to an outside feed
type Publisher interface {
	Publish(event *domain.GameEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(*domain.GameEvent) {}
