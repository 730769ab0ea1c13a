package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider/internal/domain"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "insider.events.game_ended", Subject("insider.events", domain.EventGameEnded))
	assert.Equal(t, "x.session_created", Subject("x", domain.EventSessionCreated))
}

func TestEncode(t *testing.T) {
	event := domain.NewEvent(domain.EventGameStarted, "ABCD", &domain.GameStartedPayload{Players: 5, MasterID: "m"})

	msg, err := Encode("insider.events", event)
	require.NoError(t, err)

	assert.Equal(t, "insider.events.game_started", msg.Subject)
	assert.Equal(t, event.ID, msg.Header.Get("Event-ID"))
	assert.Equal(t, "ABCD", msg.Header.Get("Session-Code"))

	var env struct {
		EventID     string `json:"eventId"`
		EventType   string `json:"eventType"`
		SessionCode string `json:"sessionCode"`
		Payload     struct {
			Players  int    `json:"players"`
			MasterID string `json:"masterId"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, event.ID, env.EventID)
	assert.Equal(t, "game_started", env.EventType)
	assert.Equal(t, "ABCD", env.SessionCode)
	assert.Equal(t, 5, env.Payload.Players)
	assert.Equal(t, "m", env.Payload.MasterID)
}
