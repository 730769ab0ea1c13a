package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"insider/internal/app"
)

// Handler upgrades HTTP requests to game connections
type Handler struct {
	engine   *app.Engine
	hub      *Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler. allowOrigin decides whether a
// browser origin may connect; nil allows all.
func NewHandler(engine *app.Engine, hub *Hub, allowOrigin func(origin string) bool, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowOrigin == nil {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || allowOrigin(origin)
			},
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP handles WebSocket upgrade requests. Every connection starts with
// a fresh participant id; reconnect rebinds it to an earlier one.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	participantID := uuid.NewString()
	client := NewClient(conn, h.engine, h.hub, participantID, h.logger)
	h.hub.Register(participantID, client)

	h.logger.Debug().Str("participant", participantID).Str("remote", r.RemoteAddr).Msg("websocket connected")

	client.Run()
}
