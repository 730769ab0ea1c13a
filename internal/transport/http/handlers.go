package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/skip2/go-qrcode"

	"insider/internal/app"
	"insider/internal/domain"
)

const qrSize = 256

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomExistsResponse is the response for checking if room exists
type RoomExistsResponse struct {
	Exists bool `json:"exists"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveSessions int `json:"activeSessions"`
	Participants   int `json:"participants"`
	Connections    int `json:"connections"`
}

// handleGetRoom handles GET /api/rooms/{roomCode}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Registry().Summary(mux.Vars(r)["roomCode"])
	if err != nil {
		s.sendLookupError(w, err)
		return
	}

	s.sendSuccess(w, summary)
}

// handleRoomExists handles GET /api/rooms/{roomCode}/exists
func (s *Server) handleRoomExists(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &RoomExistsResponse{
		Exists: s.engine.Registry().Exists(mux.Vars(r)["roomCode"]),
	})
}

// handleRoomQR handles GET /api/rooms/{roomCode}/qr with a PNG invite code
func (s *Server) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	code := app.NormalizeCode(mux.Vars(r)["roomCode"])
	if !s.engine.Registry().Exists(code) {
		s.sendLookupError(w, domain.ErrSessionNotFound)
		return
	}

	png, err := qrcode.Encode(s.inviteLink(code), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error().Err(err).Str("code", code).Msg("encode invite QR")
		s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, &StatsResponse{
		ActiveSessions: s.engine.Registry().Count(),
		Participants:   s.engine.Registry().ParticipantCount(),
		Connections:    s.hub.Count(),
	})
}

// inviteLink is the URL a QR code points at
func (s *Server) inviteLink(code string) string {
	return strings.TrimRight(s.config.Server.PublicURL, "/") + "/join/" + code
}

func (s *Server) sendLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.sendError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
		return
	}
	s.sendError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
