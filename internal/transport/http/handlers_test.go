package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"insider/internal/app"
	"insider/internal/config"
	"insider/internal/domain"
	"insider/internal/transport/ws"
)

func newTestServer(t *testing.T) (*Server, *app.Engine) {
	t.Helper()

	logger := zerolog.Nop()
	clock := clockwork.NewFakeClock()
	registry := app.NewRegistry(clock, logger, app.RegistryOptions{TokenCost: bcrypt.MinCost})
	hub := ws.NewHub(logger)
	engine := app.NewEngine(registry, app.NewCountdown(clock, logger), app.NewWordPool(nil), hub, logger)
	t.Cleanup(engine.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			AllowedOrigins: []string{"https://play.example"},
			PublicURL:      "https://play.example/",
		},
	}
	return NewServer(cfg, engine, hub, logger), engine
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) Response {
	t.Helper()

	resp := Response{Data: data}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	resp := decode(t, rec, &health)
	assert.True(t, resp.Success)
	assert.Equal(t, "ok", health.Status)
}

func TestRoomLookup(t *testing.T) {
	s, engine := newTestServer(t)

	adm, err := engine.CreateSession("host", "Host")
	require.NoError(t, err)

	rec := get(t, s, "/api/rooms/"+strings.ToLower(adm.Code))
	require.Equal(t, http.StatusOK, rec.Code)
	var summary app.RoomSummary
	decode(t, rec, &summary)
	assert.Equal(t, adm.Code, summary.Code)
	assert.Equal(t, 1, summary.PlayerCount)
	assert.Equal(t, domain.PhaseWaiting, summary.Phase)
	assert.True(t, summary.CanJoin)

	var exists RoomExistsResponse
	decode(t, get(t, s, "/api/rooms/"+adm.Code+"/exists"), &exists)
	assert.True(t, exists.Exists)

	decode(t, get(t, s, "/api/rooms/ZZZZ/exists"), &exists)
	assert.False(t, exists.Exists)

	rec = get(t, s, "/api/rooms/ZZZZ")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec, nil)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ROOM_NOT_FOUND", resp.Error.Code)
}

func TestRoomQR(t *testing.T) {
	s, engine := newTestServer(t)

	adm, err := engine.CreateSession("host", "Host")
	require.NoError(t, err)

	rec := get(t, s, "/api/rooms/"+adm.Code+"/qr")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	assert.Equal(t, "https://play.example/join/"+adm.Code, s.inviteLink(adm.Code))

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/rooms/ZZZZ/qr").Code)
}

func TestStats(t *testing.T) {
	s, engine := newTestServer(t)

	adm, err := engine.CreateSession("p1", "One")
	require.NoError(t, err)
	_, err = engine.JoinSession(adm.Code, "p2", "Two")
	require.NoError(t, err)

	var stats StatsResponse
	decode(t, get(t, s, "/api/stats"), &stats)
	assert.Equal(t, StatsResponse{ActiveSessions: 1, Participants: 2}, stats)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://play.example")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://play.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	allow := s.originAllowed()
	require.NotNil(t, allow)
	assert.True(t, allow("https://play.example"))
	assert.False(t, allow("https://evil.example"))
}
