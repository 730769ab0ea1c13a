package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.GetAddr())
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Minute, cfg.Game.ReconnectGracePeriod)
	assert.Equal(t, 2*time.Hour, cfg.Game.StaleSessionTimeout)
	assert.Equal(t, PhaseDurations{
		RoleReveal:  5,
		WordReveal:  5,
		Question:    300,
		Discussion:  300,
		InitialVote: 30,
		Voting:      30,
	}, cfg.Game.Durations)
	assert.Empty(t, cfg.Feed.NATSURL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RECONNECT_GRACE_PERIOD", "45")
	t.Setenv("STALE_SESSION_TIMEOUT", "30m")
	t.Setenv("QUESTION_SECONDS", "120")
	t.Setenv("VOTING_SECONDS", "not a number")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 45*time.Second, cfg.Game.ReconnectGracePeriod)
	assert.Equal(t, 30*time.Minute, cfg.Game.StaleSessionTimeout)
	assert.Equal(t, 120, cfg.Game.Durations.Question)
	assert.Equal(t, 30, cfg.Game.Durations.Voting)
	assert.Equal(t, "nats://localhost:4222", cfg.Feed.NATSURL)
}

func writeGameFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadGameFile(t *testing.T) {
	t.Setenv("QUESTION_SECONDS", "120")
	t.Setenv("GAME_CONFIG_FILE", writeGameFile(t, `
reconnect_grace_period: 90s
words_file: /etc/insider/words.yaml
durations:
  role_reveal: 3
  discussion: 60
`))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Game.ReconnectGracePeriod)
	assert.Equal(t, 2*time.Hour, cfg.Game.StaleSessionTimeout)
	assert.Equal(t, "/etc/insider/words.yaml", cfg.Game.WordsFile)
	assert.Equal(t, 3, cfg.Game.Durations.RoleReveal)
	assert.Equal(t, 60, cfg.Game.Durations.Discussion)
	// Unset fields keep their env or default values
	assert.Equal(t, 120, cfg.Game.Durations.Question)
	assert.Equal(t, 5, cfg.Game.Durations.WordReveal)
}

func TestLoadGameFileErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"bad yaml", func(t *testing.T) string { return writeGameFile(t, "durations: [1, 2") }},
		{"bad duration", func(t *testing.T) string { return writeGameFile(t, "stale_session_timeout: soon") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GAME_CONFIG_FILE", tt.path(t))
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
