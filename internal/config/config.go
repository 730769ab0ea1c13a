package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Logging LoggingConfig
	Feed    FeedConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string
	Host           string
	Env            string // "development" or "production"
	AllowedOrigins []string
	PublicURL      string // base URL used in invite QR codes
}

// GameConfig holds game-related configuration
type GameConfig struct {
	ReconnectGracePeriod time.Duration
	StaleSessionTimeout  time.Duration
	TokenCost            int
	WordsFile            string
	Durations            PhaseDurations
}

// PhaseDurations are countdown lengths in seconds
type PhaseDurations struct {
	RoleReveal  int `yaml:"role_reveal"`
	WordReveal  int `yaml:"word_reveal"`
	Question    int `yaml:"question"`
	Discussion  int `yaml:"discussion"`
	InitialVote int `yaml:"initial_vote"`
	Voting      int `yaml:"voting"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// FeedConfig holds the optional NATS JetStream event feed settings.
// The feed is disabled when NATSURL is empty.
type FeedConfig struct {
	NATSURL       string
	StreamName    string
	SubjectPrefix string
}

// gameFile is the YAML overlay for game tuning
type gameFile struct {
	ReconnectGracePeriod string          `yaml:"reconnect_grace_period"`
	StaleSessionTimeout  string          `yaml:"stale_session_timeout"`
	WordsFile            string          `yaml:"words_file"`
	Durations            *PhaseDurations `yaml:"durations"`
}

// Load loads configuration from environment variables with defaults, then
// applies the YAML game file named by GAME_CONFIG_FILE if set.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Host:           getEnv("HOST", "0.0.0.0"),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
			PublicURL:      getEnv("PUBLIC_URL", "http://localhost:8080"),
		},
		Game: GameConfig{
			ReconnectGracePeriod: getEnvDuration("RECONNECT_GRACE_PERIOD", 2*time.Minute),
			StaleSessionTimeout:  getEnvDuration("STALE_SESSION_TIMEOUT", 2*time.Hour),
			TokenCost:            getEnvInt("TOKEN_COST", 10),
			WordsFile:            getEnv("WORDS_FILE", ""),
			Durations: PhaseDurations{
				RoleReveal:  getEnvInt("ROLE_REVEAL_SECONDS", 5),
				WordReveal:  getEnvInt("WORD_REVEAL_SECONDS", 5),
				Question:    getEnvInt("QUESTION_SECONDS", 300),
				Discussion:  getEnvInt("DISCUSSION_SECONDS", 300),
				InitialVote: getEnvInt("INITIAL_VOTE_SECONDS", 30),
				Voting:      getEnvInt("VOTING_SECONDS", 30),
			},
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Feed: FeedConfig{
			NATSURL:       getEnv("NATS_URL", ""),
			StreamName:    getEnv("FEED_STREAM", "INSIDER_EVENTS"),
			SubjectPrefix: getEnv("FEED_SUBJECT_PREFIX", "insider.events"),
		},
	}

	if path := getEnv("GAME_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyGameFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyGameFile overlays the non-empty fields of a YAML game file
func (c *Config) applyGameFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read game config: %w", err)
	}

	var f gameFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse game config: %w", err)
	}

	if f.ReconnectGracePeriod != "" {
		d, err := time.ParseDuration(f.ReconnectGracePeriod)
		if err != nil {
			return fmt.Errorf("reconnect_grace_period: %w", err)
		}
		c.Game.ReconnectGracePeriod = d
	}
	if f.StaleSessionTimeout != "" {
		d, err := time.ParseDuration(f.StaleSessionTimeout)
		if err != nil {
			return fmt.Errorf("stale_session_timeout: %w", err)
		}
		c.Game.StaleSessionTimeout = d
	}
	if f.WordsFile != "" {
		c.Game.WordsFile = f.WordsFile
	}
	if d := f.Durations; d != nil {
		overlay(&c.Game.Durations.RoleReveal, d.RoleReveal)
		overlay(&c.Game.Durations.WordReveal, d.WordReveal)
		overlay(&c.Game.Durations.Question, d.Question)
		overlay(&c.Game.Durations.Discussion, d.Discussion)
		overlay(&c.Game.Durations.InitialVote, d.InitialVote)
		overlay(&c.Game.Durations.Voting, d.Voting)
	}

	return nil
}

func overlay(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as an integer or a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvList splits a comma separated variable
func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
