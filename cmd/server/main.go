package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"insider/internal/app"
	"insider/internal/config"
	"insider/internal/domain"
	"insider/internal/feed"
	httpTransport "insider/internal/transport/http"
	"insider/internal/transport/ws"
)

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load configuration")
	}

	logger := newLogger(cfg.Logging)

	logger.Info().
		Str("env", cfg.Server.Env).
		Str("port", cfg.Server.Port).
		Msg("starting insider game server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}

	logger.Info().Msg("server stopped")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	words := app.DefaultWords
	if cfg.Game.WordsFile != "" {
		loaded, err := app.LoadWords(cfg.Game.WordsFile)
		if err != nil {
			return err
		}
		words = loaded
	}

	var publisher app.Publisher
	if cfg.Feed.NATSURL != "" {
		fcfg := feed.DefaultConfig()
		fcfg.URL = cfg.Feed.NATSURL
		fcfg.StreamName = cfg.Feed.StreamName
		fcfg.SubjectPrefix = cfg.Feed.SubjectPrefix

		jsp, err := feed.NewJetStreamPublisher(ctx, fcfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := jsp.Close(closeCtx); err != nil {
				logger.Warn().Err(err).Msg("close event feed")
			}
		}()
		publisher = jsp
	}

	clock := clockwork.NewRealClock()
	opts := app.DefaultRegistryOptions()
	if cfg.Game.TokenCost > 0 {
		opts.TokenCost = cfg.Game.TokenCost
	}
	if cfg.Game.StaleSessionTimeout > 0 {
		opts.StaleTimeout = cfg.Game.StaleSessionTimeout
	}
	registry := app.NewRegistry(clock, logger, opts)
	hub := ws.NewHub(logger)
	engine := app.NewEngine(
		registry,
		app.NewCountdown(clock, logger),
		app.NewWordPool(words),
		hub,
		logger,
		app.WithPublisher(publisher),
		app.WithSettings(app.Settings{
			Timings:        timings(cfg.Game.Durations),
			ReconnectGrace: cfg.Game.ReconnectGracePeriod,
		}),
	)

	server := httpTransport.NewServer(cfg, engine, hub, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		registry.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		engine.Close()
		hub.CloseAll()
		return err
	})

	return g.Wait()
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "text" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

func timings(d config.PhaseDurations) domain.Timings {
	return domain.Timings{
		domain.PhaseRoleReveal:  d.RoleReveal,
		domain.PhaseWordReveal:  d.WordReveal,
		domain.PhaseQuestion:    d.Question,
		domain.PhaseDiscussion:  d.Discussion,
		domain.PhaseInitialVote: d.InitialVote,
		domain.PhaseVoting:      d.Voting,
	}
}
