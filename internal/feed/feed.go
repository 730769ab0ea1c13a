// Package feed publishes session lifecycle events to NATS JetStream.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"insider/internal/domain"
)

// Config configures the JetStream publisher
type Config struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	DuplicateWindow time.Duration
	MaxPending      int
}

// DefaultConfig returns the standard stream layout
func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		StreamName:      "INSIDER_EVENTS",
		SubjectPrefix:   "insider.events",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		MaxPending:      256,
	}
}

// Envelope is the JSON body of every feed message
type Envelope struct {
	EventID     string           `json:"eventId"`
	EventType   domain.EventType `json:"eventType"`
	SessionCode string           `json:"sessionCode"`
	Timestamp   time.Time        `json:"timestamp"`
	Payload     interface{}      `json:"payload,omitempty"`
}

// Subject returns the subject an event type is published on
func Subject(prefix string, eventType domain.EventType) string {
	return fmt.Sprintf("%s.%s", prefix, eventType)
}

// Encode builds the NATS message for an event
func Encode(prefix string, event *domain.GameEvent) (*nats.Msg, error) {
	data, err := json.Marshal(Envelope{
		EventID:     event.ID,
		EventType:   event.Type,
		SessionCode: event.SessionCode,
		Timestamp:   event.Timestamp,
		Payload:     event.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	return &nats.Msg{
		Subject: Subject(prefix, event.Type),
		Data:    data,
		Header: nats.Header{
			"Event-Type":   []string{string(event.Type)},
			"Event-ID":     []string{event.ID},
			"Session-Code": []string{event.SessionCode},
		},
	}, nil
}

// JetStreamPublisher publishes events asynchronously to a JetStream stream
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config Config
	logger zerolog.Logger
}

// NewJetStreamPublisher connects to NATS and makes sure the stream exists
func NewJetStreamPublisher(ctx context.Context, cfg Config, logger zerolog.Logger) (*JetStreamPublisher, error) {
	logger = logger.With().Str("component", "feed").Logger()

	opts := []nats.Option{
		nats.Name("insider"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc,
		jetstream.WithPublishAsyncMaxPending(cfg.MaxPending),
		jetstream.WithPublishAsyncErrHandler(func(_ jetstream.JetStream, msg *nats.Msg, err error) {
			logger.Warn().Err(err).Str("subject", msg.Subject).Msg("feed publish failed")
		}),
	)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg, logger: logger}

	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Insider session lifecycle events",
		Subjects:    []string{p.config.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.FileStorage,
		Duplicates:  p.config.DuplicateWindow,
	})
	if err != nil {
		return err
	}

	p.logger.Info().Str("stream", p.config.StreamName).Msg("JetStream stream ready")
	return nil
}

// Publish queues an event without waiting for the acknowledgement
func (p *JetStreamPublisher) Publish(event *domain.GameEvent) {
	msg, err := Encode(p.config.SubjectPrefix, event)
	if err != nil {
		p.logger.Error().Err(err).Str("type", string(event.Type)).Msg("encode feed event")
		return
	}

	_, err = p.js.PublishMsgAsync(msg,
		jetstream.WithMsgID(event.ID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", msg.Subject).Msg("feed publish rejected")
		return
	}

	p.logger.Debug().Str("subject", msg.Subject).Str("event_id", event.ID).Msg("queued feed event")
}

// Close waits briefly for outstanding acknowledgements and drains the connection
func (p *JetStreamPublisher) Close(ctx context.Context) error {
	select {
	case <-p.js.PublishAsyncComplete():
	case <-ctx.Done():
		p.logger.Warn().Int("pending", p.js.PublishAsyncPending()).Msg("closing feed with unacknowledged events")
	}
	return p.nc.Drain()
}
