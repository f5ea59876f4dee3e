package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mcoot/triviagame/internal/model"
)

// JetStreamConfig holds NATS connection and stream settings
type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep messages
	DuplicateWindow time.Duration // Window for duplicate detection by event id
}

// DefaultJetStreamConfig returns defaults for a single-node NATS server
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "TRIVIA_EVENTS",
		SubjectPrefix:   "trivia.events",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
	}
}

// JetStreamPublisher publishes events to a NATS JetStream stream, one subject
// per event type
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
	logger *slog.Logger
}

// envelope is the JSON body of a published message
type envelope struct {
	EventID   string          `json:"eventId"`
	EventType model.EventType `json:"eventType"`
	GameID    model.GameID    `json:"gameId"`
	PlayerID  model.PlayerID  `json:"playerId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   any             `json:"payload,omitempty"`
}

// NewJetStreamPublisher connects to NATS and ensures the stream exists
func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig, logger *slog.Logger) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("trivia-server"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS error", slog.String("error", err.Error()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
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
		Description: "Trivia game domain events",
		Subjects:    []string{p.config.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.FileStorage,
		Duplicates:  p.config.DuplicateWindow,
	})
	return err
}

// Subject returns the subject an event type is published on
func (p *JetStreamPublisher) Subject(t model.EventType) string {
	return fmt.Sprintf("%s.%s", p.config.SubjectPrefix, t)
}

// Publish sends the event. The event id doubles as the JetStream message id
// so retried publishes are deduplicated by the server.
func (p *JetStreamPublisher) Publish(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(envelope{
		EventID:   event.ID,
		EventType: event.Type,
		GameID:    event.GameID,
		PlayerID:  event.PlayerID,
		Timestamp: event.Timestamp.UTC(),
		Payload:   event.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.Subject(event.Type)
	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(event.Type)},
			"Game-ID":    []string{string(event.GameID)},
		},
	},
		jetstream.WithMsgID(event.ID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	p.logger.Debug("published to JetStream",
		slog.String("subject", subject),
		slog.String("event_id", event.ID),
		slog.Uint64("sequence", ack.Sequence),
	)
	return nil
}

// Close drains and closes the NATS connection
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}
