package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/outbox"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Store is what the consumer needs from persistence.
type Store interface {
	RecordRound(ctx context.Context, eventID uuid.UUID, summary models.RoundSummary) error
	RecordGame(ctx context.Context, eventID uuid.UUID, summary models.GameSummary) error
}

type ConsumerConfig struct {
	Stream     outbox.JetStreamConfig
	Durable    string
	MaxDeliver int
	AckWait    time.Duration
	RetryDelay time.Duration // Redelivery delay after a store failure
}

func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Stream:     outbox.DefaultJetStreamConfig(),
		Durable:    "whist-stats",
		MaxDeliver: 10,
		AckWait:    30 * time.Second,
		RetryDelay: 5 * time.Second,
	}
}

// delivery is the subset of jetstream.Msg the handler uses.
type delivery interface {
	Data() []byte
	Subject() string
	Ack() error
	NakWithDelay(delay time.Duration) error
	Term() error
}

// Consumer applies completion events from the WHIST_EVENTS stream.
type Consumer struct {
	js    jetstream.JetStream
	store Store
	cfg   ConsumerConfig
}

func NewConsumer(js jetstream.JetStream, store Store, cfg ConsumerConfig) *Consumer {
	return &Consumer{js: js, store: store, cfg: cfg}
}

// Run consumes until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	if err := outbox.EnsureStream(ctx, c.js, c.cfg.Stream); err != nil {
		return fmt.Errorf("failed to ensure stream: %w", err)
	}

	cons, err := c.js.CreateOrUpdateConsumer(ctx, c.cfg.Stream.StreamName, jetstream.ConsumerConfig{
		Durable:       c.cfg.Durable,
		Description:   "player stats aggregation",
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.cfg.AckWait,
		MaxDeliver:    c.cfg.MaxDeliver,
		FilterSubjects: []string{
			c.cfg.Stream.Subject(outbox.EventRoundCompleted),
			c.cfg.Stream.Subject(outbox.EventGameFinished),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		c.handle(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	log.Info().
		Str("stream", c.cfg.Stream.StreamName).
		Str("durable", c.cfg.Durable).
		Msg("stats consumer started")

	<-ctx.Done()
	cc.Stop()
	log.Info().Msg("stats consumer stopped")
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg delivery) {
	var env outbox.Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("undecodable event, terminating")
		c.settle(msg.Term())
		return
	}

	logger := log.With().
		Str("event_id", env.EventID.String()).
		Str("event_type", env.EventType).
		Str("room_code", env.RoomCode).
		Logger()

	apply, err := c.decode(env)
	if err != nil {
		logger.Error().Err(err).Msg("bad payload, terminating")
		c.settle(msg.Term())
		return
	}
	if apply == nil {
		logger.Warn().Msg("ignoring unknown event type")
		c.settle(msg.Ack())
		return
	}

	if err := apply(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to apply event, will retry")
		c.settle(msg.NakWithDelay(c.cfg.RetryDelay))
		return
	}

	logger.Info().Msg("applied event to player stats")
	c.settle(msg.Ack())
}

// decode returns the store call for an envelope, or nil for event types the
// consumer does not handle.
func (c *Consumer) decode(env outbox.Envelope) (func(context.Context) error, error) {
	switch env.EventType {
	case outbox.EventRoundCompleted:
		var summary models.RoundSummary
		if err := json.Unmarshal(env.Payload, &summary); err != nil {
			return nil, fmt.Errorf("failed to decode round summary: %w", err)
		}
		return func(ctx context.Context) error {
			return c.store.RecordRound(ctx, env.EventID, summary)
		}, nil
	case outbox.EventGameFinished:
		var summary models.GameSummary
		if err := json.Unmarshal(env.Payload, &summary); err != nil {
			return nil, fmt.Errorf("failed to decode game summary: %w", err)
		}
		return func(ctx context.Context) error {
			return c.store.RecordGame(ctx, env.EventID, summary)
		}, nil
	default:
		return nil, nil
	}
}

func (c *Consumer) settle(err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to settle message")
	}
}
