package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Event types written to whist_outbox. They also form the last token of the
// JetStream subject.
const (
	EventRoundCompleted = "RoundCompleted"
	EventGameFinished   = "GameFinished"
)

type OutboxEvent struct {
	ID        uuid.UUID
	GameID    uuid.UUID
	RoomCode  string
	EventType string
	Payload   []byte
	Metadata  pqtype.NullRawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

// Envelope is the message body published for every outbox event.
type Envelope struct {
	EventID   uuid.UUID       `json:"eventId"`
	EventType string          `json:"eventType"`
	RoomCode  string          `json:"roomCode"`
	GameID    uuid.UUID       `json:"gameId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func newEnvelope(event OutboxEvent, at time.Time) Envelope {
	return Envelope{
		EventID:   event.ID,
		EventType: event.EventType,
		RoomCode:  event.RoomCode,
		GameID:    event.GameID,
		Timestamp: at.UTC(),
		Payload:   json.RawMessage(event.Payload),
	}
}

// Publisher is an interface that defines our publisher.
type Publisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}

// DeliverFunc hands one pending event to a publisher. The event is marked
// sent only when it returns nil.
type DeliverFunc func(ctx context.Context, event OutboxEvent) error
