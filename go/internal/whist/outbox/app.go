package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"
)

// OutboxRepository defines what the app layer needs from the repository
type OutboxRepository interface {
	InsertOutbox(ctx context.Context, event OutboxEvent) error
}

// App handles outbox business logic
type App struct {
	repo     OutboxRepository
	metadata pqtype.NullRawMessage
}

// NewApp creates a new outbox App. source is stamped into every row's
// metadata so rows can be traced back to the server instance that wrote them.
func NewApp(repo OutboxRepository, source string) *App {
	a := &App{repo: repo}
	if source != "" {
		if raw, err := json.Marshal(map[string]string{"source": source}); err == nil {
			a.metadata = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
		}
	}
	return a
}

// RoundCompletedEvent builds the outbox row for a finished round.
func (a *App) RoundCompletedEvent(summary models.RoundSummary) (OutboxEvent, error) {
	return a.newEvent(EventRoundCompleted, summary.GameID, summary.RoomCode, summary)
}

// GameFinishedEvent builds the outbox row for a finished game.
func (a *App) GameFinishedEvent(summary models.GameSummary) (OutboxEvent, error) {
	return a.newEvent(EventGameFinished, summary.GameID, summary.RoomCode, summary)
}

// Insert writes an event into the outbox
func (a *App) Insert(ctx context.Context, event OutboxEvent) error {
	if err := a.validateEventPayload(event.Payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", event.EventType, err)
	}

	if err := a.repo.InsertOutbox(ctx, event); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", event.EventType, err)
	}

	log.Info().
		Str("event_id", event.ID.String()).
		Str("game_id", event.GameID.String()).
		Str("room_code", event.RoomCode).
		Str("event_type", event.EventType).
		Msg("outbox event inserted")

	return nil
}

func (a *App) newEvent(eventType string, gameID uuid.UUID, roomCode string, v any) (OutboxEvent, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return OutboxEvent{
		ID:        uuid.New(),
		GameID:    gameID,
		RoomCode:  roomCode,
		EventType: eventType,
		Payload:   payload,
		Metadata:  a.metadata,
	}, nil
}

// validateEventPayload validates that the event payload is not empty
func (a *App) validateEventPayload(payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("event payload cannot be empty")
	}
	return nil
}
