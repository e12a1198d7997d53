package outbox

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/whist/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

//go:embed schema/whist_outbox.sql
var schema string

// ErrNotPending is returned when an event is already sent or held by another relay.
var ErrNotPending = errors.New("outbox event not found or already sent")

type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: New(db),
	}
}

// Migrate creates the outbox table and its notify trigger.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply outbox schema: %w", err)
	}
	return nil
}

func (r *Repository) InsertOutbox(ctx context.Context, event OutboxEvent) error {
	_, err := r.queries.InsertOutbox(ctx, InsertOutboxParams{
		ID:        event.ID,
		GameID:    event.GameID,
		RoomCode:  event.RoomCode,
		EventType: event.EventType,
		Payload:   event.Payload,
		Metadata:  event.Metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", event.EventType, err)
	}
	return nil
}

// DeliverByID locks one pending event, hands it to deliver and marks it sent,
// all in one transaction.
func (r *Repository) DeliverByID(ctx context.Context, id uuid.UUID, deliver DeliverFunc) error {
	return sqlutil.Run(ctx, r.db, NewTx, func(q *Queries) error {
		event, err := q.FetchOutboxByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotPending
			}
			return fmt.Errorf("failed to fetch outbox event by ID: %w", err)
		}
		if err := deliver(ctx, event); err != nil {
			return err
		}
		if err := q.MarkOutboxSent(ctx, id); err != nil {
			return fmt.Errorf("failed to mark outbox event as sent: %w", err)
		}
		return nil
	})
}

// DeliverUnsent delivers up to limit pending events oldest first. Events whose
// delivery fails stay pending for the next pass.
func (r *Repository) DeliverUnsent(ctx context.Context, limit int, deliver DeliverFunc) (int, error) {
	delivered := 0
	err := sqlutil.Run(ctx, r.db, NewTx, func(q *Queries) error {
		pending, err := q.FetchUnsentOutboxForUpdate(ctx, int32(limit))
		if err != nil {
			return fmt.Errorf("failed to fetch unsent outbox events: %w", err)
		}
		for _, event := range pending {
			if err := deliver(ctx, event); err != nil {
				log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to publish event")
				continue
			}
			if err := q.MarkOutboxSent(ctx, event.ID); err != nil {
				return fmt.Errorf("failed to mark outbox event as sent: %w", err)
			}
			delivered++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return delivered, nil
}

func (r *Repository) CountPending(ctx context.Context) (int, error) {
	n, err := r.queries.CountPendingOutbox(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending outbox events: %w", err)
	}
	return int(n), nil
}
