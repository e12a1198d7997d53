package outbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func NewTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const insertOutbox = `
INSERT INTO whist_outbox (id, game_id, room_code, event_type, payload, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`

type InsertOutboxParams struct {
	ID        uuid.UUID
	GameID    uuid.UUID
	RoomCode  string
	EventType string
	Payload   []byte
	Metadata  pqtype.NullRawMessage
}

func (q *Queries) InsertOutbox(ctx context.Context, arg InsertOutboxParams) (time.Time, error) {
	var createdAt time.Time
	err := q.db.QueryRowContext(ctx, insertOutbox,
		arg.ID,
		arg.GameID,
		arg.RoomCode,
		arg.EventType,
		arg.Payload,
		arg.Metadata,
	).Scan(&createdAt)
	return createdAt, err
}

const fetchOutboxByIDForUpdate = `
SELECT id, game_id, room_code, event_type, payload, metadata, created_at
FROM whist_outbox
WHERE id = $1 AND sent_at IS NULL
FOR UPDATE SKIP LOCKED`

func (q *Queries) FetchOutboxByIDForUpdate(ctx context.Context, id uuid.UUID) (OutboxEvent, error) {
	row := q.db.QueryRowContext(ctx, fetchOutboxByIDForUpdate, id)
	var e OutboxEvent
	err := row.Scan(&e.ID, &e.GameID, &e.RoomCode, &e.EventType, &e.Payload, &e.Metadata, &e.CreatedAt)
	return e, err
}

const fetchUnsentOutboxForUpdate = `
SELECT id, game_id, room_code, event_type, payload, metadata, created_at
FROM whist_outbox
WHERE sent_at IS NULL
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED`

func (q *Queries) FetchUnsentOutboxForUpdate(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := q.db.QueryContext(ctx, fetchUnsentOutboxForUpdate, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.GameID, &e.RoomCode, &e.EventType, &e.Payload, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOutboxSent = `
UPDATE whist_outbox
SET sent_at = now()
WHERE id = $1`

func (q *Queries) MarkOutboxSent(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, markOutboxSent, id)
	return err
}

const countPendingOutbox = `SELECT COUNT(*) FROM whist_outbox WHERE sent_at IS NULL`

func (q *Queries) CountPendingOutbox(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPendingOutbox).Scan(&count)
	return count, err
}
