package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderWritesCompletions(t *testing.T) {
	store := newMemStore()
	rec := NewRecorder(NewApp(store, "test-instance"), 8)
	gameID := uuid.New()

	rec.Emit("ABC234", []events.Event{
		events.New(events.KindTrickWon, events.TrickWonPayload{Seat: 1}),
		events.New(events.KindRoundComplete, events.RoundCompletePayload{Summary: models.RoundSummary{
			GameID:      gameID,
			RoomCode:    "ABC234",
			RoundNumber: 3,
		}}),
		events.New(events.KindGameFinished, events.GameFinishedPayload{Summary: models.GameSummary{
			GameID:   gameID,
			RoomCode: "ABC234",
			Rounds:   3,
			Winners:  []string{"u1"},
		}}),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	require.Eventually(t, func() bool { return len(store.all()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	rows := store.all()
	assert.Equal(t, EventRoundCompleted, rows[0].EventType)
	assert.Equal(t, EventGameFinished, rows[1].EventType)
	for _, row := range rows {
		assert.Equal(t, gameID, row.GameID)
		assert.Equal(t, "ABC234", row.RoomCode)
		assert.True(t, row.Metadata.Valid)
		assert.JSONEq(t, `{"source":"test-instance"}`, string(row.Metadata.RawMessage))
	}

	var round models.RoundSummary
	require.NoError(t, json.Unmarshal(rows[0].Payload, &round))
	assert.Equal(t, 3, round.RoundNumber)
}

func TestRecorderFlushesOnShutdownAndDropsWhenFull(t *testing.T) {
	store := newMemStore()
	rec := NewRecorder(NewApp(store, ""), 1)
	summary := events.RoundCompletePayload{Summary: models.RoundSummary{GameID: uuid.New(), RoomCode: "ABC234"}}

	rec.Emit("ABC234", []events.Event{
		events.New(events.KindRoundComplete, summary),
		events.New(events.KindRoundComplete, summary),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))

	rows := store.all()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Metadata.Valid)
}

func TestAppRejectsEmptyPayload(t *testing.T) {
	app := NewApp(newMemStore(), "")
	err := app.Insert(context.Background(), OutboxEvent{ID: uuid.New(), EventType: EventGameFinished})
	assert.Error(t, err)
}
