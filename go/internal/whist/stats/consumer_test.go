package stats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDelivery struct {
	data    []byte
	outcome string
	delay   time.Duration
}

func (d *fakeDelivery) Data() []byte    { return d.data }
func (d *fakeDelivery) Subject() string { return "whist.events.test" }
func (d *fakeDelivery) Ack() error      { d.outcome = "ack"; return nil }
func (d *fakeDelivery) Term() error     { d.outcome = "term"; return nil }
func (d *fakeDelivery) NakWithDelay(delay time.Duration) error {
	d.outcome = "nak"
	d.delay = delay
	return nil
}

type fakeStore struct {
	err    error
	rounds []models.RoundSummary
	games  []models.GameSummary
	ids    []uuid.UUID
}

func (s *fakeStore) RecordRound(_ context.Context, id uuid.UUID, summary models.RoundSummary) error {
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, id)
	s.rounds = append(s.rounds, summary)
	return nil
}

func (s *fakeStore) RecordGame(_ context.Context, id uuid.UUID, summary models.GameSummary) error {
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, id)
	s.games = append(s.games, summary)
	return nil
}

func envelope(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(outbox.Envelope{
		EventID:   uuid.New(),
		EventType: eventType,
		RoomCode:  "ABC234",
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	})
	require.NoError(t, err)
	return data
}

func TestConsumerHandle(t *testing.T) {
	tests := []struct {
		name     string
		data     func(t *testing.T) []byte
		storeErr error
		want     string
		rounds   int
		games    int
	}{
		{
			name: "round completed",
			data: func(t *testing.T) []byte {
				return envelope(t, outbox.EventRoundCompleted, models.RoundSummary{RoundNumber: 2})
			},
			want:   "ack",
			rounds: 1,
		},
		{
			name: "game finished",
			data: func(t *testing.T) []byte {
				return envelope(t, outbox.EventGameFinished, models.GameSummary{Rounds: 7})
			},
			want:  "ack",
			games: 1,
		},
		{
			name: "unknown type is acked",
			data: func(t *testing.T) []byte {
				return envelope(t, "SomethingElse", map[string]int{"x": 1})
			},
			want: "ack",
		},
		{
			name: "garbage is terminated",
			data: func(*testing.T) []byte { return []byte("{not json") },
			want: "term",
		},
		{
			name: "wrong payload shape is terminated",
			data: func(t *testing.T) []byte {
				return envelope(t, outbox.EventRoundCompleted, []int{1, 2})
			},
			want: "term",
		},
		{
			name: "store failure is retried",
			data: func(t *testing.T) []byte {
				return envelope(t, outbox.EventGameFinished, models.GameSummary{})
			},
			storeErr: errors.New("db down"),
			want:     "nak",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{err: tt.storeErr}
			cfg := DefaultConsumerConfig()
			c := NewConsumer(nil, store, cfg)
			msg := &fakeDelivery{data: tt.data(t)}

			c.handle(context.Background(), msg)

			assert.Equal(t, tt.want, msg.outcome)
			assert.Len(t, store.rounds, tt.rounds)
			assert.Len(t, store.games, tt.games)
			if tt.want == "nak" {
				assert.Equal(t, cfg.RetryDelay, msg.delay)
			}
		})
	}
}

func TestConsumerPassesEventID(t *testing.T) {
	store := &fakeStore{}
	c := NewConsumer(nil, store, DefaultConsumerConfig())
	data := envelope(t, outbox.EventRoundCompleted, models.RoundSummary{})

	var env outbox.Envelope
	require.NoError(t, json.Unmarshal(data, &env))

	c.handle(context.Background(), &fakeDelivery{data: data})
	require.Len(t, store.ids, 1)
	assert.Equal(t, env.EventID, store.ids[0])
}
