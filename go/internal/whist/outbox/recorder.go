package outbox

import (
	"context"
	"time"

	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/rs/zerolog/log"
)

const (
	defaultRecorderBuffer = 256
	insertTimeout         = 5 * time.Second
)

// Recorder is a room emitter that copies round and game completions into the
// outbox. Emit only queues; Run performs the inserts.
type Recorder struct {
	app     *App
	pending chan OutboxEvent
}

func NewRecorder(app *App, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultRecorderBuffer
	}
	return &Recorder{
		app:     app,
		pending: make(chan OutboxEvent, buffer),
	}
}

func (r *Recorder) Emit(roomCode string, evs []events.Event) {
	for _, ev := range evs {
		var (
			event OutboxEvent
			err   error
		)
		switch p := ev.Payload.(type) {
		case events.RoundCompletePayload:
			event, err = r.app.RoundCompletedEvent(p.Summary)
		case events.GameFinishedPayload:
			event, err = r.app.GameFinishedEvent(p.Summary)
		default:
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("room_code", roomCode).Msg("failed to build outbox event")
			continue
		}

		select {
		case r.pending <- event:
		default:
			log.Error().
				Str("room_code", roomCode).
				Str("event_type", event.EventType).
				Msg("outbox recorder buffer full, dropping event")
		}
	}
}

// Run inserts queued events until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return nil
		case event := <-r.pending:
			r.insert(context.WithoutCancel(ctx), event)
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case event := <-r.pending:
			r.insert(context.Background(), event)
		default:
			return
		}
	}
}

func (r *Recorder) insert(parent context.Context, event OutboxEvent) {
	ctx, cancel := context.WithTimeout(parent, insertTimeout)
	defer cancel()
	if err := r.app.Insert(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("event_id", event.ID.String()).
			Str("event_type", event.EventType).
			Msg("failed to record outbox event")
	}
}
