package orchestrator

import (
	"context"
	"sync"

	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/rs/zerolog/log"
)

// worker resolves expired deadlines from the work channel
func (o *Orchestrator) worker(ctx context.Context, wg *sync.WaitGroup, workerID int, rooms Directory) {
	defer wg.Done()

	log.Debug().
		Str("instance", o.instanceID).
		Int("worker_id", workerID).
		Msg("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().
				Str("instance", o.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case j := <-o.workCh:
			if !o.claim(j) {
				continue
			}

			if err := o.handle(rooms, j); err != nil {
				log.Error().
					Err(err).
					Str("room_code", j.key.code).
					Stringer("kind", j.key.kind).
					Str("instance", o.instanceID).
					Int("worker_id", workerID).
					Msg("worker deadline handling failed")
			}

			o.release(j)
		}
	}
}

// claim marks j's room and kind as in flight. A job that arrives while an
// earlier one is still being handled is re-armed rather than lost.
func (o *Orchestrator) claim(j job) bool {
	o.inFlightMu.Lock()
	busy := o.inFlight[j.key]
	if !busy {
		o.inFlight[j.key] = true
	}
	o.inFlightMu.Unlock()

	if busy {
		log.Debug().Str("room_code", j.key.code).Stringer("kind", j.key.kind).Msg("room already in flight, retrying")
		o.rearm(j)
		return false
	}
	return true
}

func (o *Orchestrator) release(j job) {
	o.inFlightMu.Lock()
	delete(o.inFlight, j.key)
	o.inFlightMu.Unlock()
}

func (o *Orchestrator) handle(rooms Directory, j job) error {
	sess, err := rooms.Get(j.key.code)
	if err != nil {
		o.forget(j.key.code)
		return nil
	}

	switch j.key.kind {
	case jobTurn:
		fired, err := sess.ExpireTurn(j.turn)
		if err != nil {
			return err
		}
		if fired {
			log.Info().Str("room_code", j.key.code).Uint64("turn", j.turn).Msg("turn timed out")
		}
		return nil

	case jobRound:
		err := sess.AdvanceRound(j.round)
		if _, rejected := rules.ReasonOf(err); rejected {
			log.Debug().Err(err).Str("room_code", j.key.code).Msg("round already advanced")
			return nil
		}
		return err
	}
	return nil
}
