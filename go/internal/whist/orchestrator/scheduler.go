package orchestrator

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// retryDelay is how long a fired job waits before it is queued again when it
// could not be handed to a worker.
const retryDelay = 500 * time.Millisecond

// schedule arms a one-shot timer that queues j for the workers. Any timer
// already armed for the same room and kind is replaced.
func (o *Orchestrator) schedule(j job, wait time.Duration) {
	o.arm(j, wait, true)
}

// rearm queues j again after retryDelay unless a newer deadline for the same
// room and kind was armed in the meantime.
func (o *Orchestrator) rearm(j job) bool {
	return o.arm(j, retryDelay, false)
}

func (o *Orchestrator) arm(j job, wait time.Duration, replace bool) bool {
	o.activeTimersMu.Lock()
	if o.stopped {
		o.activeTimersMu.Unlock()
		return false
	}
	if existing, ok := o.activeTimers[j.key]; ok {
		if !replace {
			o.activeTimersMu.Unlock()
			return false
		}
		stopAndDrainTimer(existing.timer)
		close(existing.cancel)
		log.Debug().Str("room_code", j.key.code).Stringer("kind", j.key.kind).Msg("replaced existing timer")
	}
	timer := o.clock.NewTimer(wait)
	cancel := make(chan struct{})
	o.activeTimers[j.key] = activeTimer{timer: timer, cancel: cancel}
	o.activeTimersMu.Unlock()

	go o.await(j, timer, cancel)

	log.Debug().
		Str("room_code", j.key.code).
		Stringer("kind", j.key.kind).
		Uint64("turn", j.turn).
		Int("round", j.round).
		Dur("duration", wait).
		Bool("retry", !replace).
		Msg("scheduled one-shot timer")
	return true
}

func (o *Orchestrator) await(j job, t clockwork.Timer, cancel chan struct{}) {
	select {
	case <-t.Chan():
		if !o.removeTimer(j.key, cancel) {
			return
		}
		select {
		case o.workCh <- j:
			log.Debug().Str("room_code", j.key.code).Stringer("kind", j.key.kind).Msg("timer fired - enqueued for processing")
		default:
			log.Warn().Str("room_code", j.key.code).Stringer("kind", j.key.kind).Msg("timer fired but work channel full, retrying")
			o.rearm(j)
		}
	case <-cancel:
	}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

func (o *Orchestrator) cancelTimer(key timerKey) {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	if existing, ok := o.activeTimers[key]; ok {
		stopAndDrainTimer(existing.timer)
		close(existing.cancel)
		delete(o.activeTimers, key)
		log.Debug().Str("room_code", key.code).Stringer("kind", key.kind).Msg("cancelled existing timer")
	}
}

// removeTimer drops a fired timer. It reports false if the timer was
// replaced or cancelled in the meantime.
func (o *Orchestrator) removeTimer(key timerKey, cancel chan struct{}) bool {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()

	existing, ok := o.activeTimers[key]
	if !ok || existing.cancel != cancel {
		return false
	}
	delete(o.activeTimers, key)
	return true
}

// Pending reports how many timers are armed.
func (o *Orchestrator) Pending() int {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	return len(o.activeTimers)
}
