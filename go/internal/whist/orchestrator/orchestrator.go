package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/mcdev12/whist/go/internal/whist/room"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTurnTimeout    = 30 * time.Second
	DefaultAbandonedDelay = 2 * time.Second
	DefaultRoundBreak     = 10 * time.Second
	DefaultSweepInterval  = 5 * time.Second
	DefaultWorkers        = 4
)

// Config controls the deadlines the orchestrator enforces on rooms.
type Config struct {
	// TurnTimeout is how long a seat has to act. Zero disables turn deadlines.
	TurnTimeout time.Duration
	// AbandonedDelay replaces TurnTimeout for seats whose player is gone.
	AbandonedDelay time.Duration
	// RoundBreak is the pause before the next round is dealt. Zero leaves
	// advancing to the room admin.
	RoundBreak    time.Duration
	SweepInterval time.Duration
	Workers       int
}

// DefaultConfig returns the production deadlines.
func DefaultConfig() Config {
	return Config{
		TurnTimeout:    DefaultTurnTimeout,
		AbandonedDelay: DefaultAbandonedDelay,
		RoundBreak:     DefaultRoundBreak,
		SweepInterval:  DefaultSweepInterval,
		Workers:        DefaultWorkers,
	}
}

// Directory is what the orchestrator needs from the room registry.
type Directory interface {
	Get(code string) (*room.Session, error)
	Sweep() room.SweepResult
}

type jobKind int

const (
	jobTurn jobKind = iota
	jobRound
)

func (k jobKind) String() string {
	if k == jobRound {
		return "round"
	}
	return "turn"
}

type timerKey struct {
	code string
	kind jobKind
}

type job struct {
	key   timerKey
	turn  uint64
	round int
}

type activeTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

type pendingTurn struct {
	turn uint64
	seat models.Seat
}

// Orchestrator owns every timer in the game server. Rooms report their
// events to it through Emit; when a deadline passes a worker calls back into
// the room with ExpireTurn or AdvanceRound.
type Orchestrator struct {
	cfg        Config
	clock      clockwork.Clock
	instanceID string

	workCh chan job

	activeTimers   map[timerKey]activeTimer
	activeTimersMu sync.Mutex
	stopped        bool

	// per room view built from events, read without touching room locks
	stateMu   sync.Mutex
	turns     map[string]pendingTurn
	abandoned map[string]map[models.Seat]bool

	inFlight   map[timerKey]bool
	inFlightMu sync.Mutex
}

// New creates an orchestrator. Call Run to start processing deadlines.
func New(cfg Config, clock clockwork.Clock) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.AbandonedDelay <= 0 {
		cfg.AbandonedDelay = DefaultAbandonedDelay
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Orchestrator{
		cfg:          cfg,
		clock:        clock,
		instanceID:   uuid.New().String()[:8],
		workCh:       make(chan job, cfg.Workers*16),
		activeTimers: make(map[timerKey]activeTimer),
		turns:        make(map[string]pendingTurn),
		abandoned:    make(map[string]map[models.Seat]bool),
		inFlight:     make(map[timerKey]bool),
	}
}

// Emit implements room.Emitter. It runs under the room lock so it only
// updates bookkeeping and arms timers.
func (o *Orchestrator) Emit(code string, evs []events.Event) {
	for _, ev := range evs {
		switch p := ev.Payload.(type) {
		case events.TurnStartedPayload:
			o.stateMu.Lock()
			o.turns[code] = pendingTurn{turn: p.Turn, seat: p.Seat}
			gone := o.abandoned[code][p.Seat]
			o.stateMu.Unlock()
			o.scheduleTurn(code, p.Turn, gone)

		case events.RoundCompletePayload:
			o.clearTurn(code)
			if o.cfg.RoundBreak > 0 {
				o.schedule(job{key: timerKey{code, jobRound}, round: p.Summary.RoundNumber}, o.cfg.RoundBreak)
			}

		case events.GameFinishedPayload:
			o.forget(code)

		case events.PlayerAbandonedPayload:
			o.stateMu.Lock()
			if o.abandoned[code] == nil {
				o.abandoned[code] = make(map[models.Seat]bool)
			}
			o.abandoned[code][p.Seat] = true
			pt, onTurn := o.turns[code]
			o.stateMu.Unlock()
			if onTurn && pt.seat == p.Seat {
				o.scheduleTurn(code, pt.turn, true)
			}

		case events.ReseatedPayload:
			gone := make(map[models.Seat]bool)
			for _, player := range p.Players {
				if player.Connection == models.ConnectionStatusAbandoned {
					gone[player.Seat] = true
				}
			}
			o.stateMu.Lock()
			o.abandoned[code] = gone
			o.stateMu.Unlock()

		case events.PlayerReconnectedPayload:
			o.stateMu.Lock()
			delete(o.abandoned[code], p.Seat)
			o.stateMu.Unlock()

		case events.PlayerLeftPayload:
			o.stateMu.Lock()
			delete(o.abandoned[code], p.Seat)
			o.stateMu.Unlock()
		}
	}
}

func (o *Orchestrator) scheduleTurn(code string, turn uint64, abandoned bool) {
	wait := o.cfg.TurnTimeout
	if abandoned {
		wait = o.cfg.AbandonedDelay
	}
	if wait <= 0 {
		return
	}
	o.schedule(job{key: timerKey{code, jobTurn}, turn: turn}, wait)
}

func (o *Orchestrator) clearTurn(code string) {
	o.stateMu.Lock()
	delete(o.turns, code)
	o.stateMu.Unlock()
	o.cancelTimer(timerKey{code, jobTurn})
}

// forget drops all timers and bookkeeping for a room.
func (o *Orchestrator) forget(code string) {
	o.stateMu.Lock()
	delete(o.turns, code)
	delete(o.abandoned, code)
	o.stateMu.Unlock()
	o.cancelTimer(timerKey{code, jobTurn})
	o.cancelTimer(timerKey{code, jobRound})
}

// Run starts the worker pool and the room sweep, and blocks until ctx ends.
func (o *Orchestrator) Run(ctx context.Context, rooms Directory) error {
	log.Info().
		Str("instance", o.instanceID).
		Int("workers", o.cfg.Workers).
		Dur("turn_timeout", o.cfg.TurnTimeout).
		Dur("round_break", o.cfg.RoundBreak).
		Msg("orchestrator started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go o.worker(workerCtx, &wg, i, rooms)
	}

	defer func() {
		log.Info().Str("instance", o.instanceID).Msg("shutting down workers")
		cancelWorkers()
		wg.Wait()
		o.stopAll()
		log.Info().Str("instance", o.instanceID).Msg("all workers shut down")
	}()

	ticker := o.clock.NewTicker(o.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("instance", o.instanceID).Msg("orchestrator shutdown requested")
			return nil
		case <-ticker.Chan():
			res := rooms.Sweep()
			for _, code := range res.Removed {
				o.forget(code)
			}
		}
	}
}

func (o *Orchestrator) stopAll() {
	o.activeTimersMu.Lock()
	defer o.activeTimersMu.Unlock()
	for key, at := range o.activeTimers {
		stopAndDrainTimer(at.timer)
		close(at.cancel)
		log.Debug().Str("room_code", key.code).Stringer("kind", key.kind).Msg("cancelled timer on shutdown")
	}
	o.activeTimers = make(map[timerKey]activeTimer)
	o.stopped = true
}
