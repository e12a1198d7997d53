package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/mcdev12/whist/go/internal/whist/round"
	"github.com/mcdev12/whist/go/internal/whist/rules"
)

const (
	// DefaultReconnectGrace is how long a disconnected seat is held during a game.
	DefaultReconnectGrace = 60 * time.Second
	// DefaultHistoryLimit is how many finished round summaries a room keeps
	// for sync. Older rounds only live in the outbox.
	DefaultHistoryLimit = 8
)

// Config holds per-room rules.
type Config struct {
	ReconnectGrace time.Duration
	EndCondition   EndCondition
	HistoryLimit   int
}

// DefaultConfig loops rounds until an admin ends the game.
func DefaultConfig() Config {
	return Config{
		ReconnectGrace: DefaultReconnectGrace,
		EndCondition:   Never,
		HistoryLimit:   DefaultHistoryLimit,
	}
}

type slot struct {
	userID      string
	displayName string
	isAdmin     bool
	status      models.ConnectionStatus
	graceUntil  time.Time
}

// Session is the state of one room. Every exported method takes the room
// lock, so actions against a room are applied one at a time in arrival order.
type Session struct {
	mu sync.Mutex

	code    string
	cfg     Config
	clock   clockwork.Clock
	emitter Emitter

	gameID       uuid.UUID
	status       models.RoomStatus
	seats        [models.NumSeats]*slot
	round        *round.Round
	totals       [models.NumSeats]int
	roundsPlayed int
	history      []models.RoundSummary
	turn         uint64

	createdAt  time.Time
	startedAt  time.Time
	lastActive time.Time
}

// NewSession creates an empty room in the Waiting state.
func NewSession(code string, cfg Config, emitter Emitter, clock clockwork.Clock) *Session {
	if cfg.ReconnectGrace <= 0 {
		cfg.ReconnectGrace = DefaultReconnectGrace
	}
	if cfg.EndCondition == nil {
		cfg.EndCondition = Never
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if emitter == nil {
		emitter = discard{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	now := clock.Now()
	return &Session{
		code:       code,
		cfg:        cfg,
		clock:      clock,
		emitter:    emitter,
		status:     models.RoomStatusWaiting,
		createdAt:  now,
		lastActive: now,
	}
}

// Code returns the room code.
func (s *Session) Code() string { return s.code }

// Status returns the current game status.
func (s *Session) Status() models.RoomStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// GameID is uuid.Nil until the game starts.
func (s *Session) GameID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID
}

// Empty reports whether no seat is occupied.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupiedLocked() == 0
}

// LastActive is the time of the last accepted action.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SeatOf returns the seat held by userID.
func (s *Session) SeatOf(userID string) (models.Seat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, _, ok := s.seatOfLocked(userID)
	return seat, ok
}

func (s *Session) seatOfLocked(userID string) (models.Seat, *slot, bool) {
	for i, sl := range s.seats {
		if sl != nil && sl.userID == userID {
			return models.Seat(i), sl, true
		}
	}
	return 0, nil, false
}

func (s *Session) requireSeatLocked(userID string) (models.Seat, error) {
	seat, _, ok := s.seatOfLocked(userID)
	if !ok {
		return 0, rules.Reject(rules.ReasonPlayerNotInRoom, "user %s is not seated in room %s", userID, s.code)
	}
	return seat, nil
}

func (s *Session) requireAdminLocked(userID string) (models.Seat, error) {
	seat, sl, ok := s.seatOfLocked(userID)
	if !ok {
		return 0, rules.Reject(rules.ReasonPlayerNotInRoom, "user %s is not seated in room %s", userID, s.code)
	}
	if !sl.isAdmin {
		return 0, rules.Reject(rules.ReasonNotRoomAdmin, "only the room admin can do this")
	}
	return seat, nil
}

func (s *Session) occupiedLocked() int {
	n := 0
	for _, sl := range s.seats {
		if sl != nil {
			n++
		}
	}
	return n
}

func (s *Session) playerInfoLocked(seat models.Seat) events.PlayerInfo {
	sl := s.seats[seat]
	return events.PlayerInfo{
		UserID:      sl.userID,
		DisplayName: sl.displayName,
		Seat:        seat,
		IsAdmin:     sl.isAdmin,
		Connection:  sl.status,
	}
}

func (s *Session) playersLocked() []events.PlayerInfo {
	players := make([]events.PlayerInfo, 0, models.NumSeats)
	for i, sl := range s.seats {
		if sl != nil {
			players = append(players, s.playerInfoLocked(models.Seat(i)))
		}
	}
	return players
}

func (s *Session) emitLocked(evs []events.Event) {
	if len(evs) == 0 {
		return
	}
	s.emitter.Emit(s.code, evs)
}

func (s *Session) touchLocked() {
	s.lastActive = s.clock.Now()
}
