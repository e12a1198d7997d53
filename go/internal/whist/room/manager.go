package room

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/roomcode"
	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/rs/zerolog/log"
)

// DefaultIdleTTL is how long a room may go without an accepted action.
const DefaultIdleTTL = 24 * time.Hour

// ManagerConfig configures every room the manager creates.
type ManagerConfig struct {
	Session Config
	IdleTTL time.Duration
}

// Manager is the registry of live rooms.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Session

	// admitMu makes the one-room-per-user check and the seat it guards a
	// single step across rooms.
	admitMu sync.Mutex

	cfg     ManagerConfig
	codes   *roomcode.Generator
	emitter Emitter
	clock   clockwork.Clock
}

// NewManager creates an empty registry. Every room shares emitter.
func NewManager(cfg ManagerConfig, codes *roomcode.Generator, emitter Emitter, clock clockwork.Clock) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if codes == nil {
		codes = roomcode.NewGenerator()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{
		rooms:   make(map[string]*Session),
		cfg:     cfg,
		codes:   codes,
		emitter: emitter,
		clock:   clock,
	}
}

// Create opens a new room with userID seated as admin.
func (m *Manager) Create(ctx context.Context, userID, displayName string) (*Session, error) {
	m.admitMu.Lock()
	defer m.admitMu.Unlock()

	if s, ok := m.RoomOf(userID); ok {
		return nil, rules.Reject(rules.ReasonAlreadySeated, "user %s is already in room %s", userID, s.Code())
	}

	m.mu.Lock()
	code, err := m.codes.Generate(ctx, func(_ context.Context, code string) (bool, error) {
		_, taken := m.rooms[code]
		return taken, nil
	})
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	s := NewSession(code, m.cfg.Session, m.emitter, m.clock)
	m.rooms[code] = s
	m.mu.Unlock()

	log.Info().Str("room_code", code).Str("user_id", userID).Msg("room created")

	if _, err := s.Join(userID, displayName); err != nil {
		m.Remove(code)
		return nil, err
	}
	return s, nil
}

// Get looks up a room by code.
func (m *Manager) Get(code string) (*Session, error) {
	code = roomcode.Normalize(code)
	m.mu.RLock()
	s, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return nil, rules.Reject(rules.ReasonRoomNotFound, "room %s not found", code)
	}
	return s, nil
}

// Exists reports whether code names a live room.
func (m *Manager) Exists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.rooms[roomcode.Normalize(code)]
	return ok, nil
}

// Join seats userID in room code. A user may sit in one room at a time.
func (m *Manager) Join(code, userID, displayName string) (*Session, JoinResult, error) {
	s, err := m.Get(code)
	if err != nil {
		return nil, JoinResult{}, err
	}

	m.admitMu.Lock()
	defer m.admitMu.Unlock()
	if other, ok := m.RoomOf(userID); ok && other != s {
		return nil, JoinResult{}, rules.Reject(rules.ReasonAlreadySeated, "user %s is already in room %s", userID, other.Code())
	}
	res, err := s.Join(userID, displayName)
	if err != nil {
		return nil, JoinResult{}, err
	}
	return s, res, nil
}

// Leave removes userID from room code and drops the room once empty.
func (m *Manager) Leave(code, userID string) error {
	s, err := m.Get(code)
	if err != nil {
		return err
	}
	if err := s.Leave(userID); err != nil {
		return err
	}
	m.removeIfEmpty(s)
	return nil
}

// Disconnect records a dropped connection for userID in room code.
func (m *Manager) Disconnect(code, userID string) error {
	s, err := m.Get(code)
	if err != nil {
		return err
	}
	if err := s.Disconnect(userID); err != nil {
		return err
	}
	m.removeIfEmpty(s)
	return nil
}

// RoomOf finds the room in which userID holds a seat.
func (m *Manager) RoomOf(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.rooms {
		if _, ok := s.SeatOf(userID); ok {
			return s, true
		}
	}
	return nil, false
}

// Remove drops a room from the registry.
func (m *Manager) Remove(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[code]; ok {
		delete(m.rooms, code)
		log.Info().Str("room_code", code).Msg("room removed")
	}
}

func (m *Manager) removeIfEmpty(s *Session) {
	if s.Empty() {
		m.Remove(s.Code())
	}
}

// Rooms returns the live rooms ordered by code.
func (m *Manager) Rooms() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.rooms))
	for _, s := range m.rooms {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Abandoned lists seats whose reconnect grace ran out during a sweep.
type Abandoned struct {
	Room  *Session
	Seats []models.Seat
}

// SweepResult reports what one sweep changed.
type SweepResult struct {
	Abandoned []Abandoned
	Removed   []string
}

// Sweep expires reconnect grace windows and drops rooms that are empty or
// idle for longer than the configured TTL.
func (m *Manager) Sweep() SweepResult {
	var res SweepResult
	now := m.clock.Now()
	for _, s := range m.Rooms() {
		if seats := s.ExpireGrace(); len(seats) > 0 {
			res.Abandoned = append(res.Abandoned, Abandoned{Room: s, Seats: seats})
		}
		if s.Empty() || now.Sub(s.LastActive()) > m.cfg.IdleTTL {
			m.Remove(s.Code())
			res.Removed = append(res.Removed, s.Code())
		}
	}
	if len(res.Removed) > 0 || len(res.Abandoned) > 0 {
		log.Debug().
			Int("abandoned_rooms", len(res.Abandoned)).
			Strs("removed", res.Removed).
			Msg("room sweep")
	}
	return res
}
