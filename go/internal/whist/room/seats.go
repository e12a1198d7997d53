package room

import (
	"time"

	"github.com/hashicorp/go-set/v3"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/rs/zerolog/log"
)

// JoinResult tells the caller which seat the user holds and whether an
// existing seat was reclaimed.
type JoinResult struct {
	Seat        models.Seat
	Reconnected bool
}

// Join seats userID in the first free seat, or hands back the seat the user
// already holds. A user whose seat is held after a disconnect reclaims it.
func (s *Session) Join(userID, displayName string) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seat, sl, ok := s.seatOfLocked(userID); ok {
		if displayName != "" {
			sl.displayName = displayName
		}
		if sl.status == models.ConnectionStatusConnected {
			return JoinResult{Seat: seat}, nil
		}
		sl.status = models.ConnectionStatusConnected
		sl.graceUntil = time.Time{}
		s.touchLocked()
		log.Info().
			Str("room_code", s.code).
			Str("user_id", userID).
			Int("seat", int(seat)).
			Msg("player reconnected")
		s.emitLocked([]events.Event{events.New(events.KindPlayerReconnected, events.PlayerReconnectedPayload{
			UserID: userID,
			Seat:   seat,
		})})
		return JoinResult{Seat: seat, Reconnected: true}, nil
	}

	if s.status.InGame() {
		return JoinResult{}, rules.Reject(rules.ReasonAlreadyStarted, "room %s has a game in progress", s.code)
	}

	free := -1
	for i, sl := range s.seats {
		if sl == nil {
			free = i
			break
		}
	}
	if free < 0 {
		return JoinResult{}, rules.Reject(rules.ReasonRoomFull, "room %s already has %d players", s.code, models.NumSeats)
	}

	seat := models.Seat(free)
	s.seats[seat] = &slot{
		userID:      userID,
		displayName: displayName,
		isAdmin:     s.occupiedLocked() == 0,
		status:      models.ConnectionStatusConnected,
	}
	s.touchLocked()

	log.Info().
		Str("room_code", s.code).
		Str("user_id", userID).
		Int("seat", free).
		Bool("admin", s.seats[seat].isAdmin).
		Msg("player joined")

	s.emitLocked([]events.Event{events.New(events.KindPlayerJoined, events.PlayerJoinedPayload{
		Player: s.playerInfoLocked(seat),
	})})
	return JoinResult{Seat: seat}, nil
}

// Leave frees the user's seat outside a game.
// During a game the seat is kept and treated like a disconnect.
func (s *Session) Leave(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.requireSeatLocked(userID)
	if err != nil {
		return err
	}
	if s.status.InGame() {
		s.disconnectLocked(seat)
		return nil
	}
	s.emitLocked(s.vacateLocked(seat))
	return nil
}

// Disconnect records a lost connection. Outside a game the seat is freed;
// during a game it is held for the reconnect grace period.
func (s *Session) Disconnect(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.requireSeatLocked(userID)
	if err != nil {
		return err
	}
	if !s.status.InGame() {
		s.emitLocked(s.vacateLocked(seat))
		return nil
	}
	s.disconnectLocked(seat)
	return nil
}

func (s *Session) disconnectLocked(seat models.Seat) {
	sl := s.seats[seat]
	if sl.status != models.ConnectionStatusConnected {
		return
	}
	sl.status = models.ConnectionStatusDisconnected
	sl.graceUntil = s.clock.Now().Add(s.cfg.ReconnectGrace)

	log.Info().
		Str("room_code", s.code).
		Str("user_id", sl.userID).
		Int("seat", int(seat)).
		Time("grace_until", sl.graceUntil).
		Msg("player disconnected")

	s.emitLocked([]events.Event{events.New(events.KindPlayerDisconnected, events.PlayerDisconnectedPayload{
		UserID:     sl.userID,
		Seat:       seat,
		GraceUntil: sl.graceUntil,
	})})
}

func (s *Session) vacateLocked(seat models.Seat) []events.Event {
	sl := s.seats[seat]
	s.seats[seat] = nil
	s.touchLocked()

	evs := []events.Event{events.New(events.KindPlayerLeft, events.PlayerLeftPayload{
		UserID: sl.userID,
		Seat:   seat,
	})}

	if sl.isAdmin {
		for i, other := range s.seats {
			if other != nil {
				other.isAdmin = true
				evs = append(evs, events.New(events.KindAdminChanged, events.AdminChangedPayload{
					UserID: other.userID,
					Seat:   models.Seat(i),
				}))
				break
			}
		}
	}

	log.Info().
		Str("room_code", s.code).
		Str("user_id", sl.userID).
		Int("seat", int(seat)).
		Msg("player left")
	return evs
}

// ExpireGrace marks seats whose reconnect window has closed as abandoned and
// returns them. Abandoned seats stay occupied; their turns are resolved by
// the caller's timeout handling.
func (s *Session) ExpireGrace() []models.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var expired []models.Seat
	var evs []events.Event
	for i, sl := range s.seats {
		if sl == nil || sl.status != models.ConnectionStatusDisconnected || now.Before(sl.graceUntil) {
			continue
		}
		sl.status = models.ConnectionStatusAbandoned
		expired = append(expired, models.Seat(i))
		evs = append(evs, events.New(events.KindPlayerAbandoned, events.PlayerAbandonedPayload{
			UserID: sl.userID,
			Seat:   models.Seat(i),
		}))
		log.Warn().
			Str("room_code", s.code).
			Str("user_id", sl.userID).
			Int("seat", i).
			Msg("reconnect grace expired")
	}
	s.emitLocked(evs)
	return expired
}

// NextGraceDeadline returns the earliest pending reconnect deadline.
func (s *Session) NextGraceDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	for _, sl := range s.seats {
		if sl == nil || sl.status != models.ConnectionStatusDisconnected {
			continue
		}
		if next.IsZero() || sl.graceUntil.Before(next) {
			next = sl.graceUntil
		}
	}
	return next, !next.IsZero()
}

// Reseat moves players so that order[i] sits in seat i. order must name
// exactly the current occupants, with "" for empty seats. Cumulative scores
// move with their players.
func (s *Session) Reseat(callerID string, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdminLocked(callerID); err != nil {
		return err
	}
	if s.status != models.RoomStatusWaiting && s.status != models.RoomStatusRoundComplete {
		return rules.Reject(rules.ReasonInvalidPhase, "players can only be reseated between rounds")
	}
	if len(order) != models.NumSeats {
		return rules.Reject(rules.ReasonInvalidReseat, "expected %d seats, got %d", models.NumSeats, len(order))
	}

	current := set.New[string](models.NumSeats)
	for _, sl := range s.seats {
		if sl != nil {
			current.Insert(sl.userID)
		}
	}
	proposed := set.New[string](models.NumSeats)
	for _, userID := range order {
		if userID == "" {
			continue
		}
		if !proposed.Insert(userID) {
			return rules.Reject(rules.ReasonInvalidReseat, "user %s listed twice", userID)
		}
		if !current.Contains(userID) {
			return rules.Reject(rules.ReasonInvalidReseat, "user %s is not in the room", userID)
		}
	}
	if proposed.Size() != current.Size() {
		return rules.Reject(rules.ReasonInvalidReseat, "every seated player must be placed exactly once")
	}

	var seats [models.NumSeats]*slot
	var totals [models.NumSeats]int
	for i, userID := range order {
		if userID == "" {
			continue
		}
		from, sl, _ := s.seatOfLocked(userID)
		seats[i] = sl
		totals[i] = s.totals[from]
	}
	s.seats = seats
	s.totals = totals
	s.touchLocked()

	log.Info().Str("room_code", s.code).Strs("order", order).Msg("players reseated")
	s.emitLocked([]events.Event{events.New(events.KindReseated, events.ReseatedPayload{
		Players: s.playersLocked(),
	})})
	return nil
}
