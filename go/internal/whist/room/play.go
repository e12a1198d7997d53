package room

import (
	"github.com/google/uuid"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/mcdev12/whist/go/internal/whist/round"
	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/rs/zerolog/log"
)

// StartGame deals round 1. The caller must be admin and all four seats taken.
// A finished room can start again with the same seats.
func (s *Session) StartGame(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdminLocked(callerID); err != nil {
		return err
	}
	if s.status.InGame() {
		return rules.Reject(rules.ReasonAlreadyStarted, "room %s already has a game in progress", s.code)
	}
	if n := s.occupiedLocked(); n < models.NumSeats {
		return rules.Reject(rules.ReasonNotEnoughPlayers, "need %d players, have %d", models.NumSeats, n)
	}

	s.gameID = uuid.New()
	s.startedAt = s.clock.Now()
	s.totals = [models.NumSeats]int{}
	s.roundsPlayed = 0
	s.history = nil
	s.touchLocked()

	log.Info().
		Str("room_code", s.code).
		Str("game_id", s.gameID.String()).
		Msg("game started")

	evs := []events.Event{events.New(events.KindGameStarted, events.GameStartedPayload{
		GameID:  s.gameID,
		Players: s.playersLocked(),
	})}
	evs = append(evs, s.startRoundLocked(1)...)
	s.emitLocked(evs)
	return nil
}

// NextRound deals the next round after a completed one. Admin only.
func (s *Session) NextRound(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdminLocked(callerID); err != nil {
		return err
	}
	return s.advanceLocked()
}

// AdvanceRound deals the round following completed. It is the system
// counterpart of NextRound and rejects with INVALID_PHASE when the room has
// already moved on.
func (s *Session) AdvanceRound(completed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round == nil || s.round.Number() != completed {
		return rules.Reject(rules.ReasonInvalidPhase, "round %d is not the latest round", completed)
	}
	return s.advanceLocked()
}

func (s *Session) advanceLocked() error {
	if s.status != models.RoomStatusRoundComplete {
		return rules.Reject(rules.ReasonInvalidPhase, "next round needs a completed round, status is %s", s.status)
	}
	s.touchLocked()
	s.emitLocked(s.startRoundLocked(s.round.Number() + 1))
	return nil
}

// EndGame finishes the game early. Admin only.
func (s *Session) EndGame(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdminLocked(callerID); err != nil {
		return err
	}
	if !s.status.InGame() {
		return rules.Reject(rules.ReasonInvalidPhase, "no game in progress")
	}
	s.touchLocked()
	s.emitLocked(s.finishLocked())
	return nil
}

// PlaceTrumpBid bids for trump on behalf of the caller's seat.
func (s *Session) PlaceTrumpBid(userID string, amount int, suit models.Suit) error {
	return s.act(userID, func(r *round.Round, seat models.Seat) ([]events.Event, error) {
		return r.PlaceTrumpBid(seat, amount, suit)
	})
}

// PassTrump passes in the trump auction.
func (s *Session) PassTrump(userID string) error {
	return s.act(userID, func(r *round.Round, seat models.Seat) ([]events.Event, error) {
		return r.PassTrump(seat)
	})
}

// PlaceContractBid commits the caller to a number of tricks.
func (s *Session) PlaceContractBid(userID string, amount int) error {
	return s.act(userID, func(r *round.Round, seat models.Seat) ([]events.Event, error) {
		return r.PlaceContractBid(seat, amount)
	})
}

// ClaimTrick credits a trick to the caller's own seat.
func (s *Session) ClaimTrick(userID string) error {
	return s.act(userID, func(r *round.Round, seat models.Seat) ([]events.Event, error) {
		return r.ClaimTrick(seat)
	})
}

// UndoTrick takes a trick back from target. Admin only.
func (s *Session) UndoTrick(callerID string, target models.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireAdminLocked(callerID); err != nil {
		return err
	}
	if err := s.requireRoundLocked(); err != nil {
		return err
	}
	evs, err := s.round.UndoTrick(target)
	if err != nil {
		return s.failLocked(err)
	}
	for i, ev := range evs {
		if p, ok := ev.Payload.(events.TrickUndonePayload); ok {
			p.UndoneBy = callerID
			evs[i].Payload = p
		}
	}
	s.applyLocked(evs)
	return nil
}

// ForceDefaultAction resolves seat's pending turn on its behalf.
func (s *Session) ForceDefaultAction(seat models.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceLocked(seat, (*round.Round).ForceDefaultAction)
}

// ForcePass passes for seat during trump bidding.
func (s *Session) ForcePass(seat models.Seat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forceLocked(seat, (*round.Round).ForcePass)
}

// ExpireTurn forces the default action for the turn announced with number
// turn. It reports false without error when that turn has already passed.
func (s *Session) ExpireTurn(turn uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn != s.turn || s.round == nil || !s.status.InGame() {
		return false, nil
	}
	seat, ok := s.round.CurrentTurn()
	if !ok {
		return false, nil
	}
	log.Info().
		Str("room_code", s.code).
		Uint64("turn", turn).
		Int("seat", int(seat)).
		Msg("turn expired, forcing default action")
	if err := s.forceLocked(seat, (*round.Round).ForceDefaultAction); err != nil {
		return false, err
	}
	return true, nil
}

// PendingTurn returns the current turn announcement and the seat it names.
func (s *Session) PendingTurn() (uint64, models.Seat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.round == nil || !s.status.InGame() {
		return 0, 0, false
	}
	seat, ok := s.round.CurrentTurn()
	return s.turn, seat, ok
}

// SeatConnection returns the connection status of seat.
func (s *Session) SeatConnection(seat models.Seat) (models.ConnectionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !seat.Valid() || s.seats[seat] == nil {
		return "", false
	}
	return s.seats[seat].status, true
}

type action func(r *round.Round, seat models.Seat) ([]events.Event, error)

func (s *Session) act(userID string, fn action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.requireSeatLocked(userID)
	if err != nil {
		return err
	}
	if err := s.requireRoundLocked(); err != nil {
		return err
	}
	evs, err := fn(s.round, seat)
	if err != nil {
		return s.failLocked(err)
	}
	s.applyLocked(evs)
	return nil
}

func (s *Session) forceLocked(seat models.Seat, fn action) error {
	if err := s.requireRoundLocked(); err != nil {
		return err
	}
	evs, err := fn(s.round, seat)
	if err != nil {
		return s.failLocked(err)
	}
	s.applyLocked(evs)
	return nil
}

func (s *Session) requireRoundLocked() error {
	if s.round == nil || !s.status.InGame() {
		return rules.Reject(rules.ReasonInvalidPhase, "no game in progress in room %s", s.code)
	}
	return nil
}

// failLocked passes rejections through and logs anything else as a fault.
func (s *Session) failLocked(err error) error {
	if _, ok := rules.ReasonOf(err); !ok {
		log.Error().
			Err(err).
			Str("room_code", s.code).
			Str("game_id", s.gameID.String()).
			Msg("internal consistency fault")
	}
	return err
}

// applyLocked emits round events, replacing the round's raw result with the
// room-level summary and announcing the next turn.
func (s *Session) applyLocked(evs []events.Event) {
	out := make([]events.Event, 0, len(evs)+2)
	for _, ev := range evs {
		if p, ok := ev.Payload.(events.RoundResultPayload); ok {
			out = append(out, s.completeRoundLocked(p)...)
			continue
		}
		out = append(out, ev)
	}
	s.syncStatusLocked()
	out = append(out, s.announceTurnLocked()...)
	s.touchLocked()
	s.emitLocked(out)
}

func (s *Session) startRoundLocked(number int) []events.Event {
	r, evs := round.New(number)
	s.round = r
	s.syncStatusLocked()

	log.Info().
		Str("room_code", s.code).
		Int("round", number).
		Int("dealer", int(r.Dealer())).
		Msg("round started")

	return append(evs, s.announceTurnLocked()...)
}

func (s *Session) syncStatusLocked() {
	if s.round == nil || s.status == models.RoomStatusFinished {
		return
	}
	switch s.round.Phase() {
	case models.RoundPhaseTrumpBidding:
		if s.round.FrischCount() > 0 {
			s.status = models.RoomStatusFrisch
		} else {
			s.status = models.RoomStatusBiddingTrump
		}
	case models.RoundPhaseContractBidding:
		s.status = models.RoomStatusBiddingContract
	case models.RoundPhasePlaying:
		s.status = models.RoomStatusPlaying
	case models.RoundPhaseComplete:
		s.status = models.RoomStatusRoundComplete
	}
}

func (s *Session) announceTurnLocked() []events.Event {
	if s.round == nil || !s.status.InGame() {
		return nil
	}
	seat, ok := s.round.CurrentTurn()
	if !ok {
		return nil
	}
	s.turn++
	payload := events.TurnStartedPayload{
		Turn:       s.turn,
		Seat:       seat,
		Phase:      s.round.Phase(),
		MinimumBid: s.round.MinimumBid(),
	}
	if sl := s.seats[seat]; sl != nil {
		payload.UserID = sl.userID
	}
	return []events.Event{events.New(events.KindTurnStarted, payload)}
}

func (s *Session) completeRoundLocked(p events.RoundResultPayload) []events.Event {
	for _, ss := range p.Seats {
		s.totals[ss.Seat] += ss.Score
	}
	s.roundsPlayed++
	pos := positions(s.totals)

	summary := models.RoundSummary{
		GameID:      s.gameID,
		RoomCode:    s.code,
		RoundNumber: p.RoundNumber,
		TrumpSuit:   p.TrumpSuit,
		TrumpWinner: p.TrumpWinner,
		TrumpBid:    p.TrumpBid,
		FrischCount: p.FrischCount,
		GameType:    p.GameType,
		Seats:       make([]models.SeatResult, 0, len(p.Seats)),
		CompletedAt: s.clock.Now(),
	}
	for _, ss := range p.Seats {
		res := models.SeatResult{
			Seat:        ss.Seat,
			ContractBid: ss.Contract,
			TricksWon:   ss.TricksWon,
			Score:       ss.Score,
			TotalScore:  s.totals[ss.Seat],
			Position:    pos[ss.Seat],
		}
		if sl := s.seats[ss.Seat]; sl != nil {
			res.UserID = sl.userID
			res.DisplayName = sl.displayName
		}
		summary.Seats = append(summary.Seats, res)
	}
	s.history = append(s.history, summary)
	if n := len(s.history) - s.cfg.HistoryLimit; n > 0 {
		s.history = append([]models.RoundSummary(nil), s.history[n:]...)
	}
	s.status = models.RoomStatusRoundComplete

	log.Info().
		Str("room_code", s.code).
		Int("round", p.RoundNumber).
		Str("game_type", string(p.GameType)).
		Ints("totals", s.totals[:]).
		Msg("round complete")

	evs := []events.Event{events.New(events.KindRoundComplete, events.RoundCompletePayload{Summary: summary})}
	if s.cfg.EndCondition(Progress{RoundsPlayed: s.roundsPlayed, Totals: s.totals, LastRound: summary}) {
		evs = append(evs, s.finishLocked()...)
	}
	return evs
}

// finishLocked ends the game and releases seats whose players are gone.
func (s *Session) finishLocked() []events.Event {
	s.status = models.RoomStatusFinished
	pos := positions(s.totals)

	summary := models.GameSummary{
		GameID:     s.gameID,
		RoomCode:   s.code,
		Rounds:     s.roundsPlayed,
		Standings:  make([]models.SeatStanding, 0, models.NumSeats),
		StartedAt:  s.startedAt,
		FinishedAt: s.clock.Now(),
	}
	for i, sl := range s.seats {
		if sl == nil {
			continue
		}
		summary.Standings = append(summary.Standings, models.SeatStanding{
			Seat:        models.Seat(i),
			UserID:      sl.userID,
			DisplayName: sl.displayName,
			TotalScore:  s.totals[i],
			Position:    pos[i],
		})
		if pos[i] == 1 {
			summary.Winners = append(summary.Winners, sl.userID)
		}
	}

	log.Info().
		Str("room_code", s.code).
		Str("game_id", s.gameID.String()).
		Int("rounds", s.roundsPlayed).
		Strs("winners", summary.Winners).
		Msg("game finished")

	evs := []events.Event{events.New(events.KindGameFinished, events.GameFinishedPayload{Summary: summary})}
	for i, sl := range s.seats {
		if sl != nil && sl.status != models.ConnectionStatusConnected {
			evs = append(evs, s.vacateLocked(models.Seat(i))...)
		}
	}
	return evs
}
