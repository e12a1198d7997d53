package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/stretchr/testify/suite"
)

type SessionSuite struct {
	suite.Suite
	clock *clockwork.FakeClock
	rec   *recorder
	sess  *Session
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) SetupTest() {
	s.clock = clockwork.NewFakeClock()
	s.rec = &recorder{}
	s.sess = NewSession("ABC234", Config{EndCondition: RoundLimit(2)}, s.rec, s.clock)
	for i := 0; i < models.NumSeats; i++ {
		res, err := s.sess.Join(user(i), fmt.Sprintf("Player %d", i))
		s.Require().NoError(err)
		s.Require().Equal(models.Seat(i), res.Seat)
	}
	s.rec.take()
}

func user(i int) string { return fmt.Sprintf("u%d", i) }

func (s *SessionSuite) reason(err error, want rules.Reason) {
	s.T().Helper()
	requireReason(s.T(), err, want)
}

func (s *SessionSuite) start() {
	s.Require().NoError(s.sess.StartGame(user(0)))
}

// playRound wins trump for the seat on turn, collects contracts in bidding
// order and then claims tricks per seat.
func (s *SessionSuite) playRound(contracts []int, tricks [models.NumSeats]int) {
	_, bidder, ok := s.sess.PendingTurn()
	s.Require().True(ok)
	s.Require().NoError(s.sess.PlaceTrumpBid(user(int(bidder)), contracts[0], models.SuitHearts))
	for i := 1; i < models.NumSeats; i++ {
		seat := models.Seat((int(bidder) + i) % models.NumSeats)
		s.Require().NoError(s.sess.PassTrump(user(int(seat))))
	}
	for i, amount := range contracts {
		seat := models.Seat((int(bidder) + i) % models.NumSeats)
		s.Require().NoError(s.sess.PlaceContractBid(user(int(seat)), amount))
	}
	for seat, n := range tricks {
		for k := 0; k < n; k++ {
			s.Require().NoError(s.sess.ClaimTrick(user(seat)))
		}
	}
}

func (s *SessionSuite) TestJoinAssignsSeatsAndAdmin() {
	snap := s.sess.Snapshot()
	s.True(snap.Seats[0].IsAdmin)
	for i := 1; i < models.NumSeats; i++ {
		s.False(snap.Seats[i].IsAdmin)
	}

	_, err := s.sess.Join("u4", "Late")
	s.reason(err, rules.ReasonRoomFull)

	res, err := s.sess.Join(user(2), "")
	s.Require().NoError(err)
	s.Equal(models.Seat(2), res.Seat)
	s.False(res.Reconnected)
	s.Empty(s.rec.take())
}

func (s *SessionSuite) TestStartGameGating() {
	s.reason(s.sess.StartGame(user(1)), rules.ReasonNotRoomAdmin)
	s.reason(s.sess.StartGame("stranger"), rules.ReasonPlayerNotInRoom)

	small := NewSession("XYZ789", DefaultConfig(), nil, s.clock)
	_, err := small.Join("a", "A")
	s.Require().NoError(err)
	s.reason(small.StartGame("a"), rules.ReasonNotEnoughPlayers)

	s.start()
	s.reason(s.sess.StartGame(user(0)), rules.ReasonAlreadyStarted)
}

func (s *SessionSuite) TestStartGameDealsFirstRound() {
	s.start()

	s.Equal(models.RoomStatusBiddingTrump, s.sess.Status())
	s.NotEqual(uuid.Nil, s.sess.GameID())
	evs := s.rec.take()
	s.Equal([]events.Kind{events.KindGameStarted, events.KindRoundStarted, events.KindTurnStarted}, kinds(evs))

	turn := evs[2].Payload.(events.TurnStartedPayload)
	s.Equal(uint64(1), turn.Turn)
	s.Equal(models.Seat(0), turn.Seat)
	s.Equal(user(0), turn.UserID)
	s.Equal(5, turn.MinimumBid)
}

func (s *SessionSuite) TestActionsRequireGameAndSeat() {
	s.reason(s.sess.PassTrump(user(0)), rules.ReasonInvalidPhase)
	s.start()
	s.reason(s.sess.PassTrump("stranger"), rules.ReasonPlayerNotInRoom)
	s.reason(s.sess.PassTrump(user(1)), rules.ReasonNotYourTurn)
	s.reason(s.sess.PlaceContractBid(user(0), 3), rules.ReasonInvalidPhase)
}

func (s *SessionSuite) TestConcurrentActionsAcceptExactlyOne() {
	s.start()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.sess.PlaceTrumpBid(user(0), 5, models.SuitClubs)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
				return
			}
			reason, ok := rules.ReasonOf(err)
			if s.True(ok) {
				s.Equal(rules.ReasonNotYourTurn, reason)
			}
		}()
	}
	wg.Wait()

	s.Equal(1, accepted)
	_, seat, ok := s.sess.PendingTurn()
	s.Require().True(ok)
	s.Equal(models.Seat(1), seat)
}

func (s *SessionSuite) TestFrischChangesStatus() {
	s.start()
	for i := 0; i < models.NumSeats; i++ {
		s.Require().NoError(s.sess.PassTrump(user(i)))
	}
	s.Equal(models.RoomStatusFrisch, s.sess.Status())

	ev, ok := s.rec.find(events.KindFrischStarted)
	s.Require().True(ok)
	s.Equal(6, ev.Payload.(events.FrischStartedPayload).MinimumBid)

	ev, ok = s.rec.find(events.KindTurnStarted)
	s.Require().True(ok)
	s.Equal(models.Seat(0), ev.Payload.(events.TurnStartedPayload).Seat)
}

func (s *SessionSuite) TestRoundCompletesWithTotalsAndPositions() {
	s.start()
	s.playRound([]int{5, 3, 3, 0}, [4]int{5, 3, 4, 1})

	s.Equal(models.RoomStatusRoundComplete, s.sess.Status())
	ev, ok := s.rec.find(events.KindRoundComplete)
	s.Require().True(ok)
	summary := ev.Payload.(events.RoundCompletePayload).Summary
	s.Equal(1, summary.RoundNumber)
	s.Equal("ABC234", summary.RoomCode)
	s.Equal(models.GameTypeUnder, summary.GameType)
	s.Equal(models.SuitHearts, summary.TrumpSuit)
	s.Require().Len(summary.Seats, 4)

	wantScores := []int{35, 19, -10, -50}
	for i, res := range summary.Seats {
		s.Equal(user(i), res.UserID)
		s.Equal(wantScores[i], res.Score)
		s.Equal(wantScores[i], res.TotalScore)
		s.Equal(i+1, res.Position)
	}

	_, _, pending := s.sess.PendingTurn()
	s.False(pending)
	s.reason(s.sess.ClaimTrick(user(0)), rules.ReasonRoundComplete)
}

func (s *SessionSuite) TestGameLoopsUntilEndCondition() {
	s.start()
	s.playRound([]int{5, 3, 3, 0}, [4]int{5, 3, 4, 1})

	s.reason(s.sess.NextRound(user(1)), rules.ReasonNotRoomAdmin)
	s.Require().NoError(s.sess.NextRound(user(0)))
	s.Equal(models.RoomStatusBiddingTrump, s.sess.Status())

	_, seat, ok := s.sess.PendingTurn()
	s.Require().True(ok)
	s.Equal(models.Seat(1), seat, "round 2 starts left of round 1")

	s.playRound([]int{5, 4, 4, 1}, [4]int{0, 5, 4, 4})

	s.Equal(models.RoomStatusFinished, s.sess.Status())
	ev, ok := s.rec.find(events.KindGameFinished)
	s.Require().True(ok)
	summary := ev.Payload.(events.GameFinishedPayload).Summary
	s.Equal(2, summary.Rounds)
	s.Equal([]string{user(1)}, summary.Winners)

	totals := map[models.Seat]int{}
	for _, st := range summary.Standings {
		totals[st.Seat] = st.TotalScore
	}
	s.Equal(map[models.Seat]int{0: 25, 1: 54, 2: 16, 3: -24}, totals)

	s.reason(s.sess.NextRound(user(0)), rules.ReasonInvalidPhase)
	s.Require().NoError(s.sess.StartGame(user(0)), "finished rooms can start again")
}

func (s *SessionSuite) TestHistoryKeepsOnlyRecentRounds() {
	s.sess = NewSession("CAP234", Config{HistoryLimit: 2}, s.rec, s.clock)
	for i := 0; i < models.NumSeats; i++ {
		_, err := s.sess.Join(user(i), fmt.Sprintf("Player %d", i))
		s.Require().NoError(err)
	}
	s.start()
	for round := 1; round <= 3; round++ {
		if round > 1 {
			s.Require().NoError(s.sess.NextRound(user(0)))
		}
		s.playRound([]int{5, 3, 3, 0}, [4]int{5, 3, 4, 1})
	}

	snap := s.sess.Snapshot()
	s.Equal(3, snap.RoundsPlayed)
	s.Require().Len(snap.History, 2)
	s.Equal(2, snap.History[0].RoundNumber)
	s.Equal(3, snap.History[1].RoundNumber)
}

func (s *SessionSuite) TestAdvanceRoundIgnoresStaleRound() {
	s.start()
	s.playRound([]int{5, 3, 3, 0}, [4]int{5, 3, 4, 1})

	s.reason(s.sess.AdvanceRound(7), rules.ReasonInvalidPhase)
	s.Require().NoError(s.sess.AdvanceRound(1))
	s.reason(s.sess.AdvanceRound(1), rules.ReasonInvalidPhase)
}

func (s *SessionSuite) TestEndGameByAdmin() {
	s.reason(s.sess.EndGame(user(0)), rules.ReasonInvalidPhase)
	s.start()
	s.reason(s.sess.EndGame(user(2)), rules.ReasonNotRoomAdmin)
	s.Require().NoError(s.sess.EndGame(user(0)))
	s.Equal(models.RoomStatusFinished, s.sess.Status())
	s.reason(s.sess.PassTrump(user(0)), rules.ReasonInvalidPhase)
}

func (s *SessionSuite) TestExpireTurnForcesPassOnce() {
	s.start()
	turn, seat, ok := s.sess.PendingTurn()
	s.Require().True(ok)
	s.Equal(models.Seat(0), seat)

	fired, err := s.sess.ExpireTurn(turn + 5)
	s.Require().NoError(err)
	s.False(fired)

	fired, err = s.sess.ExpireTurn(turn)
	s.Require().NoError(err)
	s.True(fired)

	ev, ok := s.rec.find(events.KindBidPassed)
	s.Require().True(ok)
	s.True(ev.Payload.(events.BidPassedPayload).Forced)

	fired, err = s.sess.ExpireTurn(turn)
	s.Require().NoError(err)
	s.False(fired, "the same turn cannot expire twice")

	next, seat, ok := s.sess.PendingTurn()
	s.Require().True(ok)
	s.Equal(turn+1, next)
	s.Equal(models.Seat(1), seat)
}

func (s *SessionSuite) TestExpireTurnPlacesLowestContract() {
	s.start()
	s.Require().NoError(s.sess.PlaceTrumpBid(user(0), 5, models.SuitSpades))
	for i := 1; i < models.NumSeats; i++ {
		s.Require().NoError(s.sess.PassTrump(user(i)))
	}
	s.Equal(models.RoomStatusBiddingContract, s.sess.Status())

	turn, _, _ := s.sess.PendingTurn()
	fired, err := s.sess.ExpireTurn(turn)
	s.Require().NoError(err)
	s.True(fired)

	ev, ok := s.rec.find(events.KindContractPlaced)
	s.Require().True(ok)
	placed := ev.Payload.(events.ContractPlacedPayload)
	s.Equal(models.Seat(0), placed.Seat)
	s.Equal(5, placed.Amount, "the trump winner is held to the winning bid")
	s.True(placed.Forced)
}

func (s *SessionSuite) TestUndoTrickIsAdminOnly() {
	s.start()
	s.playRound([]int{5, 3, 3, 0}, [4]int{2, 0, 0, 0})

	s.reason(s.sess.UndoTrick(user(1), 0), rules.ReasonNotRoomAdmin)
	s.reason(s.sess.UndoTrick(user(0), 1), rules.ReasonNoTricksToUndo)
	s.Require().NoError(s.sess.UndoTrick(user(0), 0))

	ev, ok := s.rec.find(events.KindTrickUndone)
	s.Require().True(ok)
	p := ev.Payload.(events.TrickUndonePayload)
	s.Equal(user(0), p.UndoneBy)
	s.Equal(1, p.TricksWon)
	s.Equal(1, p.TotalTricks)
}

func (s *SessionSuite) TestDisconnectHoldsSeatDuringGame() {
	s.start()
	s.Require().NoError(s.sess.Disconnect(user(2)))

	ev, ok := s.rec.find(events.KindPlayerDisconnected)
	s.Require().True(ok)
	s.Equal(s.clock.Now().Add(DefaultReconnectGrace), ev.Payload.(events.PlayerDisconnectedPayload).GraceUntil)

	deadline, ok := s.sess.NextGraceDeadline()
	s.Require().True(ok)
	s.Equal(s.clock.Now().Add(DefaultReconnectGrace), deadline)

	s.clock.Advance(30 * time.Second)
	s.Empty(s.sess.ExpireGrace())

	res, err := s.sess.Join(user(2), "Player 2")
	s.Require().NoError(err)
	s.True(res.Reconnected)
	s.Equal(models.Seat(2), res.Seat)
	_, ok = s.rec.find(events.KindPlayerReconnected)
	s.True(ok)
}

func (s *SessionSuite) TestGraceExpiryAbandonsSeat() {
	s.start()
	s.Require().NoError(s.sess.Leave(user(3)))

	s.clock.Advance(DefaultReconnectGrace + time.Second)
	s.Equal([]models.Seat{3}, s.sess.ExpireGrace())

	conn, ok := s.sess.SeatConnection(3)
	s.Require().True(ok)
	s.Equal(models.ConnectionStatusAbandoned, conn)
	s.Empty(s.sess.ExpireGrace())

	res, err := s.sess.Join(user(3), "")
	s.Require().NoError(err)
	s.True(res.Reconnected, "an abandoned seat still belongs to its player")
}

func (s *SessionSuite) TestLeaveWhileWaitingTransfersAdmin() {
	s.Require().NoError(s.sess.Leave(user(0)))

	evs := s.rec.take()
	s.Equal([]events.Kind{events.KindPlayerLeft, events.KindAdminChanged}, kinds(evs))
	s.Equal(user(1), evs[1].Payload.(events.AdminChangedPayload).UserID)

	snap := s.sess.Snapshot()
	s.Nil(snap.Seats[0])
	s.True(snap.Seats[1].IsAdmin)

	res, err := s.sess.Join("u9", "New")
	s.Require().NoError(err)
	s.Equal(models.Seat(0), res.Seat)
	s.False(s.sess.Snapshot().Seats[0].IsAdmin)
}

func (s *SessionSuite) TestReseatMovesTotals() {
	s.start()
	s.playRound([]int{5, 3, 3, 0}, [4]int{5, 3, 4, 1})

	order := []string{user(3), user(2), user(1), user(0)}
	s.reason(s.sess.Reseat(user(1), order), rules.ReasonNotRoomAdmin)
	s.reason(s.sess.Reseat(user(0), order[:3]), rules.ReasonInvalidReseat)
	s.reason(s.sess.Reseat(user(0), []string{user(0), user(0), user(1), user(2)}), rules.ReasonInvalidReseat)
	s.reason(s.sess.Reseat(user(0), []string{user(0), "ghost", user(1), user(2)}), rules.ReasonInvalidReseat)
	s.reason(s.sess.Reseat(user(0), []string{user(0), "", user(1), user(2)}), rules.ReasonInvalidReseat)

	s.Require().NoError(s.sess.Reseat(user(0), order))
	seat, ok := s.sess.SeatOf(user(3))
	s.Require().True(ok)
	s.Equal(models.Seat(0), seat)

	snap := s.sess.Snapshot()
	s.Equal(-50, snap.Seats[0].TotalScore)
	s.Equal(35, snap.Seats[3].TotalScore)
	s.True(snap.Seats[3].IsAdmin)
	_, ok = s.rec.find(events.KindReseated)
	s.True(ok)

	s.Require().NoError(s.sess.NextRound(user(0)))
	s.reason(s.sess.Reseat(user(0), order), rules.ReasonInvalidPhase)
}

func (s *SessionSuite) TestSnapshotDuringContractBidding() {
	s.start()
	s.Require().NoError(s.sess.PlaceTrumpBid(user(0), 6, models.SuitClubs))
	for i := 1; i < models.NumSeats; i++ {
		s.Require().NoError(s.sess.PassTrump(user(i)))
	}
	s.Require().NoError(s.sess.PlaceContractBid(user(0), 7))

	snap := s.sess.Snapshot()
	s.Equal(models.RoomStatusBiddingContract, snap.Status)
	s.Require().NotNil(snap.GameID)
	s.Require().NotNil(snap.Round)
	s.Equal(models.RoundPhaseContractBidding, snap.Round.Phase)
	s.Require().NotNil(snap.Round.TrumpWinner)
	s.Equal(6, snap.Round.TrumpWinner.Amount)
	s.Require().NotNil(snap.Round.Contracts[0])
	s.Equal(7, *snap.Round.Contracts[0])
	s.Nil(snap.Round.Contracts[1])
	s.Require().NotNil(snap.Round.CurrentTurn)
	s.Equal(models.Seat(1), *snap.Round.CurrentTurn)
}
