package round

import (
	"testing"

	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind
	}
	return out
}

func requireReason(t *testing.T, err error, want rules.Reason) {
	t.Helper()
	reason, ok := rules.ReasonOf(err)
	require.True(t, ok, "expected %s rejection, got %v", want, err)
	require.Equal(t, want, reason)
}

// toContractBidding runs round 1 to a trump win by seat 0 with the given bid.
func toContractBidding(t *testing.T, amount int, suit models.Suit) *Round {
	t.Helper()
	r, _ := New(1)
	_, err := r.PlaceTrumpBid(0, amount, suit)
	require.NoError(t, err)
	for seat := models.Seat(1); seat <= 3; seat++ {
		_, err = r.PassTrump(seat)
		require.NoError(t, err)
	}
	require.Equal(t, models.RoundPhaseContractBidding, r.Phase())
	return r
}

func toPlaying(t *testing.T, contracts [4]int) *Round {
	t.Helper()
	r := toContractBidding(t, contracts[0], models.SuitHearts)
	for seat := 0; seat < 4; seat++ {
		_, err := r.PlaceContractBid(models.Seat(seat), contracts[seat])
		require.NoError(t, err)
	}
	require.Equal(t, models.RoundPhasePlaying, r.Phase())
	return r
}

func TestNewRoundStartsAtDealer(t *testing.T) {
	r, evs := New(3)
	assert.Equal(t, models.RoundPhaseTrumpBidding, r.Phase())
	assert.Equal(t, models.Seat(2), r.Dealer())
	seat, ok := r.CurrentTurn()
	require.True(t, ok)
	assert.Equal(t, models.Seat(2), seat)
	require.Len(t, evs, 1)
	assert.Equal(t, events.KindRoundStarted, evs[0].Kind)
	assert.Equal(t, 5, r.MinimumBid())
}

func TestTrumpBiddingTurnOrder(t *testing.T) {
	r, _ := New(1)

	_, err := r.PlaceTrumpBid(1, 5, models.SuitClubs)
	requireReason(t, err, rules.ReasonNotYourTurn)

	_, err = r.PassTrump(2)
	requireReason(t, err, rules.ReasonNotYourTurn)

	evs, err := r.PlaceTrumpBid(0, 6, models.SuitHearts)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	placed := evs[0].Payload.(events.BidPlacedPayload)
	assert.Equal(t, models.Seat(1), placed.NextSeat)

	_, err = r.PlaceTrumpBid(1, 6, models.SuitClubs)
	requireReason(t, err, rules.ReasonMustOutbid)

	_, err = r.PlaceTrumpBid(1, 6, models.SuitSpades)
	require.NoError(t, err)

	_, err = r.PlaceTrumpBid(2, 7, models.SuitClubs)
	require.NoError(t, err)

	snap := r.Snapshot()
	require.NotNil(t, snap.HighestBid)
	assert.Equal(t, models.TrumpBid{Seat: 2, Amount: 7, Suit: models.SuitClubs}, *snap.HighestBid)
	assert.Equal(t, 0, snap.ConsecutivePasses)
	assert.Len(t, snap.TrumpHistory, 3)
}

func TestBidResetsConsecutivePasses(t *testing.T) {
	r, _ := New(1)
	_, err := r.PlaceTrumpBid(0, 5, models.SuitClubs)
	require.NoError(t, err)
	_, err = r.PassTrump(1)
	require.NoError(t, err)
	_, err = r.PassTrump(2)
	require.NoError(t, err)
	_, err = r.PlaceTrumpBid(3, 6, models.SuitClubs)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Snapshot().ConsecutivePasses)

	// seat 0 and 1 pass: still only two passes behind seat 3's bid
	_, err = r.PassTrump(0)
	require.NoError(t, err)
	_, err = r.PassTrump(1)
	require.NoError(t, err)
	assert.Equal(t, models.RoundPhaseTrumpBidding, r.Phase())

	evs, err := r.PassTrump(2)
	require.NoError(t, err)
	assert.Equal(t, []events.Kind{events.KindBidPassed, events.KindTrumpSet}, kinds(evs))
	set := evs[1].Payload.(events.TrumpSetPayload)
	assert.Equal(t, models.Seat(3), set.WinnerSeat)
	assert.Equal(t, 6, set.Amount)

	seat, ok := r.CurrentTurn()
	require.True(t, ok)
	assert.Equal(t, models.Seat(3), seat, "contract bidding starts at the trump winner")
}

func TestFrischProgression(t *testing.T) {
	r, _ := New(2) // dealer seat 1

	for cycle := 1; cycle <= 3; cycle++ {
		var evs []events.Event
		for i := 0; i < 4; i++ {
			seat, _ := r.CurrentTurn()
			var err error
			evs, err = r.PassTrump(seat)
			require.NoError(t, err)
		}
		assert.Equal(t, []events.Kind{events.KindBidPassed, events.KindFrischStarted}, kinds(evs))
		frisch := evs[1].Payload.(events.FrischStartedPayload)
		assert.Equal(t, cycle, frisch.FrischCount)
		assert.Equal(t, rules.MinimumBidFor(cycle), frisch.MinimumBid)
		assert.Equal(t, models.Seat(1), frisch.StartSeat)

		seat, _ := r.CurrentTurn()
		assert.Equal(t, models.Seat(1), seat, "bidding restarts at the dealer")
		assert.Nil(t, r.Snapshot().HighestBid)
	}
	assert.Equal(t, 8, r.MinimumBid())

	_, err := r.PlaceTrumpBid(1, 7, models.SuitNoTrump)
	requireReason(t, err, rules.ReasonBelowMinimum)

	for _, seat := range []models.Seat{1, 2, 3} {
		_, err := r.PassTrump(seat)
		require.NoError(t, err)
	}
	_, err = r.PassTrump(0)
	requireReason(t, err, rules.ReasonMaxFrischReached)
	assert.Equal(t, 3, r.Snapshot().ConsecutivePasses, "refused pass leaves state unchanged")

	seat, _ := r.CurrentTurn()
	assert.Equal(t, models.Seat(0), seat)
	_, err = r.PlaceTrumpBid(0, 8, models.SuitClubs)
	require.NoError(t, err)
}

func TestForceDefaultActionAfterMaxFrisch(t *testing.T) {
	r, _ := New(1)
	for i := 0; i < 15; i++ {
		seat, _ := r.CurrentTurn()
		_, err := r.PassTrump(seat)
		require.NoError(t, err)
	}
	seat, _ := r.CurrentTurn()
	assert.Equal(t, models.Seat(3), seat)

	evs, err := r.ForceDefaultAction(3)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	placed := evs[0].Payload.(events.BidPlacedPayload)
	assert.Equal(t, 8, placed.Amount)
	assert.Equal(t, models.SuitClubs, placed.Suit)
	assert.True(t, placed.Forced)
}

func TestForceDefaultActionRejectsStaleSeat(t *testing.T) {
	r, _ := New(1)
	_, err := r.ForceDefaultAction(2)
	requireReason(t, err, rules.ReasonNotYourTurn)

	evs, err := r.ForceDefaultAction(0)
	require.NoError(t, err)
	assert.True(t, evs[0].Payload.(events.BidPassedPayload).Forced)
}

func TestContractBidding(t *testing.T) {
	r := toContractBidding(t, 7, models.SuitSpades)

	_, err := r.PlaceTrumpBid(1, 9, models.SuitSpades)
	requireReason(t, err, rules.ReasonInvalidPhase)

	_, err = r.PlaceContractBid(1, 3)
	requireReason(t, err, rules.ReasonNotYourTurn)

	_, err = r.PlaceContractBid(0, 6)
	requireReason(t, err, rules.ReasonBelowTrumpMinimum)

	_, err = r.PlaceContractBid(0, 7)
	require.NoError(t, err)
	_, err = r.PlaceContractBid(1, 2)
	require.NoError(t, err)
	_, err = r.PlaceContractBid(2, 3)
	require.NoError(t, err)

	_, err = r.PlaceContractBid(3, 1)
	requireReason(t, err, rules.ReasonSumEqualsThirteen)

	evs, err := r.PlaceContractBid(3, 0)
	require.NoError(t, err)
	assert.Equal(t, []events.Kind{events.KindContractPlaced, events.KindContractsSet}, kinds(evs))
	set := evs[1].Payload.(events.ContractsSetPayload)
	assert.Equal(t, 12, set.Sum)
	assert.Equal(t, models.GameTypeUnder, set.GameType)
	assert.Equal(t, models.RoundPhasePlaying, r.Phase())

	_, ok := r.CurrentTurn()
	assert.False(t, ok)
}

func TestForceDefaultContractSkipsThirteen(t *testing.T) {
	r := toContractBidding(t, 5, models.SuitClubs)
	for seat, amount := range []int{5, 4, 4} {
		_, err := r.PlaceContractBid(models.Seat(seat), amount)
		require.NoError(t, err)
	}
	evs, err := r.ForceDefaultAction(3)
	require.NoError(t, err)
	placed := evs[0].Payload.(events.ContractPlacedPayload)
	assert.Equal(t, 1, placed.Amount, "0 would make the sum 13")
	assert.Equal(t, models.GameTypeOver, r.Snapshot().GameType)
}

func TestClaimAndUndoTricks(t *testing.T) {
	r := toPlaying(t, [4]int{5, 3, 3, 0})

	_, err := r.UndoTrick(1)
	requireReason(t, err, rules.ReasonNoTricksToUndo)

	for i := 0; i < 3; i++ {
		_, err = r.ClaimTrick(1)
		require.NoError(t, err)
	}
	evs, err := r.UndoTrick(1)
	require.NoError(t, err)
	undone := evs[0].Payload.(events.TrickUndonePayload)
	assert.Equal(t, 2, undone.TricksWon)
	assert.Equal(t, 2, undone.TotalTricks)

	_, err = r.UndoTrick(1)
	require.NoError(t, err)
	_, err = r.UndoTrick(1)
	require.NoError(t, err)
	_, err = r.UndoTrick(1)
	requireReason(t, err, rules.ReasonNoTricksToUndo)
}

func TestRoundCompletesOnThirteenthTrick(t *testing.T) {
	r := toPlaying(t, [4]int{5, 3, 3, 0})

	claims := []models.Seat{0, 0, 0, 0, 0, 1, 1, 1, 2, 2, 2, 2}
	for _, seat := range claims {
		evs, err := r.ClaimTrick(seat)
		require.NoError(t, err)
		require.Len(t, evs, 1)
	}
	snap := r.Snapshot()
	assert.Equal(t, 12, snap.TotalTricks)

	evs, err := r.ClaimTrick(3)
	require.NoError(t, err)
	assert.Equal(t, []events.Kind{events.KindTrickWon, events.KindRoundComplete}, kinds(evs))
	assert.Equal(t, models.RoundPhaseComplete, r.Phase())

	res, ok := r.Result()
	require.True(t, ok)
	assert.Equal(t, models.GameTypeUnder, res.GameType)
	assert.Equal(t, [4]int{5, 3, 4, 1}, res.TricksWon)
	assert.Equal(t, [4]int{35, 19, -10, -50}, res.Scores)

	payload := evs[1].Payload.(events.RoundResultPayload)
	assert.Equal(t, models.SuitHearts, payload.TrumpSuit)
	assert.Len(t, payload.Seats, 4)

	_, err = r.ClaimTrick(0)
	requireReason(t, err, rules.ReasonRoundComplete)
	_, err = r.UndoTrick(0)
	requireReason(t, err, rules.ReasonRoundAlreadyDone)
}

func TestClaimBeforePlayIsRejected(t *testing.T) {
	r, _ := New(1)
	_, err := r.ClaimTrick(0)
	requireReason(t, err, rules.ReasonInvalidPhase)
	_, err = r.PlaceContractBid(0, 3)
	requireReason(t, err, rules.ReasonInvalidPhase)
}

func TestTrickSumNeverExceedsThirteen(t *testing.T) {
	r := toPlaying(t, [4]int{6, 6, 6, 6})
	for i := 0; i < 40; i++ {
		seat := models.Seat(i % 4)
		_, _ = r.ClaimTrick(seat)
		if i%5 == 4 {
			_, _ = r.UndoTrick(seat)
		}
		snap := r.Snapshot()
		sum := 0
		for _, w := range snap.TricksWon {
			sum += w
		}
		require.LessOrEqual(t, sum, 13)
		require.Equal(t, sum, snap.TotalTricks)
		if sum == 13 {
			require.Equal(t, models.RoundPhaseComplete, snap.Phase)
		}
	}
	assert.Equal(t, models.RoundPhaseComplete, r.Phase())
}
