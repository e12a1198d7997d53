package round

import (
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/rules"
)

// TrumpOutcome reports what an auction action did to the auction as a whole.
type TrumpOutcome int

const (
	TrumpContinues TrumpOutcome = iota
	TrumpFrisch
	TrumpWon
)

// TrumpAuction is the turn-ordered auction for the trump suit.
type TrumpAuction struct {
	startSeat         models.Seat
	turn              TurnTracker
	highest           *models.TrumpBid
	minimumBid        int
	frischCount       int
	consecutivePasses int
	winner            *models.TrumpBid
	history           []models.TrumpBidRecord
}

// NewTrumpAuction opens bidding at startSeat with the base minimum.
func NewTrumpAuction(startSeat models.Seat) *TrumpAuction {
	return &TrumpAuction{
		startSeat:  startSeat,
		turn:       newTurnTracker(startSeat),
		minimumBid: rules.MinimumBidFor(0),
	}
}

func (a *TrumpAuction) CurrentSeat() models.Seat  { return a.turn.Current() }
func (a *TrumpAuction) MinimumBid() int           { return a.minimumBid }
func (a *TrumpAuction) FrischCount() int          { return a.frischCount }
func (a *TrumpAuction) ConsecutivePasses() int    { return a.consecutivePasses }
func (a *TrumpAuction) Winner() *models.TrumpBid  { return copyBid(a.winner) }
func (a *TrumpAuction) Highest() *models.TrumpBid { return copyBid(a.highest) }
func (a *TrumpAuction) Finished() bool            { return a.winner != nil }
func (a *TrumpAuction) StartSeat() models.Seat    { return a.startSeat }

func (a *TrumpAuction) History() []models.TrumpBidRecord {
	out := make([]models.TrumpBidRecord, len(a.history))
	copy(out, a.history)
	return out
}

// PlaceBid records a bid from the seat on turn. highest and consecutivePasses
// change together or not at all.
func (a *TrumpAuction) PlaceBid(seat models.Seat, amount int, suit models.Suit) error {
	return a.placeBid(seat, amount, suit, false)
}

func (a *TrumpAuction) placeBid(seat models.Seat, amount int, suit models.Suit, forced bool) error {
	if a.Finished() {
		return rules.Reject(rules.ReasonInvalidPhase, "trump auction already won")
	}
	if err := a.turn.Check(seat); err != nil {
		return err
	}
	if err := rules.ValidateTrumpBid(amount, suit, a.highest, a.minimumBid); err != nil {
		return err
	}

	a.highest = &models.TrumpBid{Seat: seat, Amount: amount, Suit: suit}
	a.consecutivePasses = 0
	a.history = append(a.history, models.TrumpBidRecord{
		Seat: seat, Amount: amount, Suit: suit, Cycle: a.frischCount, Forced: forced,
	})
	a.turn.Advance()
	return nil
}

// Pass records a pass from the seat on turn.
//
// Three passes behind a standing bid end the auction. Four passes with no bid
// trigger a frisch. Once the frisch limit is reached, the pass that would be
// the fourth is refused with MAX_FRISCH_REACHED and the seat must bid.
func (a *TrumpAuction) Pass(seat models.Seat) (TrumpOutcome, error) {
	return a.pass(seat, false)
}

func (a *TrumpAuction) pass(seat models.Seat, forced bool) (TrumpOutcome, error) {
	if a.Finished() {
		return TrumpContinues, rules.Reject(rules.ReasonInvalidPhase, "trump auction already won")
	}
	if err := a.turn.Check(seat); err != nil {
		return TrumpContinues, err
	}
	if a.highest == nil && a.consecutivePasses == models.NumSeats-1 && a.frischCount >= rules.MaxFrischCount {
		return TrumpContinues, rules.Reject(rules.ReasonMaxFrischReached,
			"frisch limit of %d reached, %s must bid at least %d", rules.MaxFrischCount, seat, a.minimumBid)
	}

	a.consecutivePasses++
	a.history = append(a.history, models.TrumpBidRecord{Seat: seat, Pass: true, Cycle: a.frischCount, Forced: forced})
	a.turn.Advance()

	if a.highest != nil && a.consecutivePasses == models.NumSeats-1 {
		a.winner = copyBid(a.highest)
		return TrumpWon, nil
	}
	if a.highest == nil && a.consecutivePasses == models.NumSeats {
		a.frischCount++
		a.minimumBid = rules.MinimumBidFor(a.frischCount)
		a.highest = nil
		a.consecutivePasses = 0
		a.turn.Reset(a.startSeat)
		return TrumpFrisch, nil
	}
	return TrumpContinues, nil
}

func copyBid(b *models.TrumpBid) *models.TrumpBid {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
