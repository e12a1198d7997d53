package round

import (
	"errors"
	"fmt"

	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/mcdev12/whist/go/internal/whist/rules"
)

// Round drives one deal through trump bidding, contract bidding and play.
// It is not safe for concurrent use; the owning room serializes access.
type Round struct {
	number   int
	dealer   models.Seat
	phase    models.RoundPhase
	trump    *TrumpAuction
	contract *ContractAuction
	tricks   TrickTracker
	scores   *[models.NumSeats]int
}

// Result is the immutable outcome of a completed round.
type Result struct {
	Number      int
	TrumpWinner models.TrumpBid
	FrischCount int
	GameType    models.GameType
	Contracts   [models.NumSeats]int
	TricksWon   [models.NumSeats]int
	Scores      [models.NumSeats]int
}

// New starts round number (1-based) in trump bidding at the dealer seat.
func New(number int) (*Round, []events.Event) {
	dealer := models.DealerSeat(number)
	r := &Round{
		number: number,
		dealer: dealer,
		phase:  models.RoundPhaseTrumpBidding,
		trump:  NewTrumpAuction(dealer),
	}
	return r, []events.Event{events.New(events.KindRoundStarted, events.RoundStartedPayload{
		RoundNumber: number,
		DealerSeat:  dealer,
		MinimumBid:  r.trump.MinimumBid(),
	})}
}

func (r *Round) Number() int              { return r.number }
func (r *Round) Phase() models.RoundPhase { return r.phase }
func (r *Round) Dealer() models.Seat      { return r.dealer }
func (r *Round) FrischCount() int         { return r.trump.FrischCount() }

// CurrentTurn returns the seat expected to act. Play has no turn order since
// tricks are claimed as they are won.
func (r *Round) CurrentTurn() (models.Seat, bool) {
	switch r.phase {
	case models.RoundPhaseTrumpBidding:
		return r.trump.CurrentSeat(), true
	case models.RoundPhaseContractBidding:
		return r.contract.CurrentSeat(), true
	default:
		return 0, false
	}
}

// MinimumBid is the trump floor during trump bidding and the trump winner's
// bid afterwards.
func (r *Round) MinimumBid() int {
	if w := r.trump.Winner(); w != nil {
		return w.Amount
	}
	return r.trump.MinimumBid()
}

// PlaceTrumpBid forwards a trump bid to the auction.
func (r *Round) PlaceTrumpBid(seat models.Seat, amount int, suit models.Suit) ([]events.Event, error) {
	return r.placeTrumpBid(seat, amount, suit, false)
}

// PassTrump forwards a pass to the auction and handles frisch and auction end.
func (r *Round) PassTrump(seat models.Seat) ([]events.Event, error) {
	return r.passTrump(seat, false)
}

// PlaceContractBid records a contract and moves to play once all four are in.
func (r *Round) PlaceContractBid(seat models.Seat, amount int) ([]events.Event, error) {
	return r.placeContractBid(seat, amount, false)
}

// ClaimTrick credits a trick to seat; the thirteenth completes the round.
func (r *Round) ClaimTrick(seat models.Seat) ([]events.Event, error) {
	switch r.phase {
	case models.RoundPhasePlaying:
	case models.RoundPhaseComplete:
		return nil, rules.Reject(rules.ReasonRoundComplete, "round %d is complete", r.number)
	default:
		return nil, rules.Reject(rules.ReasonInvalidPhase, "tricks can only be claimed during play, phase is %s", r.phase)
	}
	if !seat.Valid() {
		return nil, rules.Reject(rules.ReasonOutOfRange, "invalid %s", seat)
	}

	complete, err := r.tricks.Claim(seat)
	if err != nil {
		return nil, err
	}
	contract, _ := r.contract.Bid(seat)
	evs := []events.Event{events.New(events.KindTrickWon, events.TrickWonPayload{
		Seat:        seat,
		TricksWon:   r.tricks.Won(seat),
		Contract:    contract,
		TotalTricks: r.tricks.Total(),
		Remaining:   r.tricks.Remaining(),
	})}
	if complete {
		evs = append(evs, r.complete())
	}
	return evs, nil
}

// UndoTrick takes one trick back from seat. Admin gating is the caller's job.
func (r *Round) UndoTrick(seat models.Seat) ([]events.Event, error) {
	switch r.phase {
	case models.RoundPhasePlaying:
	case models.RoundPhaseComplete:
		return nil, rules.Reject(rules.ReasonRoundAlreadyDone, "round %d is complete", r.number)
	default:
		return nil, rules.Reject(rules.ReasonInvalidPhase, "no tricks before play, phase is %s", r.phase)
	}
	if !seat.Valid() {
		return nil, rules.Reject(rules.ReasonOutOfRange, "invalid %s", seat)
	}
	if err := r.tricks.Undo(seat); err != nil {
		return nil, err
	}
	return []events.Event{events.New(events.KindTrickUndone, events.TrickUndonePayload{
		Seat:        seat,
		TricksWon:   r.tricks.Won(seat),
		TotalTricks: r.tricks.Total(),
	})}, nil
}

// ForceDefaultAction resolves seat's pending turn after a timeout: a pass in
// trump bidding (a minimum clubs bid when passing is refused), the lowest
// legal contract in contract bidding.
func (r *Round) ForceDefaultAction(seat models.Seat) ([]events.Event, error) {
	switch r.phase {
	case models.RoundPhaseTrumpBidding:
		evs, err := r.passTrump(seat, true)
		if rules.IsReason(err, rules.ReasonMaxFrischReached) {
			return r.placeTrumpBid(seat, r.trump.MinimumBid(), models.SuitClubs, true)
		}
		return evs, err
	case models.RoundPhaseContractBidding:
		if err := r.contract.turn.Check(seat); err != nil {
			return nil, err
		}
		return r.placeContractBid(seat, r.contract.DefaultBid(seat), true)
	default:
		return nil, rules.Reject(rules.ReasonInvalidPhase, "no pending turn in phase %s", r.phase)
	}
}

// ForcePass passes on behalf of seat during trump bidding.
func (r *Round) ForcePass(seat models.Seat) ([]events.Event, error) {
	if r.phase != models.RoundPhaseTrumpBidding {
		return nil, rules.Reject(rules.ReasonInvalidPhase, "passing only allowed during trump bidding")
	}
	return r.passTrump(seat, true)
}

// Result returns the final outcome once the round is complete.
func (r *Round) Result() (Result, bool) {
	if r.phase != models.RoundPhaseComplete || r.scores == nil {
		return Result{}, false
	}
	return Result{
		Number:      r.number,
		TrumpWinner: *r.trump.Winner(),
		FrischCount: r.trump.FrischCount(),
		GameType:    r.contract.GameType(),
		Contracts:   r.contract.Amounts(),
		TricksWon:   r.tricks.All(),
		Scores:      *r.scores,
	}, true
}

func (r *Round) placeTrumpBid(seat models.Seat, amount int, suit models.Suit, forced bool) ([]events.Event, error) {
	if r.phase != models.RoundPhaseTrumpBidding {
		return nil, rules.Reject(rules.ReasonInvalidPhase, "trump bids only allowed during trump bidding, phase is %s", r.phase)
	}
	if err := r.trump.placeBid(seat, amount, suit, forced); err != nil {
		return nil, err
	}
	return []events.Event{events.New(events.KindBidPlaced, events.BidPlacedPayload{
		Seat:       seat,
		Amount:     amount,
		Suit:       suit,
		NextSeat:   r.trump.CurrentSeat(),
		MinimumBid: r.trump.MinimumBid(),
		Forced:     forced,
	})}, nil
}

func (r *Round) passTrump(seat models.Seat, forced bool) ([]events.Event, error) {
	if r.phase != models.RoundPhaseTrumpBidding {
		return nil, rules.Reject(rules.ReasonInvalidPhase, "passing only allowed during trump bidding, phase is %s", r.phase)
	}
	passes := r.trump.ConsecutivePasses() + 1
	outcome, err := r.trump.pass(seat, forced)
	if err != nil {
		return nil, err
	}

	evs := []events.Event{events.New(events.KindBidPassed, events.BidPassedPayload{
		Seat:              seat,
		ConsecutivePasses: passes,
		NextSeat:          r.trump.CurrentSeat(),
		Forced:            forced,
	})}

	switch outcome {
	case TrumpFrisch:
		evs = append(evs, events.New(events.KindFrischStarted, events.FrischStartedPayload{
			FrischCount: r.trump.FrischCount(),
			MinimumBid:  r.trump.MinimumBid(),
			StartSeat:   r.trump.StartSeat(),
		}))
	case TrumpWon:
		winner := r.trump.Winner()
		r.contract = NewContractAuction(*winner)
		r.phase = models.RoundPhaseContractBidding
		evs = append(evs, events.New(events.KindTrumpSet, events.TrumpSetPayload{
			WinnerSeat: winner.Seat,
			Amount:     winner.Amount,
			Suit:       winner.Suit,
		}))
	}
	return evs, nil
}

func (r *Round) placeContractBid(seat models.Seat, amount int, forced bool) ([]events.Event, error) {
	if r.phase != models.RoundPhaseContractBidding {
		return nil, rules.Reject(rules.ReasonInvalidPhase, "contract bids only allowed during contract bidding, phase is %s", r.phase)
	}
	complete, err := r.contract.PlaceBid(seat, amount)
	if err != nil {
		var rej *rules.Rejection
		if !errors.As(err, &rej) {
			return nil, fmt.Errorf("round %d: %w", r.number, err)
		}
		return nil, err
	}

	placed := events.ContractPlacedPayload{
		Seat:   seat,
		Amount: amount,
		Sum:    r.contract.Sum(),
		Forced: forced,
	}
	if !complete {
		next := r.contract.CurrentSeat()
		placed.NextSeat = &next
	}
	evs := []events.Event{events.New(events.KindContractPlaced, placed)}

	if complete {
		r.phase = models.RoundPhasePlaying
		evs = append(evs, events.New(events.KindContractsSet, events.ContractsSetPayload{
			Contracts: r.contract.Bids(),
			Sum:       r.contract.Sum(),
			GameType:  r.contract.GameType(),
		}))
	}
	return evs, nil
}

// complete scores every seat and freezes the round.
func (r *Round) complete() events.Event {
	gameType := r.contract.GameType()
	contracts := r.contract.Amounts()
	won := r.tricks.All()

	var scores [models.NumSeats]int
	seats := make([]events.SeatScore, 0, models.NumSeats)
	for i := 0; i < models.NumSeats; i++ {
		scores[i] = rules.CalculateRoundScore(contracts[i], won[i], gameType)
		seats = append(seats, events.SeatScore{
			Seat:      models.Seat(i),
			Contract:  contracts[i],
			TricksWon: won[i],
			Score:     scores[i],
		})
	}
	r.scores = &scores
	r.phase = models.RoundPhaseComplete

	winner := r.trump.Winner()
	return events.New(events.KindRoundComplete, events.RoundResultPayload{
		RoundNumber: r.number,
		TrumpSuit:   winner.Suit,
		TrumpWinner: winner.Seat,
		TrumpBid:    winner.Amount,
		FrischCount: r.trump.FrischCount(),
		GameType:    gameType,
		Seats:       seats,
	})
}
