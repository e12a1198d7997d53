package round

import (
	"fmt"

	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/rules"
)

// ContractAuction collects one contract bid per seat, starting with the trump winner.
type ContractAuction struct {
	turn        TurnTracker
	trumpWinner models.TrumpBid
	bids        [models.NumSeats]int
	placed      [models.NumSeats]bool
	order       []models.ContractBid
	sum         int
	gameType    models.GameType
}

// NewContractAuction starts contract bidding at the trump winner's seat.
func NewContractAuction(trumpWinner models.TrumpBid) *ContractAuction {
	return &ContractAuction{
		turn:        newTurnTracker(trumpWinner.Seat),
		trumpWinner: trumpWinner,
		order:       make([]models.ContractBid, 0, models.NumSeats),
	}
}

func (c *ContractAuction) CurrentSeat() models.Seat  { return c.turn.Current() }
func (c *ContractAuction) Sum() int                  { return c.sum }
func (c *ContractAuction) Complete() bool            { return len(c.order) == models.NumSeats }
func (c *ContractAuction) GameType() models.GameType { return c.gameType }

// Bids returns the recorded bids in bidding order.
func (c *ContractAuction) Bids() []models.ContractBid {
	out := make([]models.ContractBid, len(c.order))
	copy(out, c.order)
	return out
}

// Bid returns the contract recorded for seat.
func (c *ContractAuction) Bid(seat models.Seat) (int, bool) {
	return c.bids[seat], c.placed[seat]
}

// Amounts returns all four contracts indexed by seat. Valid only once complete.
func (c *ContractAuction) Amounts() [models.NumSeats]int {
	return c.bids
}

// PlaceBid records seat's contract. It reports true when the fourth bid
// completes the auction, at which point the game type is fixed.
func (c *ContractAuction) PlaceBid(seat models.Seat, amount int) (bool, error) {
	if c.Complete() {
		return true, rules.Reject(rules.ReasonInvalidPhase, "all contracts already placed")
	}
	if err := c.turn.Check(seat); err != nil {
		return false, err
	}

	isLast := len(c.order) == models.NumSeats-1
	isWinner := seat == c.trumpWinner.Seat
	if err := rules.ValidateContractBid(amount, c.sum, isLast, isWinner, c.trumpWinner.Amount); err != nil {
		return false, err
	}

	c.bids[seat] = amount
	c.placed[seat] = true
	c.order = append(c.order, models.ContractBid{Seat: seat, Amount: amount, Order: len(c.order)})
	c.sum += amount

	if !c.Complete() {
		c.turn.Advance()
		return false, nil
	}

	gameType, err := rules.DetermineGameType(c.bids)
	if err != nil {
		return true, fmt.Errorf("contract auction completed in an inconsistent state: %w", err)
	}
	c.gameType = gameType
	return true, nil
}

// DefaultBid is the lowest contract seat could legally bid right now.
func (c *ContractAuction) DefaultBid(seat models.Seat) int {
	amount := 0
	if seat == c.trumpWinner.Seat {
		amount = c.trumpWinner.Amount
	}
	if len(c.order) == models.NumSeats-1 && c.sum+amount == rules.TricksPerRound {
		amount++
	}
	return amount
}
