package rules

import "github.com/mcdev12/whist/go/internal/models"

// ValidateTrumpBid checks a trump bid against the current floor and the
// standing bid. highest is nil when no bid stands in this cycle.
func ValidateTrumpBid(amount int, suit models.Suit, highest *models.TrumpBid, minimumBid int) error {
	if !suit.Valid() {
		return Reject(ReasonInvalidSuit, "unknown suit %q", suit)
	}
	if amount < minimumBid {
		return Reject(ReasonBelowMinimum, "bid must be at least %d, got %d", minimumBid, amount)
	}
	if amount > MaxTrumpBid {
		return Reject(ReasonAboveMaximum, "bid cannot exceed %d, got %d", MaxTrumpBid, amount)
	}
	if highest == nil {
		return nil
	}
	candidate := models.TrumpBid{Amount: amount, Suit: suit}
	if !candidate.Outranks(*highest) {
		return Reject(ReasonMustOutbid, "must outbid %d %s", highest.Amount, highest.Suit)
	}
	return nil
}
