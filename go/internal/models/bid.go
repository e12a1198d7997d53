package models

// TrumpBid is a standing bid in the trump auction.
type TrumpBid struct {
	Seat   Seat `json:"seat"`
	Amount int  `json:"amount"`
	Suit   Suit `json:"suit"`
}

// Outranks reports whether b beats other by amount, then suit rank.
func (b TrumpBid) Outranks(other TrumpBid) bool {
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.Suit.Rank() > other.Suit.Rank()
}

// TrumpBidRecord is one entry of the append-only trump auction history.
type TrumpBidRecord struct {
	Seat   Seat `json:"seat"`
	Amount int  `json:"amount,omitempty"`
	Suit   Suit `json:"suit,omitempty"`
	Pass   bool `json:"pass"`
	Cycle  int  `json:"cycle"` // frisch count at the time of the action
	Forced bool `json:"forced,omitempty"`
}

// ContractBid is a seat's commitment for the round.
type ContractBid struct {
	Seat   Seat `json:"seat"`
	Amount int  `json:"amount"`
	Order  int  `json:"order"` // 0-based position in the bidding sequence
}
