package round

import "github.com/mcdev12/whist/go/internal/models"

// Snapshot is a consistent copy of round state for sync requests.
type Snapshot struct {
	Number            int                     `json:"number"`
	Phase             models.RoundPhase       `json:"phase"`
	DealerSeat        models.Seat             `json:"dealer_seat"`
	CurrentTurn       *models.Seat            `json:"current_turn,omitempty"`
	MinimumBid        int                     `json:"minimum_bid"`
	FrischCount       int                     `json:"frisch_count"`
	ConsecutivePasses int                     `json:"consecutive_passes"`
	HighestBid        *models.TrumpBid        `json:"highest_bid,omitempty"`
	TrumpWinner       *models.TrumpBid        `json:"trump_winner,omitempty"`
	TrumpHistory      []models.TrumpBidRecord `json:"trump_history"`
	Contracts         [models.NumSeats]*int   `json:"contracts"`
	ContractSum       int                     `json:"contract_sum"`
	GameType          models.GameType         `json:"game_type,omitempty"`
	TricksWon         [models.NumSeats]int    `json:"tricks_won"`
	TotalTricks       int                     `json:"total_tricks"`
	Scores            *[models.NumSeats]int   `json:"scores,omitempty"`
}

// Snapshot copies the round state.
func (r *Round) Snapshot() Snapshot {
	s := Snapshot{
		Number:            r.number,
		Phase:             r.phase,
		DealerSeat:        r.dealer,
		MinimumBid:        r.MinimumBid(),
		FrischCount:       r.trump.FrischCount(),
		ConsecutivePasses: r.trump.ConsecutivePasses(),
		HighestBid:        r.trump.Highest(),
		TrumpWinner:       r.trump.Winner(),
		TrumpHistory:      r.trump.History(),
		TricksWon:         r.tricks.All(),
		TotalTricks:       r.tricks.Total(),
	}
	if seat, ok := r.CurrentTurn(); ok {
		s.CurrentTurn = &seat
	}
	if r.contract != nil {
		for i := 0; i < models.NumSeats; i++ {
			if amount, ok := r.contract.Bid(models.Seat(i)); ok {
				a := amount
				s.Contracts[i] = &a
			}
		}
		s.ContractSum = r.contract.Sum()
		s.GameType = r.contract.GameType()
	}
	if r.scores != nil {
		scores := *r.scores
		s.Scores = &scores
	}
	return s
}
