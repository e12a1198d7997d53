package round

import (
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/rules"
)

// TurnTracker holds the seat whose action a bidding protocol is waiting for.
// Both auctions share it so seat advancement lives in one place.
type TurnTracker struct {
	current models.Seat
}

func newTurnTracker(start models.Seat) TurnTracker {
	return TurnTracker{current: start}
}

// Current returns the seat on turn.
func (t *TurnTracker) Current() models.Seat {
	return t.current
}

// Check rejects any seat other than the one on turn.
func (t *TurnTracker) Check(seat models.Seat) error {
	if seat != t.current {
		return rules.Reject(rules.ReasonNotYourTurn, "waiting for %s, not %s", t.current, seat)
	}
	return nil
}

// Advance moves the turn clockwise and returns the new seat.
func (t *TurnTracker) Advance() models.Seat {
	t.current = t.current.Next()
	return t.current
}

// Reset puts the turn back on seat.
func (t *TurnTracker) Reset(seat models.Seat) {
	t.current = seat
}
