package round

import (
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/rules"
)

// TrickTracker counts tricks won per seat during play.
type TrickTracker struct {
	won   [models.NumSeats]int
	total int
}

func (t *TrickTracker) Won(seat models.Seat) int  { return t.won[seat] }
func (t *TrickTracker) All() [models.NumSeats]int { return t.won }
func (t *TrickTracker) Total() int                { return t.total }
func (t *TrickTracker) Remaining() int            { return rules.TricksPerRound - t.total }
func (t *TrickTracker) Complete() bool            { return t.total == rules.TricksPerRound }

// Claim credits one trick to seat and reports whether it was the last one.
func (t *TrickTracker) Claim(seat models.Seat) (bool, error) {
	if t.Complete() {
		return true, rules.Reject(rules.ReasonRoundComplete, "all %d tricks already played", rules.TricksPerRound)
	}
	t.won[seat]++
	t.total++
	return t.Complete(), nil
}

// Undo removes one trick from seat. Completed rounds are frozen.
func (t *TrickTracker) Undo(seat models.Seat) error {
	if t.Complete() {
		return rules.Reject(rules.ReasonRoundAlreadyDone, "round is complete")
	}
	if t.won[seat] == 0 {
		return rules.Reject(rules.ReasonNoTricksToUndo, "%s has no tricks", seat)
	}
	t.won[seat]--
	t.total--
	return nil
}
