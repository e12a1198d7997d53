package room

import "github.com/mcdev12/whist/go/internal/models"

// Progress is what an EndCondition sees after each completed round.
type Progress struct {
	RoundsPlayed int
	Totals       [models.NumSeats]int
	LastRound    models.RoundSummary
}

// EndCondition decides whether the game is over after a round completes.
type EndCondition func(Progress) bool

// Never keeps the game looping until an admin ends it.
func Never(Progress) bool { return false }

// RoundLimit ends the game after n rounds.
func RoundLimit(n int) EndCondition {
	return func(p Progress) bool {
		return n > 0 && p.RoundsPlayed >= n
	}
}

// TargetScore ends the game once any seat reaches target points.
func TargetScore(target int) EndCondition {
	return func(p Progress) bool {
		for _, total := range p.Totals {
			if total >= target {
				return true
			}
		}
		return false
	}
}

// AnyOf ends the game when any condition holds.
func AnyOf(conds ...EndCondition) EndCondition {
	return func(p Progress) bool {
		for _, c := range conds {
			if c != nil && c(p) {
				return true
			}
		}
		return false
	}
}

// positions ranks totals descending; ties share the better position.
func positions(totals [models.NumSeats]int) [models.NumSeats]int {
	var out [models.NumSeats]int
	for i := range totals {
		pos := 1
		for j := range totals {
			if totals[j] > totals[i] {
				pos++
			}
		}
		out[i] = pos
	}
	return out
}
