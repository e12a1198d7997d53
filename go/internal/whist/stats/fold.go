package stats

import (
	"time"

	"github.com/hashicorp/go-set/v3"
	"github.com/mcdev12/whist/go/internal/models"
)

// ApplyRound folds one seat's round outcome into its owner's aggregate.
// A zero bid counts toward the zero tallies only; any other bid is a contract.
// The streak counts consecutive made contracts and is broken by anything else,
// including a made zero.
func ApplyRound(s *models.PlayerStats, result models.SeatResult, trumpWinner bool, at time.Time) {
	s.TotalRounds++
	s.TotalPoints += result.Score

	made := result.TricksWon == result.ContractBid
	if result.ContractBid == 0 {
		s.ZerosAttempted++
		if made {
			s.ZerosMade++
		}
	} else {
		s.ContractsAttempted++
		if made {
			s.ContractsMade++
		}
	}

	if result.Score > s.HighestRoundScore {
		s.HighestRoundScore = result.Score
	}
	if trumpWinner {
		s.TrumpWins++
	}

	if made && result.ContractBid > 0 {
		s.CurrentStreak++
		if s.CurrentStreak > s.BestStreak {
			s.BestStreak = s.CurrentStreak
		}
	} else {
		s.CurrentStreak = 0
	}
	s.UpdatedAt = at
}

// ApplyGame counts a finished game.
func ApplyGame(s *models.PlayerStats, won bool, at time.Time) {
	s.TotalGames++
	if won {
		s.TotalWins++
	}
	s.UpdatedAt = at
}

// FoldRound applies a whole round to the given aggregates, creating entries
// for users seen for the first time.
func FoldRound(all map[string]*models.PlayerStats, summary models.RoundSummary) {
	for _, r := range summary.Seats {
		if r.UserID == "" {
			continue
		}
		ApplyRound(entry(all, r.UserID), r, r.Seat == summary.TrumpWinner, summary.CompletedAt)
	}
}

// FoldGame applies a finished game to the given aggregates.
func FoldGame(all map[string]*models.PlayerStats, summary models.GameSummary) {
	winners := set.From(summary.Winners)
	for _, st := range summary.Standings {
		if st.UserID == "" {
			continue
		}
		ApplyGame(entry(all, st.UserID), winners.Contains(st.UserID), summary.FinishedAt)
	}
}

func entry(all map[string]*models.PlayerStats, userID string) *models.PlayerStats {
	s, ok := all[userID]
	if !ok {
		s = &models.PlayerStats{UserID: userID}
		all[userID] = s
	}
	return s
}
