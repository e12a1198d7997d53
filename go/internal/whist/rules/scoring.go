package rules

import (
	"fmt"

	"github.com/mcdev12/whist/go/internal/models"
)

// TricksPerRound is the number of tricks in one deal.
const TricksPerRound = 13

const (
	MaxTrumpBid    = 13
	MaxContractBid = 13
	MaxFrischCount = 3
)

const (
	zeroMadeOver    = 25
	zeroMadeUnder   = 50
	zeroFailedByOne = -50
)

// minimumBidProgression is indexed by frisch count.
var minimumBidProgression = [...]int{5, 6, 7, 8}

// MinimumBidFor returns the trump bid floor after frischCount re-deals.
func MinimumBidFor(frischCount int) int {
	if frischCount < 0 {
		frischCount = 0
	}
	if frischCount >= len(minimumBidProgression) {
		return minimumBidProgression[len(minimumBidProgression)-1]
	}
	return minimumBidProgression[frischCount]
}

// ValidateContractBid checks range, then the trump winner minimum, then the
// last bidder sum rule. The order fixes which reason is reported.
func ValidateContractBid(amount, currentSum int, isLastBidder, isTrumpWinner bool, trumpWinningBid int) error {
	if amount < 0 || amount > MaxContractBid {
		return Reject(ReasonOutOfRange, "contract bid must be between 0 and %d, got %d", MaxContractBid, amount)
	}
	if isTrumpWinner && amount < trumpWinningBid {
		return Reject(ReasonBelowTrumpMinimum, "trump winner must bid at least %d, got %d", trumpWinningBid, amount)
	}
	if isLastBidder && currentSum+amount == TricksPerRound {
		return Reject(ReasonSumEqualsThirteen, "last bidder cannot bring the total to %d (current sum %d)", TricksPerRound, currentSum)
	}
	return nil
}

// DetermineGameType classifies a round. A sum of exactly 13 is an internal
// consistency fault and returns ErrInvalidSumThirteen.
func DetermineGameType(contractBids [models.NumSeats]int) (models.GameType, error) {
	sum := 0
	for _, b := range contractBids {
		sum += b
	}
	switch {
	case sum > TricksPerRound:
		return models.GameTypeOver, nil
	case sum < TricksPerRound:
		return models.GameTypeUnder, nil
	default:
		return "", fmt.Errorf("determine game type for %v: %w", contractBids, ErrInvalidSumThirteen)
	}
}

// CalculateRoundScore scores one seat for a finished round.
func CalculateRoundScore(contractBid, tricksWon int, gameType models.GameType) int {
	if contractBid == 0 {
		if tricksWon == 0 {
			if gameType == models.GameTypeOver {
				return zeroMadeOver
			}
			return zeroMadeUnder
		}
		// -50 for the first extra trick, then 10 back per further trick.
		return zeroFailedByOne + 10*(tricksWon-1)
	}

	if tricksWon == contractBid {
		return contractBid*contractBid + 10
	}
	diff := tricksWon - contractBid
	if diff < 0 {
		diff = -diff
	}
	return -10 * diff
}
