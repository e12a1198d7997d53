package rules

import (
	"testing"

	"github.com/mcdev12/whist/go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateTrumpBid(t *testing.T) {
	hearts6 := &models.TrumpBid{Seat: 1, Amount: 6, Suit: models.SuitHearts}

	tests := []struct {
		name    string
		amount  int
		suit    models.Suit
		highest *models.TrumpBid
		minimum int
		want    Reason
	}{
		{"opening bid", 5, models.SuitClubs, nil, 5, ""},
		{"below minimum", 4, models.SuitSpades, nil, 5, ReasonBelowMinimum},
		{"below raised minimum", 6, models.SuitNoTrump, nil, 7, ReasonBelowMinimum},
		{"above maximum", 14, models.SuitClubs, nil, 5, ReasonAboveMaximum},
		{"unknown suit", 6, models.Suit("stars"), nil, 5, ReasonInvalidSuit},
		{"equal amount lower suit", 6, models.SuitClubs, hearts6, 5, ReasonMustOutbid},
		{"equal amount same suit", 6, models.SuitHearts, hearts6, 5, ReasonMustOutbid},
		{"equal amount higher suit", 6, models.SuitSpades, hearts6, 5, ""},
		{"no trump outranks spades", 6, models.SuitNoTrump, hearts6, 5, ""},
		{"higher amount lowest suit", 7, models.SuitClubs, hearts6, 5, ""},
		{"lower amount", 5, models.SuitNoTrump, hearts6, 5, ReasonMustOutbid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTrumpBid(tt.amount, tt.suit, tt.highest, tt.minimum)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsReason(err, tt.want), "want %s, got %v", tt.want, err)
		})
	}
}

func TestSuitRankIsStrict(t *testing.T) {
	for i := 1; i < len(models.Suits); i++ {
		assert.Greater(t, models.Suits[i].Rank(), models.Suits[i-1].Rank())
	}
}
