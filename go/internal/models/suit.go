package models

import "fmt"

// Suit is a trump suit. NoTrump outranks every real suit.
type Suit string

const (
	SuitClubs    Suit = "clubs"
	SuitDiamonds Suit = "diamonds"
	SuitHearts   Suit = "hearts"
	SuitSpades   Suit = "spades"
	SuitNoTrump  Suit = "no_trump"
)

// Suits lists every suit in ascending rank.
var Suits = []Suit{SuitClubs, SuitDiamonds, SuitHearts, SuitSpades, SuitNoTrump}

// Rank orders suits for tie-breaks at equal bid amounts.
// Unknown suits rank below clubs.
func (s Suit) Rank() int {
	switch s {
	case SuitClubs:
		return 1
	case SuitDiamonds:
		return 2
	case SuitHearts:
		return 3
	case SuitSpades:
		return 4
	case SuitNoTrump:
		return 5
	default:
		return 0
	}
}

// Valid reports whether s is a known suit.
func (s Suit) Valid() bool {
	return s.Rank() > 0
}

// ParseSuit accepts the wire names.
func ParseSuit(v string) (Suit, error) {
	s := Suit(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown suit %q", v)
	}
	return s, nil
}
