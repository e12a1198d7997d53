package models

import "fmt"

// NumSeats is the fixed table size.
const NumSeats = 4

// Seat is a table position, 0..3 clockwise.
type Seat int

// Valid reports whether s is one of the four table positions.
func (s Seat) Valid() bool {
	return s >= 0 && s < NumSeats
}

// Next returns the seat to the left (clockwise).
func (s Seat) Next() Seat {
	return (s + 1) % NumSeats
}

func (s Seat) String() string {
	return fmt.Sprintf("seat-%d", int(s))
}

// DealerSeat returns the seat that opens trump bidding for a 1-based round number.
func DealerSeat(roundNumber int) Seat {
	if roundNumber < 1 {
		return 0
	}
	return Seat((roundNumber - 1) % NumSeats)
}
