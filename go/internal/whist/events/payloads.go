package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/whist/go/internal/models"
)

// Event payload types shared between the room core, the gateway and the outbox

// PlayerInfo describes an occupied seat.
type PlayerInfo struct {
	UserID      string                  `json:"user_id"`
	DisplayName string                  `json:"display_name"`
	Seat        models.Seat             `json:"seat"`
	IsAdmin     bool                    `json:"is_admin"`
	Connection  models.ConnectionStatus `json:"connection"`
}

type PlayerJoinedPayload struct {
	Player PlayerInfo `json:"player"`
}

type PlayerLeftPayload struct {
	UserID string      `json:"user_id"`
	Seat   models.Seat `json:"seat"`
}

type PlayerDisconnectedPayload struct {
	UserID     string      `json:"user_id"`
	Seat       models.Seat `json:"seat"`
	GraceUntil time.Time   `json:"grace_until"`
}

type PlayerReconnectedPayload struct {
	UserID string      `json:"user_id"`
	Seat   models.Seat `json:"seat"`
}

type PlayerAbandonedPayload struct {
	UserID string      `json:"user_id"`
	Seat   models.Seat `json:"seat"`
}

type AdminChangedPayload struct {
	UserID string      `json:"user_id"`
	Seat   models.Seat `json:"seat"`
}

type ReseatedPayload struct {
	Players []PlayerInfo `json:"players"`
}

type GameStartedPayload struct {
	GameID  uuid.UUID    `json:"game_id"`
	Players []PlayerInfo `json:"players"`
}

type GameFinishedPayload struct {
	Summary models.GameSummary `json:"summary"`
}

// TurnStartedPayload announces whose action the room is waiting for.
// Turn increases on every announcement so a stale deadline can be detected.
type TurnStartedPayload struct {
	Turn       uint64            `json:"turn"`
	Seat       models.Seat       `json:"seat"`
	UserID     string            `json:"user_id,omitempty"`
	Phase      models.RoundPhase `json:"phase"`
	MinimumBid int               `json:"minimum_bid"`
}

type BidPlacedPayload struct {
	Seat       models.Seat `json:"seat"`
	Amount     int         `json:"amount"`
	Suit       models.Suit `json:"suit"`
	NextSeat   models.Seat `json:"next_seat"`
	MinimumBid int         `json:"minimum_bid"`
	Forced     bool        `json:"forced,omitempty"`
}

type BidPassedPayload struct {
	Seat              models.Seat `json:"seat"`
	ConsecutivePasses int         `json:"consecutive_passes"`
	NextSeat          models.Seat `json:"next_seat"`
	Forced            bool        `json:"forced,omitempty"`
}

type FrischStartedPayload struct {
	FrischCount int         `json:"frisch_count"`
	MinimumBid  int         `json:"minimum_bid"`
	StartSeat   models.Seat `json:"start_seat"`
}

type TrumpSetPayload struct {
	WinnerSeat models.Seat `json:"winner_seat"`
	Amount     int         `json:"amount"`
	Suit       models.Suit `json:"suit"`
}

type ContractPlacedPayload struct {
	Seat     models.Seat  `json:"seat"`
	Amount   int          `json:"amount"`
	Sum      int          `json:"sum"`
	NextSeat *models.Seat `json:"next_seat,omitempty"`
	Forced   bool         `json:"forced,omitempty"`
}

type ContractsSetPayload struct {
	Contracts []models.ContractBid `json:"contracts"`
	Sum       int                  `json:"sum"`
	GameType  models.GameType      `json:"game_type"`
}

type RoundStartedPayload struct {
	RoundNumber int         `json:"round_number"`
	DealerSeat  models.Seat `json:"dealer_seat"`
	MinimumBid  int         `json:"minimum_bid"`
}

type TrickWonPayload struct {
	Seat        models.Seat `json:"seat"`
	TricksWon   int         `json:"tricks_won"`
	Contract    int         `json:"contract"`
	TotalTricks int         `json:"total_tricks"`
	Remaining   int         `json:"remaining"`
}

type TrickUndonePayload struct {
	Seat        models.Seat `json:"seat"`
	TricksWon   int         `json:"tricks_won"`
	TotalTricks int         `json:"total_tricks"`
	UndoneBy    string      `json:"undone_by,omitempty"`
}

// SeatScore is a seat's outcome before identities are attached.
type SeatScore struct {
	Seat      models.Seat `json:"seat"`
	Contract  int         `json:"contract"`
	TricksWon int         `json:"tricks_won"`
	Score     int         `json:"score"`
}

// RoundResultPayload is produced by the round itself when the 13th trick lands.
type RoundResultPayload struct {
	RoundNumber int             `json:"round_number"`
	TrumpSuit   models.Suit     `json:"trump_suit"`
	TrumpWinner models.Seat     `json:"trump_winner"`
	TrumpBid    int             `json:"trump_bid"`
	FrischCount int             `json:"frisch_count"`
	GameType    models.GameType `json:"game_type"`
	Seats       []SeatScore     `json:"seats"`
}

// RoundCompletePayload is the room-level round completion with identities and totals.
type RoundCompletePayload struct {
	Summary models.RoundSummary `json:"summary"`
}
