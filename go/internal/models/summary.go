package models

import (
	"time"

	"github.com/google/uuid"
)

// SeatResult is one seat's outcome for a finished round.
type SeatResult struct {
	Seat        Seat   `json:"seat"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	ContractBid int    `json:"contract_bid"`
	TricksWon   int    `json:"tricks_won"`
	Score       int    `json:"score"`
	TotalScore  int    `json:"total_score"`
	Position    int    `json:"position"`
}

// RoundSummary is handed to the persistence collaborator when a round completes.
type RoundSummary struct {
	GameID      uuid.UUID    `json:"game_id"`
	RoomCode    string       `json:"room_code"`
	RoundNumber int          `json:"round_number"`
	TrumpSuit   Suit         `json:"trump_suit"`
	TrumpWinner Seat         `json:"trump_winner"`
	TrumpBid    int          `json:"trump_bid"`
	FrischCount int          `json:"frisch_count"`
	GameType    GameType     `json:"game_type"`
	Seats       []SeatResult `json:"seats"`
	CompletedAt time.Time    `json:"completed_at"`
}

// SeatStanding is one seat's final standing in a game.
type SeatStanding struct {
	Seat        Seat   `json:"seat"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	TotalScore  int    `json:"total_score"`
	Position    int    `json:"position"`
}

// GameSummary is handed to the persistence collaborator when a game finishes.
type GameSummary struct {
	GameID     uuid.UUID      `json:"game_id"`
	RoomCode   string         `json:"room_code"`
	Rounds     int            `json:"rounds"`
	Standings  []SeatStanding `json:"standings"`
	Winners    []string       `json:"winners"` // user ids sharing position 1
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// PlayerStats is the long-lived per-user aggregate built from completion events.
type PlayerStats struct {
	UserID             string    `json:"user_id"`
	TotalGames         int       `json:"total_games"`
	TotalWins          int       `json:"total_wins"`
	TotalRounds        int       `json:"total_rounds"`
	TotalPoints        int       `json:"total_points"`
	ContractsAttempted int       `json:"contracts_attempted"`
	ContractsMade      int       `json:"contracts_made"`
	ZerosAttempted     int       `json:"zeros_attempted"`
	ZerosMade          int       `json:"zeros_made"`
	TrumpWins          int       `json:"trump_wins"`
	HighestRoundScore  int       `json:"highest_round_score"`
	CurrentStreak      int       `json:"current_streak"`
	BestStreak         int       `json:"best_streak"`
	UpdatedAt          time.Time `json:"updated_at"`
}
