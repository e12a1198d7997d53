package models

// RoundPhase is the phase of a single round.
type RoundPhase string

const (
	RoundPhaseTrumpBidding    RoundPhase = "trump_bidding"
	RoundPhaseContractBidding RoundPhase = "contract_bidding"
	RoundPhasePlaying         RoundPhase = "playing"
	RoundPhaseComplete        RoundPhase = "complete"
)

// RoomStatus is the overall game status of a room.
type RoomStatus string

const (
	RoomStatusWaiting         RoomStatus = "waiting"
	RoomStatusBiddingTrump    RoomStatus = "bidding_trump"
	RoomStatusFrisch          RoomStatus = "frisch"
	RoomStatusBiddingContract RoomStatus = "bidding_contract"
	RoomStatusPlaying         RoomStatus = "playing"
	RoomStatusRoundComplete   RoomStatus = "round_complete"
	RoomStatusFinished        RoomStatus = "finished"
)

// InGame reports whether a game has started and not finished.
func (s RoomStatus) InGame() bool {
	switch s {
	case RoomStatusBiddingTrump, RoomStatusFrisch, RoomStatusBiddingContract,
		RoomStatusPlaying, RoomStatusRoundComplete:
		return true
	default:
		return false
	}
}

// GameType classifies a round by the sum of contract bids.
type GameType string

const (
	GameTypeOver  GameType = "over"
	GameTypeUnder GameType = "under"
)

// ConnectionStatus tracks a seated player's transport state.
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
	ConnectionStatusAbandoned    ConnectionStatus = "abandoned"
)
