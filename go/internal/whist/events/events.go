package events

// Kind names a state-change notification. Values double as wire event names.
type Kind string

const (
	KindPlayerJoined       Kind = "room:player_joined"
	KindPlayerLeft         Kind = "room:player_left"
	KindPlayerDisconnected Kind = "room:player_disconnected"
	KindPlayerReconnected  Kind = "room:player_reconnected"
	KindPlayerAbandoned    Kind = "room:player_abandoned"
	KindAdminChanged       Kind = "room:admin_changed"
	KindReseated           Kind = "room:reseated"

	KindGameStarted  Kind = "game:started"
	KindGameFinished Kind = "game:finished"

	KindTurnStarted    Kind = "bid:your_turn"
	KindBidPlaced      Kind = "bid:placed"
	KindBidPassed      Kind = "bid:passed"
	KindFrischStarted  Kind = "bid:frisch_started"
	KindTrumpSet       Kind = "bid:trump_set"
	KindContractPlaced Kind = "bid:contract_placed"
	KindContractsSet   Kind = "bid:contracts_set"

	KindRoundStarted  Kind = "round:started"
	KindTrickWon      Kind = "round:trick_won"
	KindTrickUndone   Kind = "round:trick_undone"
	KindRoundComplete Kind = "round:complete"
)

// Event is one notification produced by a state transition.
// Recipient, when set, restricts delivery to a single user id.
type Event struct {
	Kind      Kind
	Payload   any
	Recipient string
}

// New returns a broadcast event.
func New(kind Kind, payload any) Event {
	return Event{Kind: kind, Payload: payload}
}
