package gateway

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/room"
	"github.com/mcdev12/whist/go/internal/whist/rules"
)

// MessageType names a websocket message in either direction.
type MessageType string

// Client to server.
const (
	MsgJoin        MessageType = "room:join"
	MsgLeave       MessageType = "room:leave"
	MsgReseat      MessageType = "room:reseat"
	MsgStartGame   MessageType = "game:start"
	MsgEndGame     MessageType = "game:end"
	MsgNextRound   MessageType = "round:next"
	MsgSyncRequest MessageType = "sync:request"
	MsgTrumpBid    MessageType = "bid:trump"
	MsgPass        MessageType = "bid:pass"
	MsgContractBid MessageType = "bid:contract"
	MsgClaimTrick  MessageType = "round:claim_trick"
	MsgUndoTrick   MessageType = "round:undo_trick"
)

// Server to client, besides the room event kinds.
const (
	MsgJoined    MessageType = "room:joined"
	MsgSyncState MessageType = "sync:state"
	MsgError     MessageType = "error"
)

// Error codes that do not come from the game rules.
const (
	CodeInvalidMessage = "INVALID_MESSAGE"
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeInternal       = "INTERNAL_ERROR"
)

// Envelope is the wire frame for every websocket message.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

type JoinRequest struct {
	DisplayName string `json:"display_name,omitempty"`
}

type ReseatRequest struct {
	Order []string `json:"order"`
}

type TrumpBidRequest struct {
	Amount int         `json:"amount"`
	Suit   models.Suit `json:"suit"`
}

type ContractBidRequest struct {
	Amount int `json:"amount"`
}

type UndoTrickRequest struct {
	Seat models.Seat `json:"seat"`
}

type JoinedResponse struct {
	Seat        models.Seat   `json:"seat"`
	Reconnected bool          `json:"reconnected"`
	State       room.Snapshot `json:"state"`
}

// ErrorPayload is sent to the one connection whose command failed.
type ErrorPayload struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// errorPayload turns rule rejections into their reason code. Anything else
// is an internal fault and is reported generically.
func errorPayload(err error) ErrorPayload {
	if reason, ok := rules.ReasonOf(err); ok {
		return ErrorPayload{Code: string(reason), Message: err.Error(), Recoverable: true}
	}
	return ErrorPayload{Code: CodeInternal, Message: "internal server error", Recoverable: false}
}

func newEnvelope(t MessageType, data any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: t, Data: raw, Timestamp: at})
}
