package rules

import (
	"errors"
	"fmt"
)

// Reason is a stable machine-readable code for a rejected action.
type Reason string

const (
	ReasonNotYourTurn       Reason = "NOT_YOUR_TURN"
	ReasonBelowMinimum      Reason = "BELOW_MINIMUM"
	ReasonAboveMaximum      Reason = "ABOVE_MAXIMUM"
	ReasonMustOutbid        Reason = "MUST_OUTBID"
	ReasonBelowTrumpMinimum Reason = "BELOW_TRUMP_MINIMUM"
	ReasonSumEqualsThirteen Reason = "SUM_EQUALS_THIRTEEN"
	ReasonOutOfRange        Reason = "OUT_OF_RANGE"
	ReasonInvalidSuit       Reason = "INVALID_SUIT"
	ReasonInvalidPhase      Reason = "INVALID_PHASE"
	ReasonMaxFrischReached  Reason = "MAX_FRISCH_REACHED"
	ReasonRoundComplete     Reason = "ROUND_COMPLETE"
	ReasonNoTricksToUndo    Reason = "NO_TRICKS_TO_UNDO"
	ReasonRoundAlreadyDone  Reason = "ROUND_ALREADY_COMPLETE"
	ReasonRoomFull          Reason = "ROOM_FULL"
	ReasonRoomNotFound      Reason = "ROOM_NOT_FOUND"
	ReasonPlayerNotInRoom   Reason = "PLAYER_NOT_IN_ROOM"
	ReasonNotRoomAdmin      Reason = "NOT_ROOM_ADMIN"
	ReasonAlreadyStarted    Reason = "GAME_ALREADY_STARTED"
	ReasonNotEnoughPlayers  Reason = "NOT_ENOUGH_PLAYERS"
	ReasonInvalidReseat     Reason = "INVALID_RESEAT"
	ReasonAlreadySeated     Reason = "ALREADY_SEATED"
)

// ErrInvalidSumThirteen marks contract bids summing to 13 reaching game type
// resolution. The last-bidder rule makes this unreachable in correct play.
var ErrInvalidSumThirteen = errors.New("INVALID_SUM_THIRTEEN: contract bids sum to 13")

// Rejection is an expected refusal of a player action. It never indicates a fault.
type Rejection struct {
	Reason  Reason
	Message string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Message)
}

// Reject builds a Rejection with a formatted message.
func Reject(reason Reason, format string, args ...any) error {
	return &Rejection{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf returns the rejection reason carried by err, if any.
func ReasonOf(err error) (Reason, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// IsReason reports whether err is a rejection with the given reason.
func IsReason(err error, reason Reason) bool {
	got, ok := ReasonOf(err)
	return ok && got == reason
}
