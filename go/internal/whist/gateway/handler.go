package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mcdev12/whist/go/internal/whist/room"
	"github.com/mcdev12/whist/go/internal/whist/rules"
	"github.com/rs/zerolog/log"
)

// Handler serves the room HTTP endpoints and dispatches websocket commands
// to the room registry.
type Handler struct {
	rooms       *room.Manager
	connections *ConnectionManager
	auth        *Authenticator
}

func NewHandler(rooms *room.Manager, connections *ConnectionManager, auth *Authenticator) *Handler {
	return &Handler{rooms: rooms, connections: connections, auth: auth}
}

// RegisterRoutes mounts the gateway on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/rooms", h.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}", h.handleGetRoom).Methods(http.MethodGet)
	r.HandleFunc("/ws/rooms/{code}", h.handleConnect).Methods(http.MethodGet)
	r.HandleFunc("/ws/stats", h.handleStats).Methods(http.MethodGet)
}

type createRoomRequest struct {
	DisplayName string `json:"display_name,omitempty"`
}

type createRoomResponse struct {
	Code string `json:"code"`
	Seat int    `json:"seat"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rooms": h.rooms.Count()})
}

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, ErrorPayload{Code: "UNAUTHENTICATED", Message: err.Error()})
		return
	}

	var req createRoomRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, ErrorPayload{Code: CodeInvalidMessage, Message: "invalid request body"})
			return
		}
	}
	name := id.DisplayName
	if req.DisplayName != "" {
		name = req.DisplayName
	}

	sess, err := h.rooms.Create(r.Context(), id.UserID, name)
	if err != nil {
		h.writeRoomError(w, err)
		return
	}
	seat, _ := sess.SeatOf(id.UserID)
	writeJSON(w, http.StatusCreated, createRoomResponse{Code: sess.Code(), Seat: int(seat)})
}

func (h *Handler) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.Authenticate(r); err != nil {
		writeError(w, http.StatusUnauthorized, ErrorPayload{Code: "UNAUTHENTICATED", Message: err.Error()})
		return
	}
	sess, err := h.rooms.Get(mux.Vars(r)["code"])
	if err != nil {
		h.writeRoomError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.Authenticate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	sess, err := h.rooms.Get(mux.Vars(r)["code"])
	if err != nil {
		h.writeRoomError(w, err)
		return
	}

	// Upgrade writes its own HTTP error response on failure.
	if _, err := h.connections.UpgradeConnection(w, r, id, sess.Code(), h); err != nil {
		log.Error().
			Err(err).
			Str("room_code", sess.Code()).
			Str("user_id", id.UserID).
			Msg("failed to upgrade websocket connection")
	}
}

func (h *Handler) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.connections.Stats())
}

// HandleCommand implements CommandHandler.
func (h *Handler) HandleCommand(c *Connection, env Envelope) {
	if err := h.dispatch(c, env); err != nil {
		if _, ok := rules.ReasonOf(err); !ok {
			log.Error().
				Err(err).
				Str("room_code", c.RoomCode).
				Str("user_id", c.UserID).
				Str("type", string(env.Type)).
				Msg("command failed")
		}
		c.SendError(err)
	}
}

// HandleClose implements CommandHandler. The seat is only released once the
// user's last connection to the room is gone.
func (h *Handler) HandleClose(c *Connection) {
	if h.connections.UserConnected(c.RoomCode, c.UserID) {
		return
	}
	err := h.rooms.Disconnect(c.RoomCode, c.UserID)
	if err == nil {
		return
	}
	if reason, ok := rules.ReasonOf(err); ok && (reason == rules.ReasonPlayerNotInRoom || reason == rules.ReasonRoomNotFound) {
		return
	}
	log.Error().Err(err).Str("room_code", c.RoomCode).Str("user_id", c.UserID).Msg("failed to record disconnect")
}

var errBadPayload = errors.New("invalid payload")

func decode(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return errBadPayload
	}
	return nil
}

func (h *Handler) dispatch(c *Connection, env Envelope) error {
	if env.Type == MsgJoin {
		return h.join(c, env)
	}

	sess, err := h.rooms.Get(c.RoomCode)
	if err != nil {
		return err
	}

	switch env.Type {
	case MsgLeave:
		return h.rooms.Leave(c.RoomCode, c.UserID)

	case MsgReseat:
		var req ReseatRequest
		if err := decode(env, &req); err != nil {
			return h.badPayload(c, env)
		}
		return sess.Reseat(c.UserID, req.Order)

	case MsgStartGame:
		return sess.StartGame(c.UserID)

	case MsgEndGame:
		return sess.EndGame(c.UserID)

	case MsgNextRound:
		return sess.NextRound(c.UserID)

	case MsgSyncRequest:
		c.SendMessage(MsgSyncState, sess.Snapshot())
		return nil

	case MsgTrumpBid:
		var req TrumpBidRequest
		if err := decode(env, &req); err != nil {
			return h.badPayload(c, env)
		}
		return sess.PlaceTrumpBid(c.UserID, req.Amount, req.Suit)

	case MsgPass:
		return sess.PassTrump(c.UserID)

	case MsgContractBid:
		var req ContractBidRequest
		if err := decode(env, &req); err != nil {
			return h.badPayload(c, env)
		}
		return sess.PlaceContractBid(c.UserID, req.Amount)

	case MsgClaimTrick:
		return sess.ClaimTrick(c.UserID)

	case MsgUndoTrick:
		var req UndoTrickRequest
		if err := decode(env, &req); err != nil {
			return h.badPayload(c, env)
		}
		return sess.UndoTrick(c.UserID, req.Seat)

	default:
		c.sendErrorCode(CodeUnknownCommand, "unknown message type "+string(env.Type))
		return nil
	}
}

func (h *Handler) join(c *Connection, env Envelope) error {
	var req JoinRequest
	if err := decode(env, &req); err != nil {
		return h.badPayload(c, env)
	}
	name := c.DisplayName
	if req.DisplayName != "" {
		name = req.DisplayName
	}
	sess, res, err := h.rooms.Join(c.RoomCode, c.UserID, name)
	if err != nil {
		return err
	}
	c.SendMessage(MsgJoined, JoinedResponse{
		Seat:        res.Seat,
		Reconnected: res.Reconnected,
		State:       sess.Snapshot(),
	})
	return nil
}

func (h *Handler) badPayload(c *Connection, env Envelope) error {
	c.sendErrorCode(CodeInvalidMessage, "invalid payload for "+string(env.Type))
	return nil
}

func (h *Handler) writeRoomError(w http.ResponseWriter, err error) {
	reason, ok := rules.ReasonOf(err)
	if !ok {
		log.Error().Err(err).Msg("room request failed")
		writeError(w, http.StatusInternalServerError, errorPayload(err))
		return
	}
	status := http.StatusConflict
	switch reason {
	case rules.ReasonRoomNotFound:
		status = http.StatusNotFound
	case rules.ReasonPlayerNotInRoom, rules.ReasonNotRoomAdmin:
		status = http.StatusForbidden
	}
	writeError(w, status, errorPayload(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, payload ErrorPayload) {
	writeJSON(w, status, payload)
}
