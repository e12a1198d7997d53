package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-set/v3"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/whist/go/internal/whist/events"
	"github.com/rs/zerolog/log"
)

// CommandHandler receives what clients send over their connection.
type CommandHandler interface {
	HandleCommand(c *Connection, env Envelope)
	HandleClose(c *Connection)
}

// ConnectionManager manages websocket connections grouped by room
type ConnectionManager struct {
	// Connection pools organized by room code
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock

	broadcastCh chan BroadcastMessage
}

// Connection represents a websocket connection to a client
type Connection struct {
	ID          string
	UserID      string
	DisplayName string
	RoomCode    string
	Conn        *websocket.Conn
	Send        chan []byte
	Manager     *ConnectionManager

	handler     CommandHandler
	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for websocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a batch of room events waiting to be fanned out
type BroadcastMessage struct {
	RoomCode string
	Events   []events.Event
}

// ConnectionStats is returned by the stats endpoint
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveRooms      int            `json:"active_rooms"`
	RoomConnections  map[string]int `json:"room_connections"`
}

// DefaultConnectionConfig returns default websocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// AllowOrigins returns an origin check accepting the listed origins. "*"
// accepts everything, as does a request without an Origin header.
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := set.From(origins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed.Contains("*") || allowed.Contains(origin)
	}
}

// NewConnectionManager creates a new websocket connection manager
func NewConnectionManager(config ConnectionConfig, clock clockwork.Clock) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		clock:       clock,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start processes broadcast messages until ctx is done
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// Emit implements room.Emitter. Rooms call it under their lock, so it only
// queues the batch.
func (cm *ConnectionManager) Emit(roomCode string, evs []events.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomCode: roomCode, Events: evs}:
	default:
		log.Warn().Str("room_code", roomCode).Int("events", len(evs)).Msg("broadcast channel full, dropping message")
	}
}

// UpgradeConnection upgrades an HTTP connection to websocket and attaches it to a room
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, id Identity, roomCode string, handler CommandHandler) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      id.UserID,
		DisplayName: id.DisplayName,
		RoomCode:    roomCode,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		handler:     handler,
		ConnectedAt: cm.clock.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", id.UserID).
		Str("room_code", roomCode).
		Msg("websocket connection established")

	return connection, nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.roomConnections[conn.RoomCode] == nil {
		cm.roomConnections[conn.RoomCode] = make(map[*Connection]bool)
	}
	cm.roomConnections[conn.RoomCode][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_code", conn.RoomCode).
		Int("total_connections", len(cm.roomConnections[conn.RoomCode])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and reports whether it was still registered
func (cm *ConnectionManager) unregisterConnection(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, ok := cm.roomConnections[conn.RoomCode]
	if !ok || !connections[conn] {
		return false
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.roomConnections, conn.RoomCode)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("user_id", conn.UserID).
		Str("room_code", conn.RoomCode).
		Msg("connection unregistered")
	return true
}

// UserConnected reports whether userID still has a connection to the room
func (cm *ConnectionManager) UserConnected(roomCode, userID string) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for conn := range cm.roomConnections[roomCode] {
		if conn.UserID == userID {
			return true
		}
	}
	return false
}

// handleBroadcast serializes each event once and queues it on every target connection
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	now := cm.clock.Now()
	var slow []*Connection

	for _, ev := range message.Events {
		data, err := newEnvelope(MessageType(ev.Kind), ev.Payload, now)
		if err != nil {
			log.Error().Err(err).Str("event_type", string(ev.Kind)).Msg("failed to marshal event for broadcast")
			continue
		}

		cm.mu.RLock()
		sent := 0
		for conn := range cm.roomConnections[message.RoomCode] {
			if ev.Recipient != "" && conn.UserID != ev.Recipient {
				continue
			}
			select {
			case conn.Send <- data:
				sent++
			default:
				slow = append(slow, conn)
			}
		}
		cm.mu.RUnlock()

		log.Debug().
			Str("event_type", string(ev.Kind)).
			Str("room_code", message.RoomCode).
			Int("connections", sent).
			Msg("event broadcasted")
	}

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("user_id", conn.UserID).
			Msg("connection send buffer full, closing connection")
		conn.Conn.Close()
	}
}

// deliver queues a frame on one connection if it is still registered
func (cm *ConnectionManager) deliver(conn *Connection, data []byte) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.roomConnections[conn.RoomCode][conn] {
		return false
	}
	select {
	case conn.Send <- data:
		return true
	default:
		return false
	}
}

// Stats returns statistics about active connections
func (cm *ConnectionManager) Stats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveRooms:     len(cm.roomConnections),
		RoomConnections: make(map[string]int, len(cm.roomConnections)),
	}
	for code, connections := range cm.roomConnections {
		stats.TotalConnections += len(connections)
		stats.RoomConnections[code] = len(connections)
	}
	return stats
}

// SendMessage queues a message for this connection only
func (c *Connection) SendMessage(t MessageType, data any) {
	frame, err := newEnvelope(t, data, c.Manager.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Str("type", string(t)).Msg("failed to marshal message")
		return
	}
	if !c.Manager.deliver(c, frame) {
		log.Warn().Str("connection_id", c.ID).Str("type", string(t)).Msg("dropping message for closed or slow connection")
	}
}

// SendError reports a failed command to this connection
func (c *Connection) SendError(err error) {
	c.SendMessage(MsgError, errorPayload(err))
}

func (c *Connection) sendErrorCode(code, message string) {
	c.SendMessage(MsgError, ErrorPayload{Code: code, Message: message, Recoverable: true})
}

// writePump handles sending messages to the websocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to websocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client commands until the connection drops
func (c *Connection) readPump() {
	defer func() {
		c.Conn.Close()
		if c.Manager.unregisterConnection(c) && c.handler != nil {
			c.handler.HandleClose(c)
		}
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected websocket close error")
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil || env.Type == "" {
			c.sendErrorCode(CodeInvalidMessage, "messages must be JSON objects with a type")
			continue
		}
		if c.handler != nil {
			c.handler.HandleCommand(c, env)
		}
	}
}
