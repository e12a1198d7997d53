package gateway

import (
	"context"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/whist/go/internal/whist/room"
	"github.com/rs/zerolog/log"
)

// Service is the websocket gateway: it owns client connections and turns
// room events into wire messages.
type Service struct {
	connectionManager *ConnectionManager
	handler           *Handler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	JWTSecret        string
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates the gateway. Its Emitter must be registered with the
// room manager for clients to receive events.
func NewService(config Config, clock clockwork.Clock) *Service {
	return &Service{
		connectionManager: NewConnectionManager(config.ConnectionConfig, clock),
		handler:           &Handler{auth: NewAuthenticator(config.JWTSecret)},
	}
}

// Emitter returns the room.Emitter that feeds connected clients.
func (s *Service) Emitter() room.Emitter { return s.connectionManager }

// Bind attaches the room registry. It must be called before serving.
func (s *Service) Bind(rooms *room.Manager) {
	s.handler.rooms = rooms
	s.handler.connections = s.connectionManager
}

// Start runs the broadcast loop until ctx is done
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting whist gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("whist gateway service stopped")
}

// RegisterRoutes registers the HTTP and websocket routes
func (s *Service) RegisterRoutes(r *mux.Router) {
	s.handler.RegisterRoutes(r)
	log.Info().Msg("whist gateway routes registered")
}

// Stats returns statistics about the gateway service
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
