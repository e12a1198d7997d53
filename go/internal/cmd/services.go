package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/whist/go/internal/config"
	"github.com/mcdev12/whist/go/internal/whist/gateway"
	"github.com/mcdev12/whist/go/internal/whist/orchestrator"
	"github.com/mcdev12/whist/go/internal/whist/outbox"
	"github.com/mcdev12/whist/go/internal/whist/room"
	"github.com/mcdev12/whist/go/internal/whist/roomcode"
)

type Services struct {
	Rooms        *room.Manager
	Gateway      *gateway.Service
	Orchestrator *orchestrator.Orchestrator
	Recorder     *outbox.Recorder // nil without persistence

	db *sql.DB
}

func setupServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	// Wire up the event path:
	// room.Manager -> Fanout -> gateway (clients), orchestrator (deadlines), outbox (persistence)
	clock := clockwork.NewRealClock()
	s := &Services{}

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.JWTSecret = cfg.JWTSecret
	gatewayCfg.ConnectionConfig.CheckOrigin = gateway.AllowOrigins(cfg.Gateway.AllowedOrigins)
	s.Gateway = gateway.NewService(gatewayCfg, clock)

	orchCfg := orchestrator.DefaultConfig()
	orchCfg.TurnTimeout = cfg.Timers.TurnTimeout
	orchCfg.RoundBreak = cfg.Timers.RoundBreak
	s.Orchestrator = orchestrator.New(orchCfg, clock)

	fanout := room.Fanout{s.Gateway.Emitter(), s.Orchestrator}

	if cfg.Persistence {
		database, err := setupDatabase(ctx)
		if err != nil {
			return nil, err
		}
		s.db = database

		repo := outbox.NewRepository(database)
		if err := repo.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to migrate outbox: %w", err)
		}
		s.Recorder = outbox.NewRecorder(outbox.NewApp(repo, cfg.InstanceID), 0)
		fanout = append(fanout, s.Recorder)
	} else {
		log.Warn().Msg("persistence disabled, round and game results are not recorded")
	}

	s.Rooms = room.NewManager(room.ManagerConfig{
		Session: room.Config{
			ReconnectGrace: cfg.Timers.ReconnectGrace,
			EndCondition:   endCondition(cfg),
		},
		IdleTTL: cfg.Timers.RoomIdleTTL,
	}, roomcode.NewGenerator(), fanout, clock)
	s.Gateway.Bind(s.Rooms)

	log.Info().
		Int("max_rounds", cfg.Game.MaxRounds).
		Int("target_score", cfg.Game.TargetScore).
		Dur("turn_timeout", cfg.Timers.TurnTimeout).
		Dur("reconnect_grace", cfg.Timers.ReconnectGrace).
		Bool("persistence", cfg.Persistence).
		Msg("services configured")
	return s, nil
}

func endCondition(cfg *config.Config) room.EndCondition {
	var conds []room.EndCondition
	if cfg.Game.MaxRounds > 0 {
		conds = append(conds, room.RoundLimit(cfg.Game.MaxRounds))
	}
	if cfg.Game.TargetScore > 0 {
		conds = append(conds, room.TargetScore(cfg.Game.TargetScore))
	}
	if len(conds) == 0 {
		return room.Never
	}
	return room.AnyOf(conds...)
}

func (s *Services) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}
}
