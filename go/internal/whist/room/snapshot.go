package room

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/whist/round"
)

// SeatView is one seat as shown to clients.
type SeatView struct {
	Seat        models.Seat             `json:"seat"`
	UserID      string                  `json:"user_id"`
	DisplayName string                  `json:"display_name"`
	IsAdmin     bool                    `json:"is_admin"`
	Connection  models.ConnectionStatus `json:"connection"`
	GraceUntil  *time.Time              `json:"grace_until,omitempty"`
	TotalScore  int                     `json:"total_score"`
	Position    int                     `json:"position"`
}

// Snapshot is a consistent copy of the whole room for sync requests.
type Snapshot struct {
	Code         string                     `json:"code"`
	Status       models.RoomStatus          `json:"status"`
	GameID       *uuid.UUID                 `json:"game_id,omitempty"`
	Seats        [models.NumSeats]*SeatView `json:"seats"`
	Round        *round.Snapshot            `json:"round,omitempty"`
	RoundsPlayed int                        `json:"rounds_played"`
	Turn         uint64                     `json:"turn"`
	History      []models.RoundSummary      `json:"history"`
	CreatedAt    time.Time                  `json:"created_at"`
	StartedAt    *time.Time                 `json:"started_at,omitempty"`
}

// Snapshot copies the room state under the room lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Code:         s.code,
		Status:       s.status,
		RoundsPlayed: s.roundsPlayed,
		Turn:         s.turn,
		History:      append([]models.RoundSummary(nil), s.history...),
		CreatedAt:    s.createdAt,
	}
	if s.gameID != uuid.Nil {
		id := s.gameID
		snap.GameID = &id
		started := s.startedAt
		snap.StartedAt = &started
	}

	pos := positions(s.totals)
	for i, sl := range s.seats {
		if sl == nil {
			continue
		}
		view := &SeatView{
			Seat:        models.Seat(i),
			UserID:      sl.userID,
			DisplayName: sl.displayName,
			IsAdmin:     sl.isAdmin,
			Connection:  sl.status,
			TotalScore:  s.totals[i],
			Position:    pos[i],
		}
		if sl.status == models.ConnectionStatusDisconnected {
			until := sl.graceUntil
			view.GraceUntil = &until
		}
		snap.Seats[i] = view
	}

	if s.round != nil {
		r := s.round.Snapshot()
		snap.Round = &r
	}
	return snap
}
