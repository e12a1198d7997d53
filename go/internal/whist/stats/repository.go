package stats

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/mcdev12/whist/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
)

//go:embed schema/stats.sql
var schema string

var ErrStatsNotFound = errors.New("player stats not found")

const statsColumns = `user_id, total_games, total_wins, total_rounds, total_points,
	contracts_attempted, contracts_made, zeros_attempted, zeros_made, trump_wins,
	highest_round_score, current_streak, best_streak, updated_at`

const upsertStats = `
INSERT INTO player_stats (` + statsColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (user_id) DO UPDATE SET
	total_games = EXCLUDED.total_games,
	total_wins = EXCLUDED.total_wins,
	total_rounds = EXCLUDED.total_rounds,
	total_points = EXCLUDED.total_points,
	contracts_attempted = EXCLUDED.contracts_attempted,
	contracts_made = EXCLUDED.contracts_made,
	zeros_attempted = EXCLUDED.zeros_attempted,
	zeros_made = EXCLUDED.zeros_made,
	trump_wins = EXCLUDED.trump_wins,
	highest_round_score = EXCLUDED.highest_round_score,
	current_streak = EXCLUDED.current_streak,
	best_streak = EXCLUDED.best_streak,
	updated_at = EXCLUDED.updated_at`

const insertRoundResult = `
INSERT INTO round_results (game_id, round_number, seat, user_id, contract_bid, tricks_won,
	score, total_score, trump_suit, game_type, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT DO NOTHING`

const insertGameResult = `
INSERT INTO game_results (game_id, room_code, rounds, winners, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT DO NOTHING`

// Repository persists the aggregates in Postgres through pgx.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply stats schema: %w", err)
	}
	return nil
}

// RecordRound folds a round into player_stats and stores the per-seat rows.
// An event id seen before is skipped.
func (r *Repository) RecordRound(ctx context.Context, eventID uuid.UUID, summary models.RoundSummary) error {
	return r.record(ctx, eventID, userIDsOfRound(summary), func(all map[string]*models.PlayerStats) *pgx.Batch {
		FoldRound(all, summary)

		b := &pgx.Batch{}
		for _, s := range summary.Seats {
			if s.UserID == "" {
				continue
			}
			b.Queue(insertRoundResult,
				summary.GameID, summary.RoundNumber, int16(s.Seat), s.UserID, s.ContractBid, s.TricksWon,
				s.Score, s.TotalScore, string(summary.TrumpSuit), string(summary.GameType), summary.CompletedAt,
			)
		}
		return b
	})
}

// RecordGame counts a finished game for every seated player.
func (r *Repository) RecordGame(ctx context.Context, eventID uuid.UUID, summary models.GameSummary) error {
	return r.record(ctx, eventID, userIDsOfGame(summary), func(all map[string]*models.PlayerStats) *pgx.Batch {
		FoldGame(all, summary)

		b := &pgx.Batch{}
		b.Queue(insertGameResult,
			summary.GameID, summary.RoomCode, summary.Rounds, summary.Winners, summary.StartedAt, summary.FinishedAt,
		)
		return b
	})
}

func (r *Repository) record(
	ctx context.Context,
	eventID uuid.UUID,
	userIDs []string,
	fold func(all map[string]*models.PlayerStats) *pgx.Batch,
) error {
	return sqlutil.RunPgx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO processed_events (event_id) VALUES ($1) ON CONFLICT DO NOTHING`, eventID)
		if err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		if tag.RowsAffected() == 0 {
			log.Debug().Str("event_id", eventID.String()).Msg("event already applied")
			return nil
		}

		all, err := lockStats(ctx, tx, userIDs)
		if err != nil {
			return err
		}

		b := fold(all)
		for _, s := range all {
			b.Queue(upsertStats,
				s.UserID, s.TotalGames, s.TotalWins, s.TotalRounds, s.TotalPoints,
				s.ContractsAttempted, s.ContractsMade, s.ZerosAttempted, s.ZerosMade, s.TrumpWins,
				s.HighestRoundScore, s.CurrentStreak, s.BestStreak, s.UpdatedAt,
			)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return fmt.Errorf("failed to write stats: %w", err)
		}
		return nil
	})
}

// Get returns a player's aggregate.
func (r *Repository) Get(ctx context.Context, userID string) (models.PlayerStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+statsColumns+` FROM player_stats WHERE user_id = $1`, userID)
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("failed to query player stats: %w", err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanStats)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PlayerStats{}, ErrStatsNotFound
	}
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("failed to scan player stats: %w", err)
	}
	return s, nil
}

// Leaderboard returns the top players by total points.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]models.PlayerStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+statsColumns+` FROM player_stats ORDER BY total_points DESC, user_id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanStats)
	if err != nil {
		return nil, fmt.Errorf("failed to scan leaderboard: %w", err)
	}
	return out, nil
}

func lockStats(ctx context.Context, tx pgx.Tx, userIDs []string) (map[string]*models.PlayerStats, error) {
	rows, err := tx.Query(ctx,
		`SELECT `+statsColumns+` FROM player_stats WHERE user_id = ANY($1) FOR UPDATE`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock player stats: %w", err)
	}
	existing, err := pgx.CollectRows(rows, scanStats)
	if err != nil {
		return nil, fmt.Errorf("failed to scan player stats: %w", err)
	}

	all := make(map[string]*models.PlayerStats, len(userIDs))
	for i := range existing {
		all[existing[i].UserID] = &existing[i]
	}
	return all, nil
}

func scanStats(row pgx.CollectableRow) (models.PlayerStats, error) {
	var s models.PlayerStats
	err := row.Scan(
		&s.UserID, &s.TotalGames, &s.TotalWins, &s.TotalRounds, &s.TotalPoints,
		&s.ContractsAttempted, &s.ContractsMade, &s.ZerosAttempted, &s.ZerosMade, &s.TrumpWins,
		&s.HighestRoundScore, &s.CurrentStreak, &s.BestStreak, &s.UpdatedAt,
	)
	return s, err
}

func userIDsOfRound(summary models.RoundSummary) []string {
	ids := make([]string, 0, len(summary.Seats))
	for _, s := range summary.Seats {
		if s.UserID != "" {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}

func userIDsOfGame(summary models.GameSummary) []string {
	ids := make([]string, 0, len(summary.Standings))
	for _, s := range summary.Standings {
		if s.UserID != "" {
			ids = append(ids, s.UserID)
		}
	}
	return ids
}
