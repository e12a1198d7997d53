package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mcdev12/whist/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	defaultLeaderboardSize = 20
	maxLeaderboardSize     = 100
)

// Reader is the query side of the repository.
type Reader interface {
	Get(ctx context.Context, userID string) (models.PlayerStats, error)
	Leaderboard(ctx context.Context, limit int) ([]models.PlayerStats, error)
}

// PlayerStatsResponse adds derived rates to the stored aggregate.
type PlayerStatsResponse struct {
	models.PlayerStats
	Losses          int     `json:"losses"`
	ContractRate    float64 `json:"contract_success_rate"`
	ZeroRate        float64 `json:"zero_success_rate"`
	AveragePerRound float64 `json:"average_points_per_round"`
}

func newPlayerStatsResponse(s models.PlayerStats) PlayerStatsResponse {
	return PlayerStatsResponse{
		PlayerStats:     s,
		Losses:          s.TotalGames - s.TotalWins,
		ContractRate:    percent(s.ContractsMade, s.ContractsAttempted),
		ZeroRate:        percent(s.ZerosMade, s.ZerosAttempted),
		AveragePerRound: ratio(s.TotalPoints, s.TotalRounds),
	}
}

func percent(n, d int) float64 { return ratio(n, d) * 100 }

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

type Handler struct {
	reader Reader
}

func NewHandler(reader Reader) *Handler {
	return &Handler{reader: reader}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/stats/players/{userID}", h.getPlayer).Methods(http.MethodGet)
	r.HandleFunc("/stats/leaderboard", h.leaderboard).Methods(http.MethodGet)
}

func (h *Handler) getPlayer(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	s, err := h.reader.Get(r.Context(), userID)
	if errors.Is(err, ErrStatsNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to load player stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, newPlayerStatsResponse(s))
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLeaderboardSize)
	}

	all, err := h.reader.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load leaderboard")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	out := make([]PlayerStatsResponse, len(all))
	for i, s := range all {
		out[i] = newPlayerStatsResponse(s)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
