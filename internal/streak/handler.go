package streak

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type streakReader interface {
	GetStreak(ctx context.Context, userID int64) (*Record, error)
	Progress(ctx context.Context, userID int64, days int, today time.Time) (*ProgressReport, error)
}

type leaderboardReader interface {
	TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

type locator interface {
	Location(ctx context.Context, userID int64) *time.Location
}

type LeaderboardResponse struct {
	Limit   int                `json:"limit"`
	Entries []LeaderboardEntry `json:"entries"`
}

type Handler struct {
	ledger      streakReader
	leaderboard leaderboardReader
	locations   locator
	now         func() time.Time
}

type NewHandlerParams struct {
	Ledger      streakReader
	Leaderboard leaderboardReader
	Locations   locator
}

func NewHandler(params NewHandlerParams) *Handler {
	return &Handler{
		ledger:      params.Ledger,
		leaderboard: params.Leaderboard,
		locations:   params.Locations,
		now:         time.Now,
	}
}

func (handler *Handler) HandleGetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.streak.get")
	defer span.End()

	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "error, invalid user id", http.StatusBadRequest)
		return
	}

	rec, err := handler.ledger.GetStreak(ctx, userID)
	if err != nil {
		log.Errorf("failed to get streak of user %d: %s", userID, err)
		http.Error(w, "error, failed to get streak", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, rec, http.StatusOK)
}

func (handler *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.streak.leaderboard")
	defer span.End()

	limit := DefaultLeaderboardLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			http.Error(w, "error, invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(parsed, MaxLeaderboardLimit)
	}

	entries, err := handler.leaderboard.TopUsers(ctx, limit)
	if err != nil {
		log.Errorf("failed to get leaderboard: %s", err)
		http.Error(w, "error, failed to get leaderboard", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, LeaderboardResponse{
		Limit:   limit,
		Entries: entries,
	}, http.StatusOK)
}

func (handler *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.streak.progress")
	defer span.End()

	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "error, invalid user id", http.StatusBadRequest)
		return
	}

	days := DefaultProgressDays
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		days, err = strconv.Atoi(daysStr)
		if err != nil || days <= 0 || days > MaxProgressDays {
			http.Error(w, "error, invalid days", http.StatusBadRequest)
			return
		}
	}

	today := DateOf(handler.now(), handler.locations.Location(ctx, userID))
	report, err := handler.ledger.Progress(ctx, userID, days, today)
	if err != nil {
		log.Errorf("failed to get progress of user %d: %s", userID, err)
		http.Error(w, "error, failed to get progress", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, report, http.StatusOK)
}
