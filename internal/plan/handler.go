package plan

import (
	"context"
	"net/http"
	"strconv"

	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type refresher interface {
	Refresh(ctx context.Context, userID int64) error
}

type RefreshResponse struct {
	UserID    int64 `json:"userId"`
	Refreshed bool  `json:"refreshed"`
}

type Handler struct {
	watcher refresher
}

func NewHandler(watcher refresher) *Handler {
	return &Handler{
		watcher: watcher,
	}
}

// HandlePlanSaved lets the plan editor trigger a reinstall over HTTP
// instead of publishing to redis.
func (handler *Handler) HandlePlanSaved(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.plan.saved")
	defer span.End()

	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "error, invalid user id", http.StatusBadRequest)
		return
	}

	if err := handler.watcher.Refresh(ctx, userID); err != nil {
		log.Errorf("failed to refresh plan of user %d: %s", userID, err)
		http.Error(w, "error, failed to refresh plan", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, RefreshResponse{UserID: userID, Refreshed: true}, http.StatusOK)
}
