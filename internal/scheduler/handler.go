package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/trainplan/internal/session"
	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type schedulerService interface {
	StartNow(ctx context.Context, userID int64, dayOfWeek *int) (*session.Session, error)
	Jobs(userID int64) []Job
}

type StartRequest struct {
	UserID    int64 `json:"userId"`
	DayOfWeek *int  `json:"dayOfWeek,omitempty"`
}

type JobsResponse struct {
	UserID int64 `json:"userId"`
	Jobs   []Job `json:"jobs"`
}

type Handler struct {
	scheduler schedulerService
}

func NewHandler(scheduler schedulerService) *Handler {
	return &Handler{
		scheduler: scheduler,
	}
}

func (handler *Handler) HandleStartNow(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.scheduler.start-now")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("start now, unmarshal json params: %s", err)
		http.Error(w, "error, invalid start request", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		http.Error(w, "error, user id missing", http.StatusBadRequest)
		return
	}
	if req.DayOfWeek != nil && (*req.DayOfWeek < 0 || *req.DayOfWeek > 6) {
		http.Error(w, "error, day of week must be 0-6", http.StatusBadRequest)
		return
	}

	sess, err := handler.scheduler.StartNow(ctx, req.UserID, req.DayOfWeek)
	if errors.Is(err, ErrNothingScheduled) {
		http.Error(w, "no workout planned for that day", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to start session for user %d: %s", req.UserID, err)
		http.Error(w, "error, failed to start session", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, sess.Info(), http.StatusCreated)
}

func (handler *Handler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.scheduler.jobs")
	defer span.End()

	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "error, invalid user id", http.StatusBadRequest)
		return
	}

	jobs := handler.scheduler.Jobs(userID)
	if jobs == nil {
		jobs = []Job{}
	}
	pkg.WriteJSON(w, JobsResponse{
		UserID: userID,
		Jobs:   jobs,
	}, http.StatusOK)
}
