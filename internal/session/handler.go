package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/2beens/trainplan/internal/telemetry/tracing"
	"github.com/2beens/trainplan/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type sessionsService interface {
	HandleAction(ctx context.Context, action Action) error
	Active(userID int64) []Info
}

type ActionRequest struct {
	UserID    int64  `json:"userId"`
	SessionID string `json:"sessionId"`
	Index     int    `json:"index"`
	Action    string `json:"action"`
}

type ActionResponse struct {
	SessionID string `json:"sessionId"`
	Index     int    `json:"index"`
	Accepted  bool   `json:"accepted"`
}

type ActiveSessionsResponse struct {
	UserID   int64  `json:"userId"`
	Sessions []Info `json:"sessions"`
}

type Handler struct {
	sessions sessionsService
}

func NewHandler(sessions sessionsService) *Handler {
	return &Handler{
		sessions: sessions,
	}
}

// HandleAction is the webhook form of a prompt button press.
// Stale presses are answered with accepted=false, not with an error status.
func (handler *Handler) HandleAction(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.action")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("session action, unmarshal json params: %s", err)
		http.Error(w, "error, invalid action request", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 || req.SessionID == "" || req.Index < 0 {
		http.Error(w, "error, user id, session id or index missing", http.StatusBadRequest)
		return
	}
	kind, err := ParseActionKind(req.Action)
	if err != nil {
		http.Error(w, "error, unknown action", http.StatusBadRequest)
		return
	}

	err = handler.sessions.HandleAction(ctx, Action{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Index:     req.Index,
		Kind:      kind,
	})
	if err != nil && !errors.Is(err, ErrStaleAction) {
		log.Errorf("failed to handle action on session %s: %s", req.SessionID, err)
		http.Error(w, "error, failed to handle action", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSON(w, ActionResponse{
		SessionID: req.SessionID,
		Index:     req.Index,
		Accepted:  err == nil,
	}, http.StatusOK)
}

func (handler *Handler) HandleActive(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.session.active")
	defer span.End()

	userID, err := strconv.ParseInt(mux.Vars(r)["userId"], 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "error, invalid user id", http.StatusBadRequest)
		return
	}

	pkg.WriteJSON(w, ActiveSessionsResponse{
		UserID:   userID,
		Sessions: handler.sessions.Active(userID),
	}, http.StatusOK)
}
