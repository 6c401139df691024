// Package notifications proxies the principal's own notification feed.
package notifications

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// Backend is the slice of the upstream client this package needs.
type Backend interface {
	ListNotifications(ctx context.Context, token string) ([]upstream.Notification, error)
	MarkNotificationRead(ctx context.Context, token string, id int64) error
	DeleteNotification(ctx context.Context, token string, id int64) error
}

// Handler exposes notification routes. The backend scopes the feed to the
// bearer token, so no extra permission gate is needed.
type Handler struct {
	logger  *slog.Logger
	backend Backend
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, backend Backend) *Handler {
	return &Handler{logger: logger, backend: backend}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/notifications", h.handleList)
	r.Put("/notifications/{id}/read", h.handleMarkRead)
	r.Delete("/notifications/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	items, err := h.backend.ListNotifications(r.Context(), sess.Token())
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.backend.MarkNotificationRead(r.Context(), sess.Token(), id); err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.backend.DeleteNotification(r.Context(), sess.Token(), id); err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}
