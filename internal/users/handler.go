package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// Handler exposes account management routes.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes, all gated on user management.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/users", func(r chi.Router) {
		r.Use(guard.Require(rbac.PermManageUsers))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Put("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
		r.Post("/{id}/activate", h.handleActivate)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	users, err := h.service.List(r.Context(), sess.Token(), sess.Principal())
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	var in upstream.UserCreate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed user payload")
		return
	}
	user, err := h.service.Create(r.Context(), sess.Token(), sess.Principal(), in)
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in upstream.UserUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed user payload")
		return
	}
	user, err := h.service.Update(r.Context(), sess.Token(), id, in)
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), sess.Token(), id); err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Activate(r.Context(), sess.Token(), id); err != nil {
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
