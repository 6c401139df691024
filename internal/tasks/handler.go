package tasks

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/session"
)

// Handler exposes the task surface of the gateway.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers task routes. The caller has already required an
// authenticated session; per-action permissions are enforced here.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Get("/tasks", h.handleList)
	r.Get("/my-tasks", h.handleMine)
	r.With(guard.Require(rbac.PermAssignTasks)).Post("/tasks/assign", h.handleAssign)
	r.With(guard.Require(rbac.PermManageTasks)).Put("/tasks/{id}", h.handleUpdate)
	r.Put("/tasks/{id}/status", h.handleStatus)
	r.With(guard.Require(rbac.PermManageTasks)).Delete("/tasks/{id}", h.handleDelete)
}

type assignRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Priority     string    `json:"priority"`
	DueDate      time.Time `json:"due_date"`
	RecipientIDs []int64   `json:"recipient_ids"`
	Groups       []Group   `json:"groups"`
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed assignment payload")
		return
	}

	recipients, err := h.service.ResolveRecipients(r.Context(), sess.Token(), req.RecipientIDs, req.Groups)
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}

	draft := Draft{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}
	result, err := h.service.Assign(r.Context(), sess.Token(), sess.Principal(), draft, recipients)
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}

	// Successful subsets always commit; the status code tells the client
	// how much of the fan-out landed.
	switch {
	case result.AllFailed():
		httpx.JSON(w, http.StatusUnprocessableEntity, result)
	case result.Partial():
		httpx.JSON(w, http.StatusMultiStatus, result)
	default:
		httpx.JSON(w, http.StatusCreated, result)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	tasksList, err := h.service.List(r.Context(), sess.Token())
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, tasksList)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	tasksList, err := h.service.Mine(r.Context(), sess.Token())
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, tasksList)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var draft Draft
	if err := httpx.DecodeJSON(r, &draft); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed task payload")
		return
	}
	task, err := h.service.Update(r.Context(), sess.Token(), id, draft)
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, task)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	task, err := h.service.UpdateStatus(r.Context(), sess.Token(), id, r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, task)
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

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}
