// Package companies proxies tenant management. Super admin only.
package companies

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// Backend is the slice of the upstream client this package needs.
type Backend interface {
	ListCompanies(ctx context.Context, token string) ([]upstream.Company, error)
	GetCompany(ctx context.Context, token string, id int64) (upstream.Company, error)
	CreateCompany(ctx context.Context, token string, in upstream.CompanyCreate) (upstream.Company, error)
	UpdateCompany(ctx context.Context, token string, id int64, in upstream.CompanyUpdate) (upstream.Company, error)
}

// Handler exposes tenant routes.
type Handler struct {
	logger  *slog.Logger
	backend Backend
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, backend Backend) *Handler {
	return &Handler{logger: logger, backend: backend}
}

// MountRoutes registers company routes, all gated on company management.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/companies", func(r chi.Router) {
		r.Use(guard.Require(rbac.PermManageCompanies))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Put("/{id}", h.handleUpdate)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	companies, err := h.backend.ListCompanies(r.Context(), sess.Token())
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, companies)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	var in upstream.CompanyCreate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed company payload")
		return
	}
	if in.Name == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "company name is required")
		return
	}
	company, err := h.backend.CreateCompany(r.Context(), sess.Token(), in)
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusCreated, company)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	company, err := h.backend.GetCompany(r.Context(), sess.Token(), id)
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in upstream.CompanyUpdate
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed company payload")
		return
	}
	company, err := h.backend.UpdateCompany(r.Context(), sess.Token(), id, in)
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}
