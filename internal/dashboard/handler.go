package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/session"
)

// Handler serves the landing-view summary.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.With(guard.Require(rbac.PermViewAnalytics)).Get("/dashboard", h.handleSummary)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	summary, err := h.service.Load(r.Context(), sess.Token(), sess.Principal())
	if err != nil {
		httpx.RespondError(w, session.MapUpstream(sess, err))
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
