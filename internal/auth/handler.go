package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/session"
)

// Handler wires HTTP endpoints for the session lifecycle.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers session routes on the provided router. The optional
// limiter throttles the credential endpoint only.
func (h *Handler) MountRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	if limiter != nil {
		r.With(limiter).Post("/session", h.handleLogin)
	} else {
		r.Post("/session", h.handleLogin)
	}
	r.Get("/session", h.handleRefresh)
	r.Delete("/session", h.handleLogout)
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password"`
	OTP        string `json:"otp"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed login payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "identifier is required")
		return
	}

	sess := session.FromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrSessionInvalid)
		return
	}

	result, err := h.service.SmartLogin(r.Context(), sess, req.Identifier, req.Password, req.OTP)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	principal, err := h.service.Refresh(r.Context(), sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, LoginResult{Principal: principal})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if sess != nil {
		h.service.Logout(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}
