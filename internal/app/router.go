package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/companies"
	"github.com/taskdeck/taskdeck/internal/dashboard"
	"github.com/taskdeck/taskdeck/internal/notifications"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/tasks"
	"github.com/taskdeck/taskdeck/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	Sessions             *session.Store
	AuthHandler          *auth.Handler
	TasksHandler         *tasks.Handler
	DashboardHandler     *dashboard.Handler
	UsersHandler         *users.Handler
	CompaniesHandler     *companies.Handler
	NotificationsHandler *notifications.Handler
}

// NewRouter constructs the chi.Router with gateway defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Sessions: params.Sessions,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	guard := rbac.Middleware{
		Logger: params.Logger,
		Current: func(req *http.Request) *rbac.Principal {
			return session.FromContext(req.Context()).Principal()
		},
	}

	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r, LoginLimiter(params.Config))

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuth())
			params.TasksHandler.MountRoutes(r, guard)
			params.DashboardHandler.MountRoutes(r, guard)
			params.UsersHandler.MountRoutes(r, guard)
			params.CompaniesHandler.MountRoutes(r, guard)
			params.NotificationsHandler.MountRoutes(r)
		})
	})

	return r
}
