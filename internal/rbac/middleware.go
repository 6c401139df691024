package rbac

import (
	"log/slog"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
)

// PrincipalFunc extracts the current principal from a request. Wired to the
// session store at router construction so this package stays free of
// session plumbing.
type PrincipalFunc func(r *http.Request) *Principal

// Middleware wires authorization guards for HTTP handlers.
type Middleware struct {
	Current PrincipalFunc
	Logger  *slog.Logger
}

// RequireAuth rejects requests without an authenticated principal.
func (m Middleware) RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.current(r) == nil {
				httpx.RespondError(w, httpx.ErrSessionInvalid)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require ensures the current principal holds the named permission. A failed
// check renders an explicit denial, never a silent no-op.
func (m Middleware) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := m.current(r)
			if p == nil {
				httpx.RespondError(w, httpx.ErrSessionInvalid)
				return
			}
			if !HasPermission(p, perm) {
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.Int64("principal", p.ID),
						slog.String("role", string(p.Role)),
						slog.String("permission", perm))
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) current(r *http.Request) *Principal {
	if m.Current == nil {
		return nil
	}
	return m.Current(r)
}
