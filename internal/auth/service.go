// Package auth implements the dual-mode login flow: the same identifier and
// password must transparently resolve to either an individual account or a
// company-level account without the caller declaring which.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/rbac"
	"github.com/taskdeck/taskdeck/internal/session"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// Backend is the slice of the upstream client the auth flow needs.
type Backend interface {
	Login(ctx context.Context, username, password, otp string) (*upstream.LoginOutcome, error)
	CompanyLogin(ctx context.Context, username, password string) (*upstream.LoginOutcome, error)
	Me(ctx context.Context, token string) (*rbac.Principal, error)
}

// CredentialsError is the single synthesized message shown when both login
// modes reject the pair.
type CredentialsError struct {
	Message string
}

func (e *CredentialsError) Error() string { return e.Message }

// Unwrap ties the error into the shared taxonomy.
func (e *CredentialsError) Unwrap() error { return httpx.ErrUnauthorized }

// LoginResult is the outcome of a completed SmartLogin call.
type LoginResult struct {
	Principal *rbac.Principal `json:"principal,omitempty"`
	OTPSent   bool            `json:"otp_sent"`
	Message   string          `json:"message,omitempty"`
}

// Service wraps the authentication flow. It is the only writer of the
// session's identity; every other component just reads it.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(backend Backend, logger *slog.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

// Terms that mark a login error as a credential problem rather than an
// account-mode mismatch.
var credentialHints = []string{"incorrect", "password", "username", "email"}

// SmartLogin attempts the individual login first and falls back to the
// company login with the same pair. An empty password requests an OTP; the
// backend signals the issued OTP with a message and no token.
func (s *Service) SmartLogin(ctx context.Context, sess *session.Session, identifier, password, otp string) (*LoginResult, error) {
	outcome, individualErr := s.backend.Login(ctx, identifier, password, otp)
	if individualErr == nil {
		if outcome.OTPIssued() {
			return &LoginResult{OTPSent: true, Message: outcome.Message}, nil
		}
		return s.establish(ctx, sess, outcome)
	}

	companyOutcome, companyErr := s.backend.CompanyLogin(ctx, identifier, password)
	if companyErr == nil && !companyOutcome.OTPIssued() {
		return s.establish(ctx, sess, companyOutcome)
	}

	if s.logger != nil {
		s.logger.Info("both login modes rejected",
			slog.String("identifier", identifier),
			slog.Any("individual", individualErr),
			slog.Any("company", companyErr))
	}
	if upstream.IsUnavailable(individualErr) && (companyErr == nil || upstream.IsUnavailable(companyErr)) {
		return nil, httpx.ErrUpstreamUnavailable
	}
	return nil, synthesizeLoginError(individualErr)
}

// establish persists the identity, then confirms the token by re-fetching
// the current account once to pick up the authoritative permission flags.
// A failed confirmation is a hard logout, not a soft error.
func (s *Service) establish(ctx context.Context, sess *session.Session, outcome *upstream.LoginOutcome) (*LoginResult, error) {
	if outcome.Token == "" || outcome.Principal == nil {
		return nil, fmt.Errorf("auth: login response incomplete: %w", httpx.ErrUnauthorized)
	}
	sess.SetIdentity(outcome.Token, outcome.Principal)

	principal, err := s.backend.Me(ctx, outcome.Token)
	if err != nil {
		sess.Destroy()
		return nil, fmt.Errorf("auth: confirm token: %w", httpx.ErrSessionInvalid)
	}
	sess.SetIdentity(outcome.Token, principal)
	return &LoginResult{Principal: principal}, nil
}

// Refresh re-fetches the current account for the session. Any failure
// invalidates the session; callers must treat it as a forced logout.
func (s *Service) Refresh(ctx context.Context, sess *session.Session) (*rbac.Principal, error) {
	if !sess.Authenticated() {
		return nil, httpx.ErrSessionInvalid
	}
	principal, err := s.backend.Me(ctx, sess.Token())
	if err != nil {
		token := sess.Token()
		sess.Destroy()
		if s.logger != nil {
			s.logger.Warn("session refresh failed", slog.Any("error", err), slog.Bool("had_token", token != ""))
		}
		return nil, fmt.Errorf("auth: refresh: %w", httpx.ErrSessionInvalid)
	}
	sess.SetIdentity(sess.Token(), principal)
	return principal, nil
}

// Logout destroys the session identity. Idempotent.
func (s *Service) Logout(sess *session.Session) {
	sess.Destroy()
}

// synthesizeLoginError prefers the individual-login message when it
// textually indicates a credential problem, otherwise falls back to one
// generic message covering both modes.
func synthesizeLoginError(individualErr error) error {
	msg := apiMessage(individualErr)
	lower := strings.ToLower(msg)
	for _, hint := range credentialHints {
		if strings.Contains(lower, hint) {
			return &CredentialsError{Message: msg}
		}
	}
	return &CredentialsError{Message: "invalid username/email or password"}
}

func apiMessage(err error) string {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
