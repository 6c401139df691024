// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	// ErrUnauthorized covers rejected credentials on login.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionInvalid marks an expired or revoked session. The session
	// middleware destroys the session when it sees this; no other error
	// class has a global side effect.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrUpstreamUnavailable marks a transient upstream failure. Retryable,
	// never forces a logout.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrSessionInvalid):
		JSON(w, http.StatusUnauthorized, ProblemDetail{
			Title:    "Session Expired",
			Status:   http.StatusUnauthorized,
			Detail:   "your session is no longer valid, please sign in again",
			Redirect: "/login",
		})
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, ErrUpstreamUnavailable):
		Problem(w, http.StatusBadGateway, "Upstream Unavailable", "the task service is temporarily unavailable, please retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
