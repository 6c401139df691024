package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/taskdeck/taskdeck/internal/platform/httpx"
	"github.com/taskdeck/taskdeck/internal/upstream"
)

// MapUpstream converts upstream client errors into the gateway taxonomy.
// A 401 destroys the session here and nowhere else; every other class is a
// plain translation with no side effect.
func MapUpstream(sess *Session, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *upstream.APIError
	if !errors.As(err, &apiErr) {
		// Transport-level failure, the backend never answered.
		return httpx.ErrUpstreamUnavailable
	}
	switch {
	case apiErr.Status == http.StatusUnauthorized:
		sess.Destroy()
		return httpx.ErrSessionInvalid
	case apiErr.Status == http.StatusForbidden:
		return httpx.ErrForbidden
	case apiErr.Status == http.StatusNotFound:
		return httpx.ErrNotFound
	case apiErr.Status == http.StatusConflict:
		return httpx.ErrDuplicate
	case apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
		if apiErr.Message != "" {
			return fmt.Errorf("%w: %s", httpx.ErrValidation, apiErr.Message)
		}
		return httpx.ErrValidation
	case apiErr.Status >= http.StatusInternalServerError:
		return httpx.ErrUpstreamUnavailable
	default:
		return err
	}
}
