// Package apierror maps service errors to transport status codes and bodies.
package apierror

import (
	"errors"
	"net/http"

	"sunquote/backend/services/quote-service/internal/models"
)

// Body is the error payload returned to clients.
type Body struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// From returns the HTTP status and payload for err.
func From(err error) (int, Body) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, Body{Error: "invalid request", Details: verr.Fields}
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, Body{Error: err.Error()}
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, Body{Error: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, Body{Error: err.Error()}
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable, Body{Error: "reference data unavailable, retry later"}
	default:
		return http.StatusInternalServerError, Body{Error: "internal error"}
	}
}

// Retryable reports whether the client may retry the same request.
func Retryable(status int) bool {
	return status == http.StatusServiceUnavailable
}
