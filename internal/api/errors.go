package api

import (
	"errors"
	"net/http"

	"xcreator/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      string `json:"code,omitempty"`
	Suggested string `json:"suggested_category,omitempty"`
}

// statusFor maps a service error to its HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var mismatch *domain.ClassificationMismatchError
	switch {
	case errors.As(err, &mismatch):
		return http.StatusConflict, "classification_mismatch"
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, "profile_not_found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrNoContent):
		return http.StatusUnprocessableEntity, "no_content"
	case errors.Is(err, domain.ErrInsufficientContent):
		return http.StatusUnprocessableEntity, "insufficient_content"
	case errors.Is(err, domain.ErrInvalidHandle):
		return http.StatusBadRequest, "invalid_handle"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "upstream_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
