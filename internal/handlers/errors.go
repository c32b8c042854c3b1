package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"skillmatrix/internal/service"
)

// writeServiceError maps the service error taxonomy onto HTTP status codes.
// Unknown errors become a 500 with a generic body so internals never leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrPermissionDenied):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, service.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrIllegalTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, service.ErrUserInactive):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		slog.Error("Unhandled service error", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
