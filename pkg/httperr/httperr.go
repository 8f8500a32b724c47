// Package httperr centralizes translation of domain errors into HTTP
// responses so every handler emits the same JSON error envelope.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"suci/pkg/platform/sentinel"
)

// Status maps a sentinel error to its HTTP status code. Unrecognized errors
// are treated as internal.
func Status(err error) int {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, sentinel.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, sentinel.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write renders err as a JSON envelope. Internal errors are masked; the
// caller is expected to have logged the original.
func Write(w http.ResponseWriter, err error) {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
