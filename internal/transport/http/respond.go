package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	authservice "suci/internal/auth/service"
	"suci/pkg/httperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// decode parses the request body into v. Unknown fields are tolerated; the
// services validate what matters.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// writeError translates service errors. Auth carries two cases of its own;
// everything else goes through the sentinel mapping.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var pending *authservice.DepositPendingError
	switch {
	case errors.As(err, &pending):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"message":                 "Your registration deposit is still being verified. Please try again after sometime.",
			"depositPending":          true,
			"registrationDepositPaid": pending.Paid,
		})
	case errors.Is(err, authservice.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		if httperr.Status(err) == http.StatusInternalServerError {
			h.log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))
		}
		httperr.Write(w, err)
	}
}
