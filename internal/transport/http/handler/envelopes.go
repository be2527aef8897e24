package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bed-alerts/internal/domain"
	"github.com/bed-alerts/internal/pkg/validate"
)

const maxBodyBytes = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NotificationsEnvelope wraps list responses.
type NotificationsEnvelope struct {
	Notifications []domain.NotificationView `json:"notifications"`
}

// UserConfirmationEnvelope wraps confirm-for-user responses.
type UserConfirmationEnvelope struct {
	UserConfirmation domain.UserConfirmationView `json:"userConfirmation"`
}

// AutoConfirmationEnvelope wraps confirm-for-event responses.
type AutoConfirmationEnvelope struct {
	AutoConfirmation domain.AutoConfirmationView `json:"autoConfirmation"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decodeBody reads a JSON body into dst and validates it. Failures wrap
// domain.ErrBadRequest.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large: %w", domain.ErrBadRequest)
		}
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	return nil
}
