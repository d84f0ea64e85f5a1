// Package respond writes the JSON envelope every endpoint answers with.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hongminglow/custody-be/internal/apperr"
)

// Envelope is the standard API response wrapper used across handlers.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success response.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes err as its mapped status and generic public message. Nothing
// from the error chain beyond that reaches the client.
func Error(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	write(w, status, Envelope{Code: status, Message: apperr.PublicMessage(err)})
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Warn("respond: encode payload failed", "error", err)
	}
}
