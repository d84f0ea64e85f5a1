package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/http/respond"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/middleware"
)

const maxJSONBody = 1 << 20

// Middleware wraps a route with an authorization gate.
type Middleware func(http.Handler) http.Handler

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body too large")
		}
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid JSON payload")
	}
	return nil
}

// fail logs err with its full chain and answers with the generic mapping.
func fail(w http.ResponseWriter, r *http.Request, log logging.Logger, op string, err error) {
	status := apperr.Status(err)
	args := []any{"status", status, "error", err}
	if id := callerID(r); id != "" {
		args = append(args, "client_id", id)
	}
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), op+" failed", args...)
	} else {
		log.Debug(r.Context(), op+" rejected", args...)
	}
	respond.Error(w, err)
}

// callerID names the tenant behind r, whichever gate admitted it.
func callerID(r *http.Request) string {
	if client, ok := middleware.ClientFrom(r.Context()); ok {
		return client.ID
	}
	id, _ := middleware.ClientIDFrom(r.Context())
	return id
}
