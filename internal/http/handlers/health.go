package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hongminglow/custody-be/internal/http/respond"
	"github.com/hongminglow/custody-be/internal/logging"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler returns uptime and storage reachability.
type HealthHandler struct {
	startedAt time.Time
	storage   Pinger
	log       logging.Logger
}

// NewHealthHandler creates a health endpoint handler.
func NewHealthHandler(startedAt time.Time, storage Pinger, log logging.Logger) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, storage: storage, log: log}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status":  "ok",
		"storage": "ok",
		"uptime":  time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	status := http.StatusOK
	if err := h.storage.Ping(r.Context()); err != nil {
		h.log.Warn(r.Context(), "health: storage ping failed", "error", err)
		body["status"], body["storage"] = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}
	respond.JSON(w, status, body["status"], body)
}
