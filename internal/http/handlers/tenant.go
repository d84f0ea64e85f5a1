package handlers

import (
	"context"
	"net/http"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/http/respond"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/middleware"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/models/dto"
)

// TenantRegistry onboards clients and reveals their API keys.
type TenantRegistry interface {
	Onboard(ctx context.Context, name string) (models.Client, string, error)
	RevealPartial(ctx context.Context, clientID string) (string, error)
	RevealFull(ctx context.Context, clientID string) (string, error)
}

// TenantHandler onboards clients and serves their key self-service.
type TenantHandler struct {
	registry TenantRegistry
	log      logging.Logger
}

// NewTenantHandler constructs the handler.
func NewTenantHandler(registry TenantRegistry, log logging.Logger) *TenantHandler {
	return &TenantHandler{registry: registry, log: log}
}

// Register attaches onboarding (open) and key disclosure (session token) routes.
func (h *TenantHandler) Register(mux *http.ServeMux, bearer Middleware) {
	mux.HandleFunc("POST /onboard-new-client", h.handleOnboard)
	mux.Handle("GET /client/api-key-partial", bearer(http.HandlerFunc(h.handlePartial)))
	mux.Handle("GET /client/api-key-full", bearer(http.HandlerFunc(h.handleFull)))
}

func (h *TenantHandler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req dto.OnboardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, "onboard client", err)
		return
	}
	client, token, err := h.registry.Onboard(r.Context(), req.Name)
	if err != nil {
		fail(w, r, h.log, "onboard client", err)
		return
	}
	respond.JSON(w, http.StatusCreated, "client onboarded", dto.OnboardResponse{Token: token, ClientID: client.ID})
}

func (h *TenantHandler) handlePartial(w http.ResponseWriter, r *http.Request) {
	h.reveal(w, r, "reveal partial key", h.registry.RevealPartial)
}

func (h *TenantHandler) handleFull(w http.ResponseWriter, r *http.Request) {
	h.reveal(w, r, "reveal full key", h.registry.RevealFull)
}

func (h *TenantHandler) reveal(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, string) (string, error)) {
	clientID, ok := middleware.ClientIDFrom(r.Context())
	if !ok {
		fail(w, r, h.log, op, apperr.ErrTokenInvalid)
		return
	}
	key, err := fn(r.Context(), clientID)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", dto.APIKeyResponse{APIKey: key})
}
