package handlers

import (
	"context"
	"net/http"

	"github.com/hongminglow/custody-be/internal/http/respond"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/models/dto"
)

// WalletCreator onboards a new wallet account.
type WalletCreator interface {
	CreateWallet(ctx context.Context, email, password string) (models.Account, error)
}

// Authenticator checks credentials and rotates passwords.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (models.Account, error)
	ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error
}

// AuthHandler owns the end-user wallet and login endpoints.
type AuthHandler struct {
	wallets WalletCreator
	auth    Authenticator
	log     logging.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(wallets WalletCreator, auth Authenticator, log logging.Logger) *AuthHandler {
	return &AuthHandler{wallets: wallets, auth: auth, log: log}
}

// Register attaches the routes behind the API key gate.
func (h *AuthHandler) Register(mux *http.ServeMux, apiKey Middleware) {
	mux.Handle("POST /create-wallet", apiKey(http.HandlerFunc(h.handleCreateWallet)))
	mux.Handle("POST /login", apiKey(http.HandlerFunc(h.handleLogin)))
	mux.Handle("POST /change-password", apiKey(http.HandlerFunc(h.handleChangePassword)))
}

func (h *AuthHandler) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, "create wallet", err)
		return
	}
	account, err := h.wallets.CreateWallet(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, h.log, "create wallet", err)
		return
	}
	respond.JSON(w, http.StatusCreated, "wallet created", dto.WalletResponse{WalletAddress: account.WalletAddress})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, "login", err)
		return
	}
	account, err := h.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, h.log, "login", err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", dto.WalletResponse{WalletAddress: account.WalletAddress})
}

func (h *AuthHandler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, "change password", err)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), req.Email, req.OldPassword, req.NewPassword); err != nil {
		fail(w, r, h.log, "change password", err)
		return
	}
	respond.JSON(w, http.StatusOK, "password changed", nil)
}
