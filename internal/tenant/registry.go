// Package tenant onboards client applications and discloses their API keys.
package tenant

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/auth"
	"github.com/hongminglow/custody-be/internal/keyvault"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage"
)

const (
	apiKeyBytes = 32
	visibleTail = 4
	maskRune    = "*"
)

// TokenIssuer signs session tokens for a client.
type TokenIssuer interface {
	Issue(clientID string) (string, error)
}

// Registry provisions clients and reveals their keys.
type Registry struct {
	clients storage.ClientStore
	vault   *keyvault.Vault
	tokens  TokenIssuer
	log     logging.Logger
	rand    io.Reader
	now     func() time.Time
}

// NewRegistry constructs the client registry.
func NewRegistry(clients storage.ClientStore, vault *keyvault.Vault, tokens TokenIssuer, log logging.Logger) *Registry {
	return &Registry{
		clients: clients,
		vault:   vault,
		tokens:  tokens,
		log:     log,
		rand:    rand.Reader,
		now:     time.Now,
	}
}

// Onboard creates an active client named name and returns it with a fresh
// session token.
func (r *Registry) Onboard(ctx context.Context, name string) (models.Client, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Client{}, "", apperr.Validation("name is required")
	}

	key, err := r.newAPIKey()
	if err != nil {
		return models.Client{}, "", err
	}
	sealed, err := r.vault.Encrypt([]byte(key))
	if err != nil {
		return models.Client{}, "", fmt.Errorf("seal api key: %w", err)
	}

	client := models.Client{
		ID:              uuid.NewString(),
		Name:            name,
		APIKeyHash:      auth.HashAPIKey(key),
		EncryptedAPIKey: sealed,
		Status:          models.ClientActive,
		CreatedAt:       r.now().UTC(),
	}

	created, err := r.clients.CreateClient(ctx, client)
	if err != nil {
		return models.Client{}, "", fmt.Errorf("create client: %w", err)
	}

	token, err := r.tokens.Issue(created.ID)
	if err != nil {
		return models.Client{}, "", fmt.Errorf("issue token: %w", err)
	}
	r.log.Info(ctx, "client onboarded", "client_id", created.ID)
	return created, token, nil
}

// RevealPartial returns the client's key with all but the last four
// characters masked.
func (r *Registry) RevealPartial(ctx context.Context, clientID string) (string, error) {
	key, err := r.RevealFull(ctx, clientID)
	if err != nil {
		return "", err
	}
	return Mask(key), nil
}

// RevealFull returns the client's key. Callers must have verified a session
// token for clientID.
func (r *Registry) RevealFull(ctx context.Context, clientID string) (string, error) {
	client, err := r.clients.FindClientByID(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("find client: %w", err)
	}
	plain, err := r.vault.Decrypt(client.EncryptedAPIKey)
	if err != nil {
		r.log.Error(ctx, "api key envelope unreadable", "client_id", clientID, "error", err)
		return "", err
	}
	return string(plain), nil
}

// Mask replaces every character but the last four with '*'. Keys of four
// characters or fewer are masked entirely.
func Mask(key string) string {
	runes := []rune(key)
	if len(runes) <= visibleTail {
		return strings.Repeat(maskRune, len(runes))
	}
	hidden := len(runes) - visibleTail
	return strings.Repeat(maskRune, hidden) + string(runes[hidden:])
}

func (r *Registry) newAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := io.ReadFull(r.rand, buf); err != nil {
		return "", fmt.Errorf("%w: %v", keyvault.ErrEntropyFailure, err)
	}
	return hex.EncodeToString(buf), nil
}
