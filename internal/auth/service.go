package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage"
)

// Service verifies end-user passwords and resolves tenant API keys.
type Service struct {
	accounts storage.AccountStore
	clients  storage.ClientStore
	hasher   *PasswordHasher
	limiter  Limiter
	log      logging.Logger
}

// NewService wires the service. A nil limiter allows every attempt.
func NewService(accounts storage.AccountStore, clients storage.ClientStore, hasher *PasswordHasher, limiter Limiter, log logging.Logger) *Service {
	if limiter == nil {
		limiter = AllowAll{}
	}
	return &Service{accounts: accounts, clients: clients, hasher: hasher, limiter: limiter, log: log}
}

// Authenticate returns the account owning email if password matches. Unknown
// emails and wrong passwords produce the same apperr.ErrAuthFailure.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return models.Account{}, apperr.Validation("email and password are required")
	}
	if !s.limiter.Allow(ctx, email) {
		return models.Account{}, apperr.ErrAuthFailure
	}

	account, err := s.accounts.FindAccountByEmail(ctx, email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.Account{}, fmt.Errorf("find account: %w", err)
	}

	ok, err := s.hasher.Matches(ctx, account.PasswordHash, password)
	if err != nil {
		return models.Account{}, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		return models.Account{}, apperr.ErrAuthFailure
	}
	return account, nil
}

// ChangePassword replaces the password of the account authenticated by
// oldPassword. The wallet is untouched.
func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	account, err := s.Authenticate(ctx, email, oldPassword)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.log.Info(ctx, "password changed", "account_id", account.ID)
	return nil
}

// ResolveAPIKey returns the active client owning apiKey.
func (s *Service) ResolveAPIKey(ctx context.Context, apiKey string) (models.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return models.Client{}, apperr.ErrInvalidAPIKey
	}
	client, err := s.clients.FindClientByAPIKeyHash(ctx, HashAPIKey(apiKey))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Client{}, apperr.ErrInvalidAPIKey
		}
		return models.Client{}, fmt.Errorf("resolve api key: %w", err)
	}
	if client.Status != models.ClientActive {
		return models.Client{}, apperr.ErrInvalidAPIKey
	}
	return client, nil
}

// ValidatePassword requires a non-empty password that bcrypt can hash
// without truncation.
func ValidatePassword(password string) error {
	switch {
	case strings.TrimSpace(password) == "":
		return apperr.Validation("password is required")
	case len(password) > 72:
		return apperr.Validation("password must be at most 72 bytes")
	}
	return nil
}
