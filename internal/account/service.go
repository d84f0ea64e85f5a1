// Package account provisions custodial wallets for end users.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/auth"
	"github.com/hongminglow/custody-be/internal/keyvault"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage"
	"github.com/hongminglow/custody-be/internal/workpool"
)

// WalletGenerator mints a new keypair and its recovery phrase.
type WalletGenerator interface {
	GenerateWallet() (keyvault.Wallet, error)
}

// Service creates accounts. A created account always carries a wallet; no
// account row exists without its sealed key material.
type Service struct {
	accounts  storage.AccountStore
	hasher    *auth.PasswordHasher
	generator WalletGenerator
	vault     *keyvault.Vault
	pool      *workpool.Pool
	log       logging.Logger
	now       func() time.Time
}

// NewService constructs the wallet onboarding service.
func NewService(accounts storage.AccountStore, hasher *auth.PasswordHasher, generator WalletGenerator, vault *keyvault.Vault, pool *workpool.Pool, log logging.Logger) *Service {
	return &Service{
		accounts:  accounts,
		hasher:    hasher,
		generator: generator,
		vault:     vault,
		pool:      pool,
		log:       log,
		now:       time.Now,
	}
}

// CreateWallet registers email with password and returns the account holding
// its new wallet.
func (s *Service) CreateWallet(ctx context.Context, email, password string) (models.Account, error) {
	email = models.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return models.Account{}, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return models.Account{}, err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return models.Account{}, fmt.Errorf("hash password: %w", err)
	}

	wallet, err := workpool.Run(ctx, s.pool, s.generator.GenerateWallet)
	if err != nil {
		return models.Account{}, fmt.Errorf("generate wallet: %w", err)
	}
	sealedKey, err := s.vault.Encrypt(wallet.PrivateKey)
	clear(wallet.PrivateKey)
	if err != nil {
		return models.Account{}, fmt.Errorf("seal private key: %w", err)
	}
	sealedMnemonic, err := s.vault.Encrypt([]byte(wallet.Mnemonic))
	if err != nil {
		return models.Account{}, fmt.Errorf("seal mnemonic: %w", err)
	}

	now := s.now().UTC()
	created, err := s.accounts.CreateAccount(ctx, models.Account{
		ID:                  uuid.NewString(),
		Email:               email,
		PasswordHash:        hash,
		WalletAddress:       wallet.Address,
		EncryptedPrivateKey: sealedKey,
		EncryptedMnemonic:   sealedMnemonic,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.log.Info(ctx, "wallet created", "account_id", created.ID, "wallet_address", created.WalletAddress)
	return created, nil
}

func validateEmail(email string) error {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.ContainsAny(email, " \t\r\n") {
		return apperr.Validation("a valid email is required")
	}
	return nil
}
