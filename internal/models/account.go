package models

import (
	"errors"
	"strings"
	"time"
)

// Account is a custodial wallet owner. Secret material is held only as vault
// envelopes and none of it is serialized to clients.
type Account struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"-"`
	WalletAddress       string    `json:"walletAddress"`
	EncryptedPrivateKey string    `json:"-"`
	EncryptedMnemonic   string    `json:"-"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the fields a store requires before inserting.
func (a Account) Validate() error {
	switch {
	case a.ID == "":
		return errors.New("account id is required")
	case a.Email == "" || a.Email != NormalizeEmail(a.Email):
		return errors.New("account email must be normalized")
	case a.PasswordHash == "":
		return errors.New("account password hash is required")
	case a.WalletAddress == "":
		return errors.New("account wallet address is required")
	case a.EncryptedPrivateKey == "" || a.EncryptedMnemonic == "":
		return errors.New("account key material is required")
	}
	return nil
}
