package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/custody-be/internal/workpool"
)

// PasswordHasher runs bcrypt on a bounded pool.
type PasswordHasher struct {
	cost  int
	pool  *workpool.Pool
	dummy []byte
}

// NewPasswordHasher prepares a hasher. The dummy hash lets lookups for unknown
// emails spend the same time as real comparisons.
func NewPasswordHasher(cost int, pool *workpool.Pool) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), cost)
	if err != nil {
		return nil, err
	}
	return &PasswordHasher{cost: cost, pool: pool, dummy: dummy}, nil
}

// Hash returns the salted bcrypt hash of password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	return workpool.Run(ctx, h.pool, func() (string, error) {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
		if err != nil {
			return "", err
		}
		return string(hash), nil
	})
}

// Matches reports whether password hashes to hash. An empty hash is compared
// against the dummy so the call costs the same either way.
func (h *PasswordHasher) Matches(ctx context.Context, hash, password string) (bool, error) {
	return workpool.Run(ctx, h.pool, func() (bool, error) {
		stored := []byte(hash)
		if hash == "" {
			stored = h.dummy
		}
		err := bcrypt.CompareHashAndPassword(stored, []byte(password))
		switch {
		case err == nil:
			return hash != "", nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	})
}
