// Package storagetest is a conformance suite every storage.Store driver runs.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage"
)

// Run exercises store against the storage contracts. newStore must return an
// empty, isolated store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("clients", func(t *testing.T) { testClients(t, newStore(t)) })
	t.Run("cart", func(t *testing.T) { testCart(t, newStore(t)) })
	t.Run("cart concurrent add", func(t *testing.T) { testConcurrentAdd(t, newStore(t)) })
	t.Run("cart concurrent remove", func(t *testing.T) { testConcurrentRemove(t, newStore(t)) })
}

// NewAccount returns a valid account with unique identifiers.
func NewAccount() models.Account {
	id := uuid.NewString()
	return models.Account{
		ID:                  id,
		Email:               fmt.Sprintf("user-%s@example.com", id[:8]),
		PasswordHash:        "$2a$10$hash",
		WalletAddress:       "0x" + id[:8],
		EncryptedPrivateKey: "v1.aes256gcm.k1.a.b.c",
		EncryptedMnemonic:   "v1.aes256gcm.k1.d.e.f",
	}
}

func newClient() models.Client {
	id := uuid.NewString()
	return models.Client{
		ID:              id,
		Name:            "Acme",
		APIKeyHash:      "hash-" + id,
		EncryptedAPIKey: "v1.aes256gcm.k1.a.b.c",
		Status:          models.ClientActive,
	}
}

func testAccounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a := NewAccount()

	created, err := s.CreateAccount(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a.ID, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byEmail, err := s.FindAccountByEmail(ctx, a.Email)
	require.NoError(t, err)
	assert.Equal(t, a.WalletAddress, byEmail.WalletAddress)
	assert.Equal(t, a.EncryptedMnemonic, byEmail.EncryptedMnemonic)

	byID, err := s.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Email, byID.Email)

	dupEmail := NewAccount()
	dupEmail.Email = a.Email
	_, err = s.CreateAccount(ctx, dupEmail)
	require.ErrorIs(t, err, storage.ErrDuplicateEmail)
	require.ErrorIs(t, err, apperr.ErrConflict)

	dupWallet := NewAccount()
	dupWallet.WalletAddress = a.WalletAddress
	_, err = s.CreateAccount(ctx, dupWallet)
	require.ErrorIs(t, err, storage.ErrDuplicateWallet)

	invalid := NewAccount()
	invalid.PasswordHash = ""
	_, err = s.CreateAccount(ctx, invalid)
	require.ErrorIs(t, err, storage.ErrInvalidRecord)

	_, err = s.FindAccountByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindAccountByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.UpdatePasswordHash(ctx, a.ID, "$2a$10$other"))
	updated, err := s.FindAccountByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$other", updated.PasswordHash)
	assert.Equal(t, a.WalletAddress, updated.WalletAddress)

	require.ErrorIs(t, s.UpdatePasswordHash(ctx, uuid.NewString(), "$2a$10$x"), storage.ErrNotFound)
}

func testClients(t *testing.T, s storage.Store) {
	ctx := context.Background()
	c := newClient()

	created, err := s.CreateClient(ctx, c)
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := s.FindClientByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.EncryptedAPIKey, byID.EncryptedAPIKey)
	assert.Equal(t, models.ClientActive, byID.Status)

	byHash, err := s.FindClientByAPIKeyHash(ctx, c.APIKeyHash)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byHash.ID)

	dup := newClient()
	dup.APIKeyHash = c.APIKeyHash
	_, err = s.CreateClient(ctx, dup)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.FindClientByAPIKeyHash(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FindClientByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testCart(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a, err := s.CreateAccount(ctx, NewAccount())
	require.NoError(t, err)

	first, created, err := s.AddOrIncrementItem(ctx, models.CartItem{AccountID: a.ID, Product: "P1", Quantity: 2, UnitPrice: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	second, created, err := s.AddOrIncrementItem(ctx, models.CartItem{AccountID: a.ID, Product: "P1", Quantity: 3, UnitPrice: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 5, second.Quantity)

	other, _, err := s.AddOrIncrementItem(ctx, models.CartItem{AccountID: a.ID, Product: "P2", Quantity: 1, UnitPrice: decimal.RequireFromString("1.25")})
	require.NoError(t, err)

	lines, err := s.ListCart(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	line, removed, err := s.DecrementOrRemoveItem(ctx, a.ID, first.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.EqualValues(t, 4, line.Quantity)

	_, removed, err = s.DecrementOrRemoveItem(ctx, a.ID, other.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	lines, err = s.ListCart(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "P1", lines[0].Product)

	_, _, err = s.DecrementOrRemoveItem(ctx, a.ID, other.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// another account's line is not reachable through this account
	b, err := s.CreateAccount(ctx, NewAccount())
	require.NoError(t, err)
	_, _, err = s.DecrementOrRemoveItem(ctx, b.ID, first.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.ClearCart(ctx, a.ID))
	lines, err = s.ListCart(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, _, err = s.AddOrIncrementItem(ctx, models.CartItem{AccountID: a.ID, Product: "P1", Quantity: 0, UnitPrice: decimal.Zero})
	require.ErrorIs(t, err, storage.ErrInvalidRecord)

	missing := uuid.NewString()
	_, err = s.ListCart(ctx, missing)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, s.ClearCart(ctx, missing), storage.ErrNotFound)
	_, _, err = s.AddOrIncrementItem(ctx, models.CartItem{AccountID: missing, Product: "P1", Quantity: 1, UnitPrice: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func testConcurrentAdd(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a, err := s.CreateAccount(ctx, NewAccount())
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.AddOrIncrementItem(ctx, models.CartItem{AccountID: a.ID, Product: "X", Quantity: 1, UnitPrice: decimal.NewFromInt(3)})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	lines, err := s.ListCart(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.EqualValues(t, workers, lines[0].Quantity)
}

func testConcurrentRemove(t *testing.T, s storage.Store) {
	ctx := context.Background()
	a, err := s.CreateAccount(ctx, NewAccount())
	require.NoError(t, err)
	line, _, err := s.AddOrIncrementItem(ctx, models.CartItem{AccountID: a.ID, Product: "X", Quantity: 4, UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)

	const workers = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	removed, notFound := 0, 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, gone, err := s.DecrementOrRemoveItem(ctx, a.ID, line.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && gone:
				removed++
			case err != nil:
				assert.ErrorIs(t, err, storage.ErrNotFound)
				notFound++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, removed)
	assert.Equal(t, workers-4, notFound)
	lines, err := s.ListCart(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}
