package auth

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage/memory"
	"github.com/hongminglow/custody-be/internal/storage/storagetest"
	"github.com/hongminglow/custody-be/internal/workpool"
)

type fixture struct {
	svc    *Service
	store  *memory.Store
	hasher *PasswordHasher
}

func newFixture(t *testing.T, limiter Limiter) fixture {
	t.Helper()
	hasher, err := NewPasswordHasher(bcrypt.MinCost, workpool.New(2))
	require.NoError(t, err)
	store := memory.New()
	return fixture{
		svc:    NewService(store, store, hasher, limiter, logging.Discard()),
		store:  store,
		hasher: hasher,
	}
}

func (f fixture) seedAccount(t *testing.T, email, password string) models.Account {
	t.Helper()
	hash, err := f.hasher.Hash(context.Background(), password)
	require.NoError(t, err)
	a := storagetest.NewAccount()
	a.Email = email
	a.PasswordHash = hash
	created, err := f.store.CreateAccount(context.Background(), a)
	require.NoError(t, err)
	return created
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.seedAccount(t, "a@x.com", "password-one")

	got, err := f.svc.Authenticate(ctx, "  A@X.com ", "password-one")
	require.NoError(t, err)
	assert.Equal(t, account.WalletAddress, got.WalletAddress)

	_, wrongPassword := f.svc.Authenticate(ctx, "a@x.com", "password-two")
	_, unknownEmail := f.svc.Authenticate(ctx, "nobody@x.com", "password-one")
	require.ErrorIs(t, wrongPassword, apperr.ErrAuthFailure)
	require.ErrorIs(t, unknownEmail, apperr.ErrAuthFailure)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.Equal(t, apperr.Status(wrongPassword), apperr.Status(unknownEmail))
	assert.Equal(t, apperr.PublicMessage(wrongPassword), apperr.PublicMessage(unknownEmail))
}

func TestAuthenticate_RequiresInput(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Authenticate(context.Background(), "", "x")
	require.ErrorIs(t, err, apperr.ErrValidation)
}

type denyAll struct{ calls atomic.Int32 }

func (d *denyAll) Allow(context.Context, string) bool {
	d.calls.Add(1)
	return false
}

func TestAuthenticate_ConsultsLimiter(t *testing.T) {
	limiter := &denyAll{}
	f := newFixture(t, limiter)
	f.seedAccount(t, "a@x.com", "password-one")

	_, err := f.svc.Authenticate(context.Background(), "a@x.com", "password-one")
	require.ErrorIs(t, err, apperr.ErrAuthFailure)
	assert.EqualValues(t, 1, limiter.calls.Load())
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	account := f.seedAccount(t, "a@x.com", "password-one")

	err := f.svc.ChangePassword(ctx, "a@x.com", "wrong-password", "password-two")
	require.ErrorIs(t, err, apperr.ErrAuthFailure)

	err = f.svc.ChangePassword(ctx, "a@x.com", "password-one", "  ")
	require.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.svc.ChangePassword(ctx, "a@x.com", "password-one", "password-two"))

	_, err = f.svc.Authenticate(ctx, "a@x.com", "password-one")
	require.ErrorIs(t, err, apperr.ErrAuthFailure)
	got, err := f.svc.Authenticate(ctx, "a@x.com", "password-two")
	require.NoError(t, err)
	assert.Equal(t, account.WalletAddress, got.WalletAddress)
	assert.Equal(t, account.EncryptedPrivateKey, got.EncryptedPrivateKey)
}

func TestResolveAPIKey(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	client := models.Client{
		ID:              "client-1",
		Name:            "Acme",
		APIKeyHash:      HashAPIKey("secret-key"),
		EncryptedAPIKey: "v1.aes256gcm.k1.a.b.c",
		Status:          models.ClientActive,
	}
	_, err := f.store.CreateClient(ctx, client)
	require.NoError(t, err)

	got, err := f.svc.ResolveAPIKey(ctx, "secret-key")
	require.NoError(t, err)
	assert.Equal(t, "client-1", got.ID)

	for _, key := range []string{"", "   ", "other-key"} {
		_, err := f.svc.ResolveAPIKey(ctx, key)
		require.ErrorIs(t, err, apperr.ErrInvalidAPIKey)
	}
}

func TestResolveAPIKey_InactiveClient(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	_, err := f.store.CreateClient(ctx, models.Client{
		ID:              "client-2",
		Name:            "Pending",
		APIKeyHash:      HashAPIKey("pending-key"),
		EncryptedAPIKey: "v1.aes256gcm.k1.a.b.c",
		Status:          models.ClientProvisioned,
	})
	require.NoError(t, err)

	_, err = f.svc.ResolveAPIKey(ctx, "pending-key")
	require.ErrorIs(t, err, apperr.ErrInvalidAPIKey)
}

func TestPasswordHasher_UnknownHashNeverMatches(t *testing.T) {
	f := newFixture(t, nil)
	ok, err := f.hasher.Matches(context.Background(), "", "timing-equalizer")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewPasswordHasher_RejectsCost(t *testing.T) {
	_, err := NewPasswordHasher(bcrypt.MaxCost+1, workpool.New(1))
	require.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("pw1"))
	require.ErrorIs(t, ValidatePassword(""), apperr.ErrValidation)
	require.ErrorIs(t, ValidatePassword(" \t"), apperr.ErrValidation)
	require.NoError(t, ValidatePassword(strings.Repeat("a", 72)))
	require.ErrorIs(t, ValidatePassword(strings.Repeat("a", 73)), apperr.ErrValidation)
}
