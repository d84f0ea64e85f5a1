package storage

import (
	"context"
	"time"

	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/resilience"
)

var _ Store = (*Bounded)(nil)

// Bounded wraps a Store so every call carries a deadline. Reads are retried
// once on driver failure; writes are attempted once.
type Bounded struct {
	inner  Store
	policy resilience.Policy
}

// NewBounded decorates inner with a per-call timeout.
func NewBounded(inner Store, timeout time.Duration) *Bounded {
	return &Bounded{inner: inner, policy: resilience.Policy{Name: "storage", Timeout: timeout}}
}

func (b *Bounded) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	return resilience.Write(ctx, b.policy, func(ctx context.Context) (models.Account, error) {
		return b.inner.CreateAccount(ctx, account)
	})
}

func (b *Bounded) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	return resilience.Read(ctx, b.policy, func(ctx context.Context) (models.Account, error) {
		return b.inner.FindAccountByEmail(ctx, email)
	})
}

func (b *Bounded) FindAccountByID(ctx context.Context, id string) (models.Account, error) {
	return resilience.Read(ctx, b.policy, func(ctx context.Context) (models.Account, error) {
		return b.inner.FindAccountByID(ctx, id)
	})
}

func (b *Bounded) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return resilience.Exec(ctx, b.policy, func(ctx context.Context) error {
		return b.inner.UpdatePasswordHash(ctx, id, passwordHash)
	})
}

type cartLine struct {
	item models.CartItem
	flag bool
}

func (b *Bounded) AddOrIncrementItem(ctx context.Context, item models.CartItem) (models.CartItem, bool, error) {
	out, err := resilience.Write(ctx, b.policy, func(ctx context.Context) (cartLine, error) {
		line, created, err := b.inner.AddOrIncrementItem(ctx, item)
		return cartLine{line, created}, err
	})
	return out.item, out.flag, err
}

func (b *Bounded) DecrementOrRemoveItem(ctx context.Context, accountID, itemID string) (models.CartItem, bool, error) {
	out, err := resilience.Write(ctx, b.policy, func(ctx context.Context) (cartLine, error) {
		line, removed, err := b.inner.DecrementOrRemoveItem(ctx, accountID, itemID)
		return cartLine{line, removed}, err
	})
	return out.item, out.flag, err
}

func (b *Bounded) ClearCart(ctx context.Context, accountID string) error {
	return resilience.Exec(ctx, b.policy, func(ctx context.Context) error {
		return b.inner.ClearCart(ctx, accountID)
	})
}

func (b *Bounded) ListCart(ctx context.Context, accountID string) ([]models.CartItem, error) {
	return resilience.Read(ctx, b.policy, func(ctx context.Context) ([]models.CartItem, error) {
		return b.inner.ListCart(ctx, accountID)
	})
}

func (b *Bounded) CreateClient(ctx context.Context, client models.Client) (models.Client, error) {
	return resilience.Write(ctx, b.policy, func(ctx context.Context) (models.Client, error) {
		return b.inner.CreateClient(ctx, client)
	})
}

func (b *Bounded) FindClientByID(ctx context.Context, id string) (models.Client, error) {
	return resilience.Read(ctx, b.policy, func(ctx context.Context) (models.Client, error) {
		return b.inner.FindClientByID(ctx, id)
	})
}

func (b *Bounded) FindClientByAPIKeyHash(ctx context.Context, hash string) (models.Client, error) {
	return resilience.Read(ctx, b.policy, func(ctx context.Context) (models.Client, error) {
		return b.inner.FindClientByAPIKeyHash(ctx, hash)
	})
}

func (b *Bounded) Ping(ctx context.Context) error {
	_, err := resilience.Read(ctx, b.policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.inner.Ping(ctx)
	})
	return err
}

func (b *Bounded) Close() { b.inner.Close() }
