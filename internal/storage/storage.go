package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = fmt.Errorf("record not found: %w", apperr.ErrNotFound)

// ErrAlreadyExists indicates a uniqueness conflict on an unnamed key.
var ErrAlreadyExists = fmt.Errorf("record already exists: %w", apperr.ErrConflict)

// ErrDuplicateEmail and ErrDuplicateWallet name the account key that collided.
var (
	ErrDuplicateEmail  = fmt.Errorf("duplicate email: %w", apperr.ErrConflict)
	ErrDuplicateWallet = fmt.Errorf("duplicate wallet address: %w", apperr.ErrConflict)
)

// ErrStorageUnavailable wraps driver and network failures. The wrapped
// driver error is for logs only.
var ErrStorageUnavailable = fmt.Errorf("storage unavailable: %w", apperr.ErrDependency)

// ErrInvalidRecord is returned when a record fails validation at the store boundary.
var ErrInvalidRecord = fmt.Errorf("invalid record: %w", apperr.ErrInternal)

// AccountStore persists accounts. Emails passed in must already be normalized.
type AccountStore interface {
	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (models.Account, error)
	FindAccountByID(ctx context.Context, id string) (models.Account, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
}

// CartStore persists cart lines. Every mutation is atomic per account: two
// concurrent adds of the same product never yield two lines.
type CartStore interface {
	// AddOrIncrementItem creates the line for item.Product or adds
	// item.Quantity to the existing one. created reports which happened.
	AddOrIncrementItem(ctx context.Context, item models.CartItem) (line models.CartItem, created bool, err error)
	// DecrementOrRemoveItem lowers the line's quantity by one, deleting it
	// when it would reach zero. removed reports deletion.
	DecrementOrRemoveItem(ctx context.Context, accountID, itemID string) (line models.CartItem, removed bool, err error)
	ClearCart(ctx context.Context, accountID string) error
	ListCart(ctx context.Context, accountID string) ([]models.CartItem, error)
}

// ClientStore persists tenants.
type ClientStore interface {
	CreateClient(ctx context.Context, client models.Client) (models.Client, error)
	FindClientByID(ctx context.Context, id string) (models.Client, error)
	FindClientByAPIKeyHash(ctx context.Context, hash string) (models.Client, error)
}

// Store is the full persistence surface a driver provides.
type Store interface {
	AccountStore
	CartStore
	ClientStore
	Ping(ctx context.Context) error
	Close()
}

// Unavailable wraps a driver error as ErrStorageUnavailable, or as
// ErrDependencyTimeout when the context ran out.
func Unavailable(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, apperr.FromContext(err, "storage"))
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
