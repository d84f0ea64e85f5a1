// Package cart keeps each account's priced line items and prices checkouts.
package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage"
)

// PaymentProvider creates a payment intent for amount minor units of currency
// and returns its client secret.
type PaymentProvider interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error)
}

// Ledger mutates carts through a store whose cart operations are atomic per
// account.
type Ledger struct {
	store    storage.CartStore
	payments PaymentProvider
	currency string
	log      logging.Logger
}

// NewLedger constructs a ledger charging in currency.
func NewLedger(store storage.CartStore, payments PaymentProvider, currency string, log logging.Logger) *Ledger {
	return &Ledger{
		store:    store,
		payments: payments,
		currency: strings.ToLower(currency),
		log:      log,
	}
}

// AddOrIncrement adds quantity of product to the account's cart. An existing
// line for product is incremented and takes the new unit price.
func (l *Ledger) AddOrIncrement(ctx context.Context, accountID, product string, quantity int64, unitPrice decimal.Decimal) (models.CartItem, bool, error) {
	item := models.CartItem{
		AccountID: strings.TrimSpace(accountID),
		Product:   strings.TrimSpace(product),
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	if err := validateLine(item.Product, item.Quantity, item.UnitPrice); err != nil {
		return models.CartItem{}, false, err
	}
	if item.AccountID == "" {
		return models.CartItem{}, false, apperr.Validation("account id is required")
	}
	line, created, err := l.store.AddOrIncrementItem(ctx, item)
	if err != nil {
		return models.CartItem{}, false, fmt.Errorf("add cart item: %w", err)
	}
	return line, created, nil
}

// DecrementOrRemove lowers a line's quantity by one and deletes it at zero.
func (l *Ledger) DecrementOrRemove(ctx context.Context, accountID, itemID string) (models.CartItem, bool, error) {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(itemID) == "" {
		return models.CartItem{}, false, apperr.Validation("account id and item id are required")
	}
	line, removed, err := l.store.DecrementOrRemoveItem(ctx, accountID, itemID)
	if err != nil {
		return models.CartItem{}, false, fmt.Errorf("remove cart item: %w", err)
	}
	return line, removed, nil
}

// Clear empties the account's cart.
func (l *Ledger) Clear(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return apperr.Validation("account id is required")
	}
	if err := l.store.ClearCart(ctx, accountID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// List returns the account's lines and their total.
func (l *Ledger) List(ctx context.Context, accountID string) ([]models.CartItem, decimal.Decimal, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, decimal.Zero, apperr.Validation("account id is required")
	}
	items, err := l.store.ListCart(ctx, accountID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("list cart: %w", err)
	}
	return items, Total(items), nil
}

// Checkout prices items and opens a payment intent for the total.
func (l *Ledger) Checkout(ctx context.Context, items []models.CartItem) (Intent, error) {
	if len(items) == 0 {
		return Intent{}, apperr.Validation("cart is empty")
	}
	for _, it := range items {
		if err := validateLine(it.Product, it.Quantity, it.UnitPrice); err != nil {
			return Intent{}, err
		}
	}
	total := Total(items)
	amount, err := MinorUnits(total, l.currency)
	if err != nil {
		return Intent{}, err
	}
	if amount <= 0 {
		return Intent{}, apperr.Validation("cart total must be positive")
	}

	secret, err := l.payments.CreatePaymentIntent(ctx, amount, l.currency)
	if err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}
	l.log.Info(ctx, "payment intent created", "amount", amount, "currency", l.currency)
	return Intent{ClientSecret: secret, Amount: total, Currency: l.currency}, nil
}

// Intent is an opened payment.
type Intent struct {
	ClientSecret string
	Amount       decimal.Decimal
	Currency     string
}

// Total sums quantity * unit price over items.
func Total(items []models.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return sum
}

func validateLine(product string, quantity int64, unitPrice decimal.Decimal) error {
	switch {
	case strings.TrimSpace(product) == "":
		return apperr.Validation("product is required")
	case quantity < 1:
		return apperr.Validation("quantity must be at least 1")
	case unitPrice.IsNegative():
		return apperr.Validation("price must not be negative")
	}
	return nil
}
