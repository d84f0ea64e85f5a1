package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one priced line in an account's cart. A cart holds at most one
// line per product.
type CartItem struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Product   string          `json:"product"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Validate checks a line before it is written.
func (i CartItem) Validate() error {
	switch {
	case i.AccountID == "":
		return errors.New("cart item account is required")
	case i.Product == "":
		return errors.New("cart item product is required")
	case i.Quantity < 1:
		return errors.New("cart item quantity must be at least 1")
	case i.UnitPrice.IsNegative():
		return errors.New("cart item price must not be negative")
	}
	return nil
}
