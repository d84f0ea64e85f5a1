package dto

import (
	"github.com/shopspring/decimal"

	"github.com/hongminglow/custody-be/internal/models"
)

type AddItemRequest struct {
	Product  string          `json:"product"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type AddItemResponse struct {
	Item    models.CartItem `json:"item"`
	Created bool            `json:"created"`
}

type RemoveItemRequest struct {
	ProductID string `json:"productId"`
}

type RemoveItemResponse struct {
	Item    *models.CartItem `json:"item,omitempty"`
	Removed bool             `json:"removed"`
}

type CartResponse struct {
	Items []models.CartItem `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

type CheckoutLine struct {
	Product  string          `json:"product"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type CheckoutRequest struct {
	Cart []CheckoutLine `json:"cart"`
}

type CheckoutResponse struct {
	ClientSecret string          `json:"clientSecret"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type NFTResponse struct {
	NFTs []string `json:"nfts"`
}

type UploadResponse struct {
	Path string `json:"path"`
}
