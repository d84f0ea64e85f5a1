package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/custody-be/internal/cart"
	"github.com/hongminglow/custody-be/internal/http/respond"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/models/dto"
)

// CartLedger is the cart and checkout surface served over HTTP.
type CartLedger interface {
	AddOrIncrement(ctx context.Context, accountID, product string, quantity int64, unitPrice decimal.Decimal) (models.CartItem, bool, error)
	DecrementOrRemove(ctx context.Context, accountID, itemID string) (models.CartItem, bool, error)
	Clear(ctx context.Context, accountID string) error
	List(ctx context.Context, accountID string) ([]models.CartItem, decimal.Decimal, error)
	Checkout(ctx context.Context, items []models.CartItem) (cart.Intent, error)
}

// CartHandler exposes per-account carts and checkout.
type CartHandler struct {
	ledger CartLedger
	log    logging.Logger
}

// NewCartHandler constructs the handler.
func NewCartHandler(ledger CartLedger, log logging.Logger) *CartHandler {
	return &CartHandler{ledger: ledger, log: log}
}

// Register attaches the cart routes behind the API key gate.
func (h *CartHandler) Register(mux *http.ServeMux, apiKey Middleware) {
	mux.Handle("POST /add-item/{accountId}", apiKey(http.HandlerFunc(h.handleAdd)))
	mux.Handle("POST /remove-item/{accountId}", apiKey(http.HandlerFunc(h.handleRemove)))
	mux.Handle("POST /clear-cart/{accountId}", apiKey(http.HandlerFunc(h.handleClear)))
	mux.Handle("GET /get-cart/{accountId}", apiKey(http.HandlerFunc(h.handleGet)))
	mux.Handle("POST /checkout", apiKey(http.HandlerFunc(h.handleCheckout)))
}

func (h *CartHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req dto.AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, "add item", err)
		return
	}
	line, created, err := h.ledger.AddOrIncrement(r.Context(), r.PathValue("accountId"), req.Product, req.Quantity, req.Price)
	if err != nil {
		fail(w, r, h.log, "add item", err)
		return
	}
	status, msg := http.StatusOK, "item updated"
	if created {
		status, msg = http.StatusCreated, "item added"
	}
	respond.JSON(w, status, msg, dto.AddItemResponse{Item: line, Created: created})
}

func (h *CartHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req dto.RemoveItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, "remove item", err)
		return
	}
	line, removed, err := h.ledger.DecrementOrRemove(r.Context(), r.PathValue("accountId"), req.ProductID)
	if err != nil {
		fail(w, r, h.log, "remove item", err)
		return
	}
	resp := dto.RemoveItemResponse{Removed: removed}
	if !removed {
		resp.Item = &line
	}
	respond.JSON(w, http.StatusOK, "item removed", resp)
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Clear(r.Context(), r.PathValue("accountId")); err != nil {
		fail(w, r, h.log, "clear cart", err)
		return
	}
	respond.JSON(w, http.StatusOK, "cart cleared", nil)
}

func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	items, total, err := h.ledger.List(r.Context(), r.PathValue("accountId"))
	if err != nil {
		fail(w, r, h.log, "get cart", err)
		return
	}
	if items == nil {
		items = []models.CartItem{}
	}
	respond.JSON(w, http.StatusOK, "ok", dto.CartResponse{Items: items, Total: total})
}

func (h *CartHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, h.log, "checkout", err)
		return
	}
	items := make([]models.CartItem, 0, len(req.Cart))
	for _, l := range req.Cart {
		items = append(items, models.CartItem{Product: l.Product, Quantity: l.Quantity, UnitPrice: l.Price})
	}
	intent, err := h.ledger.Checkout(r.Context(), items)
	if err != nil {
		fail(w, r, h.log, "checkout", err)
		return
	}
	respond.JSON(w, http.StatusOK, "payment intent created", dto.CheckoutResponse{
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
	})
}
