package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
	"github.com/hongminglow/custody-be/internal/storage/memory"
	"github.com/hongminglow/custody-be/internal/storage/storagetest"
)

type fakePayments struct {
	mu       sync.Mutex
	amount   int64
	currency string
	err      error
}

func (f *fakePayments) CreatePaymentIntent(_ context.Context, amount int64, currency string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.amount, f.currency = amount, currency
	return "pi_123_secret_456", nil
}

func newLedger(t *testing.T) (*Ledger, *fakePayments, string) {
	t.Helper()
	store := memory.New()
	a, err := store.CreateAccount(context.Background(), storagetest.NewAccount())
	require.NoError(t, err)
	payments := &fakePayments{}
	return NewLedger(store, payments, "USD", logging.Discard()), payments, a.ID
}

func TestLedger_RepeatAddIncrements(t *testing.T) {
	l, _, accountID := newLedger(t)
	ctx := context.Background()

	_, created, err := l.AddOrIncrement(ctx, accountID, "P1", 2, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, created)
	_, created, err = l.AddOrIncrement(ctx, accountID, "P1", 3, decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.False(t, created)

	items, total, err := l.List(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 5, items[0].Quantity)
	assert.True(t, total.Equal(decimal.NewFromInt(25)), total.String())
}

func TestLedger_DecrementRemovesAtZero(t *testing.T) {
	l, _, accountID := newLedger(t)
	ctx := context.Background()

	line, _, err := l.AddOrIncrement(ctx, accountID, "P1", 1, decimal.NewFromInt(5))
	require.NoError(t, err)

	_, removed, err := l.DecrementOrRemove(ctx, accountID, line.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	items, total, err := l.List(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.True(t, total.IsZero())

	_, _, err = l.DecrementOrRemove(ctx, accountID, line.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLedger_ConcurrentAddsMerge(t *testing.T) {
	l, _, accountID := newLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.AddOrIncrement(ctx, accountID, "X", 1, decimal.NewFromInt(7))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, _, err := l.List(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0].Quantity)
}

func TestLedger_Clear(t *testing.T) {
	l, _, accountID := newLedger(t)
	ctx := context.Background()
	_, _, err := l.AddOrIncrement(ctx, accountID, "P1", 1, decimal.NewFromInt(5))
	require.NoError(t, err)

	require.NoError(t, l.Clear(ctx, accountID))
	items, _, err := l.List(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLedger_Validation(t *testing.T) {
	l, _, accountID := newLedger(t)
	ctx := context.Background()

	for name, add := range map[string]func() error{
		"no product":     func() error { _, _, err := l.AddOrIncrement(ctx, accountID, " ", 1, decimal.Zero); return err },
		"zero quantity":  func() error { _, _, err := l.AddOrIncrement(ctx, accountID, "P", 0, decimal.Zero); return err },
		"negative price": func() error { _, _, err := l.AddOrIncrement(ctx, accountID, "P", 1, decimal.NewFromInt(-1)); return err },
		"no account":     func() error { _, _, err := l.AddOrIncrement(ctx, "", "P", 1, decimal.Zero); return err },
		"no item":        func() error { _, _, err := l.DecrementOrRemove(ctx, accountID, ""); return err },
	} {
		require.ErrorIs(t, add(), apperr.ErrValidation, name)
	}
}

func TestLedger_UnknownAccount(t *testing.T) {
	l, _, _ := newLedger(t)
	_, _, err := l.AddOrIncrement(context.Background(), "missing", "P1", 1, decimal.NewFromInt(1))
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, _, err = l.List(context.Background(), "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLedger_Checkout(t *testing.T) {
	l, payments, _ := newLedger(t)

	intent, err := l.Checkout(context.Background(), []models.CartItem{
		{Product: "P1", Quantity: 2, UnitPrice: decimal.RequireFromString("5.25")},
		{Product: "P2", Quantity: 1, UnitPrice: decimal.RequireFromString("0.10")},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_456", intent.ClientSecret)
	assert.True(t, intent.Amount.Equal(decimal.RequireFromString("10.60")))
	assert.EqualValues(t, 1060, payments.amount)
	assert.Equal(t, "usd", payments.currency)
}

func TestLedger_CheckoutRejects(t *testing.T) {
	l, payments, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.Checkout(ctx, nil)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = l.Checkout(ctx, []models.CartItem{{Product: "P", Quantity: 1, UnitPrice: decimal.Zero}})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = l.Checkout(ctx, []models.CartItem{{Product: "P", Quantity: -1, UnitPrice: decimal.NewFromInt(1)}})
	require.ErrorIs(t, err, apperr.ErrValidation)

	payments.err = errors.Join(apperr.ErrDependency, errors.New("card network down"))
	_, err = l.Checkout(ctx, []models.CartItem{{Product: "P", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}})
	require.ErrorIs(t, err, apperr.ErrDependency)
}

func TestTotal(t *testing.T) {
	assert.True(t, Total(nil).IsZero())
	items := []models.CartItem{
		{Quantity: 3, UnitPrice: decimal.RequireFromString("0.1")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("0.2")},
	}
	assert.Equal(t, "0.5", Total(items).String())
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"25", "usd", 2500},
		{"10.605", "usd", 1061},
		{"0.01", "eur", 1},
		{"1200", "jpy", 1200},
		{"1200.5", "jpy", 1201},
	}
	for _, tc := range cases {
		got, err := MinorUnits(decimal.RequireFromString(tc.amount), tc.currency)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.amount)
	}

	_, err := MinorUnits(decimal.RequireFromString("1e20"), "usd")
	require.ErrorIs(t, err, apperr.ErrValidation)
}
