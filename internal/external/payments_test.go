package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/custody-be/internal/apperr"
)

func TestStripe_CreatePaymentIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "2500", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret_x"}`))
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk_test", srv.Client(), testPolicy())
	secret, err := c.CreatePaymentIntent(context.Background(), 2500, "usd")
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_x", secret)
}

func TestStripe_NotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk_test", srv.Client(), testPolicy())
	_, err := c.CreatePaymentIntent(context.Background(), 100, "usd")
	require.ErrorIs(t, err, apperr.ErrDependency)
	assert.EqualValues(t, 1, calls.Load())
}

func TestStripe_MissingSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pi_1"}`))
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk_test", srv.Client(), testPolicy())
	_, err := c.CreatePaymentIntent(context.Background(), 100, "usd")
	require.ErrorIs(t, err, apperr.ErrDependency)

	_, err = NewStripeClient(srv.URL, "", nil, testPolicy()).CreatePaymentIntent(context.Background(), 100, "usd")
	require.ErrorIs(t, err, apperr.ErrDependency)
}
