package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/resilience"
)

// StripeClient opens payment intents through the Stripe REST API.
type StripeClient struct {
	baseURL   string
	secretKey string
	http      *http.Client
	policy    resilience.Policy
}

// NewStripeClient constructs a client for the Stripe API at baseURL.
func NewStripeClient(baseURL, secretKey string, httpClient *http.Client, policy resilience.Policy) *StripeClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	policy.Name = "payments"
	return &StripeClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      httpClient,
		policy:    policy,
	}
}

type paymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// CreatePaymentIntent creates an intent for amount minor units of currency.
// It is attempted once.
func (c *StripeClient) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error) {
	if c.secretKey == "" {
		return "", fmt.Errorf("payments: %w: secret key not configured", apperr.ErrDependency)
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")

	intent, err := resilience.Write(ctx, c.policy, func(ctx context.Context) (paymentIntent, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
		if err != nil {
			return paymentIntent{}, fmt.Errorf("payments: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return paymentIntent{}, transportError("payments", err)
		}
		defer resp.Body.Close()
		if err := statusError("payments", resp); err != nil {
			return paymentIntent{}, err
		}

		var out paymentIntent
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
			return paymentIntent{}, fmt.Errorf("payments: %w: decode response: %v", apperr.ErrDependency, err)
		}
		return out, nil
	})
	if err != nil {
		return "", err
	}
	if intent.ClientSecret == "" {
		return "", fmt.Errorf("payments: %w: response without client secret", apperr.ErrDependency)
	}
	return intent.ClientSecret, nil
}
