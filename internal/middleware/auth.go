package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/auth"
	"github.com/hongminglow/custody-be/internal/http/respond"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
)

type ctxKey int

const (
	clientKey ctxKey = iota
	clientIDKey
)

// APIKeyResolver maps a raw API key to its client.
type APIKeyResolver interface {
	ResolveAPIKey(ctx context.Context, apiKey string) (models.Client, error)
}

// TokenVerifier maps a session token to its client id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAPIKey admits requests carrying a valid X-API-Key and stores the
// resolved client in the request context.
func RequireAPIKey(resolver APIKeyResolver, log logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, err := resolver.ResolveAPIKey(r.Context(), r.Header.Get(auth.APIKeyHeader))
		if err != nil {
			if apperr.Status(err) >= 500 {
				log.Error(r.Context(), "api key lookup failed", "error", err)
			}
			respond.Error(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), clientKey, client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireBearer admits requests carrying a valid session token and stores
// its client id in the request context.
func RequireBearer(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			respond.Error(w, apperr.ErrTokenInvalid)
			return
		}
		clientID, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			respond.Error(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), clientIDKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientFrom returns the client RequireAPIKey resolved.
func ClientFrom(ctx context.Context) (models.Client, bool) {
	c, ok := ctx.Value(clientKey).(models.Client)
	return c, ok
}

// ClientIDFrom returns the client id RequireBearer verified.
func ClientIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey).(string)
	return id, ok
}
