package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/http/respond"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/models"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"https://app.example.com"}, okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS([]string{"*"}, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnlistedOrigin(t *testing.T) {
	h := CORS([]string{"https://app.example.com"}, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type stubResolver struct {
	client models.Client
	err    error
}

func (s stubResolver) ResolveAPIKey(_ context.Context, key string) (models.Client, error) {
	if s.err != nil {
		return models.Client{}, s.err
	}
	if key != "good-key" {
		return models.Client{}, apperr.ErrInvalidAPIKey
	}
	return s.client, nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) respond.Envelope {
	t.Helper()
	var env respond.Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestRequireAPIKey(t *testing.T) {
	resolver := stubResolver{client: models.Client{ID: "client-1"}}
	var seen string
	h := RequireAPIKey(resolver, logging.Discard(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, found := ClientFrom(r.Context())
		assert.True(t, found)
		seen = c.ID
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-API-Key", "good-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-1", seen)

	for _, key := range []string{"", "bad-key"} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid api key", decode(t, rec).Message)
	}
}

func TestRequireAPIKey_StorageDown(t *testing.T) {
	resolver := stubResolver{err: fmt.Errorf("lookup: %w: dial tcp refused", apperr.ErrDependency)}
	h := RequireAPIKey(resolver, logging.Discard(), okHandler)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-API-Key", "good-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (string, error) {
	if token == "good-token" {
		return "client-1", nil
	}
	return "", apperr.ErrTokenInvalid
}

func TestRequireBearer(t *testing.T) {
	var seen string
	h := RequireBearer(stubVerifier{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClientIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/client/api-key-full", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-1", seen)

	for _, header := range []string{"", "good-token", "Basic good-token", "Bearer ", "Bearer bad"} {
		req := httptest.NewRequest(http.MethodGet, "/client/api-key-full", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(logging.Discard(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode(t, rec).Message)
}

func TestLogging_PassesThrough(t *testing.T) {
	h := Logging(logging.Discard(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}
