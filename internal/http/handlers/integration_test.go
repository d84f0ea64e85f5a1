package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/custody-be/internal/storage"
	"github.com/hongminglow/custody-be/internal/storage/postgres"
)

// TestAPIIntegration runs onboarding, wallet creation and login against a live
// Postgres database.
func TestAPIIntegration(t *testing.T) {
	if os.Getenv("RUN_API_INTEGRATION") != "true" {
		t.Skip("set RUN_API_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pg, err := postgres.NewStore(ctx, dbURL)
	require.NoError(t, err, "init store")
	t.Cleanup(pg.Close)

	api := newTestAPIWithStore(t, storage.NewBounded(pg, 10*time.Second))
	_, apiKey := api.onboard(t, fmt.Sprintf("itest-%d", time.Now().UnixNano()))

	creds := map[string]string{
		"email":    fmt.Sprintf("itest_%d@example.com", time.Now().UnixNano()),
		"password": fmt.Sprintf("Pass!%d", time.Now().UnixNano()),
	}
	status, env := api.do(t, http.MethodPost, "/create-wallet", keyHeader(apiKey), creds)
	require.Equal(t, http.StatusCreated, status, env.Message)
	var created struct {
		WalletAddress string `json:"walletAddress"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	status, env = api.do(t, http.MethodPost, "/login", keyHeader(apiKey), creds)
	require.Equal(t, http.StatusOK, status, env.Message)
	var login struct {
		WalletAddress string `json:"walletAddress"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, created.WalletAddress, login.WalletAddress)

	t.Logf("created wallet %s and logged in via /login", created.WalletAddress)
}

// loadDotEnv walks up from the package directory looking for a .env file.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			_ = godotenv.Load(candidate)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
