package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hongminglow/custody-be/internal/account"
	"github.com/hongminglow/custody-be/internal/auth"
	"github.com/hongminglow/custody-be/internal/cart"
	"github.com/hongminglow/custody-be/internal/config"
	"github.com/hongminglow/custody-be/internal/external"
	"github.com/hongminglow/custody-be/internal/http/handlers"
	"github.com/hongminglow/custody-be/internal/keyvault"
	"github.com/hongminglow/custody-be/internal/logging"
	"github.com/hongminglow/custody-be/internal/middleware"
	"github.com/hongminglow/custody-be/internal/resilience"
	"github.com/hongminglow/custody-be/internal/storage"
	"github.com/hongminglow/custody-be/internal/tenant"
	"github.com/hongminglow/custody-be/internal/workpool"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires services, middleware and routes over store and returns a ready
// server. store should already be bounded by storage.NewBounded.
func New(ctx context.Context, cfg config.Config, store storage.Store, log logging.Logger) (*Server, error) {
	handler, err := NewHandler(ctx, cfg, store, log)
	if err != nil {
		return nil, err
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3*cfg.DependencyTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}, nil
}

// NewHandler builds the full HTTP handler tree.
func NewHandler(ctx context.Context, cfg config.Config, store storage.Store, log logging.Logger) (http.Handler, error) {
	vault, err := keyvault.NewVault(cfg.EncryptionKeyID, cfg.EncryptionSecret, cfg.PreviousSecrets)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}
	pool := workpool.New(cfg.WorkerPoolSize)
	hasher, err := auth.NewPasswordHasher(cfg.BcryptCost, pool)
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	authService := auth.NewService(store, store, hasher, nil, log.With("component", "auth"))

	policy := resilience.Policy{Timeout: cfg.DependencyTimeout}
	httpClient := &http.Client{}
	nfts := external.NewMoralisClient(cfg.Moralis.BaseURL, cfg.Moralis.APIKey, httpClient, policy)
	payments := external.NewStripeClient(cfg.Payments.BaseURL, cfg.Payments.SecretKey, httpClient, policy)
	var content external.ContentStore = external.Unconfigured{}
	if cfg.S3.Bucket != "" {
		s3Store, err := external.NewS3ContentStore(ctx, external.S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		}, policy)
		if err != nil {
			return nil, fmt.Errorf("init content store: %w", err)
		}
		content = s3Store
	}

	apiKey := func(next http.Handler) http.Handler { return middleware.RequireAPIKey(authService, log, next) }
	bearer := func(next http.Handler) http.Handler { return middleware.RequireBearer(tokens, next) }

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), store, log).Register(mux)
	handlers.NewTenantHandler(
		tenant.NewRegistry(store, vault, tokens, log.With("component", "tenant")), log,
	).Register(mux, bearer)
	handlers.NewAuthHandler(
		account.NewService(store, hasher, keyvault.NewGenerator(), vault, pool, log.With("component", "account")),
		authService, log,
	).Register(mux, apiKey)
	handlers.NewCartHandler(
		cart.NewLedger(store, payments, cfg.Payments.Currency, log.With("component", "cart")), log,
	).Register(mux, apiKey)
	handlers.NewMediaHandler(nfts, content, log).Register(mux, apiKey)

	return middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, middleware.Recover(log, mux))), nil
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
