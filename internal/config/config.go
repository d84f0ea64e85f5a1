package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

const minSecretLength = 32

// Config holds runtime configuration sourced from env vars. It is built once
// at startup and passed by value; nothing reads the environment afterwards.
type Config struct {
	Port        string
	CORSOrigins []string

	StorageDriver string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string

	EncryptionSecret  string
	EncryptionKeyID   string
	PreviousSecrets   map[string]string
	JWTSecret         string
	JWTIssuer         string
	JWTTTL            time.Duration
	BcryptCost        int
	WorkerPoolSize    int
	DependencyTimeout time.Duration

	Moralis  MoralisConfig
	S3       S3Config
	Payments PaymentsConfig

	LogLevel  string
	LogFormat string
}

// MoralisConfig configures the NFT indexer collaborator.
type MoralisConfig struct {
	APIKey  string
	BaseURL string
}

// S3Config configures the content store. An empty bucket disables uploads.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// PaymentsConfig configures the payment-intent collaborator.
type PaymentsConfig struct {
	SecretKey string
	BaseURL   string
	Currency  string
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		Port:              fallback(os.Getenv("PORT"), "8080"),
		CORSOrigins:       parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		StorageDriver:     strings.ToLower(fallback(os.Getenv("STORAGE_DRIVER"), DriverPostgres)),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		MongoURI:          strings.TrimSpace(os.Getenv("MONGODB_URI")),
		MongoDatabase:     fallback(os.Getenv("MONGODB_DATABASE"), "custody"),
		EncryptionSecret:  strings.TrimSpace(os.Getenv("ENCRYPTION_SECRET")),
		EncryptionKeyID:   fallback(os.Getenv("ENCRYPTION_KEY_ID"), "k1"),
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:         fallback(os.Getenv("JWT_ISSUER"), "custody-backend"),
		JWTTTL:            time.Duration(positiveInt(os.Getenv("JWT_TTL_MINUTES"), 30*24*60)) * time.Minute,
		BcryptCost:        positiveInt(os.Getenv("BCRYPT_COST"), 10),
		WorkerPoolSize:    positiveInt(os.Getenv("WORKER_POOL_SIZE"), runtime.GOMAXPROCS(0)),
		DependencyTimeout: time.Duration(positiveInt(os.Getenv("DEPENDENCY_TIMEOUT_SECONDS"), 10)) * time.Second,
		Moralis: MoralisConfig{
			APIKey:  strings.TrimSpace(os.Getenv("MORALIS_API_KEY")),
			BaseURL: fallback(os.Getenv("MORALIS_BASE_URL"), "https://deep-index.moralis.io/api/v2.2"),
		},
		S3: S3Config{
			Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
			Region:    fallback(os.Getenv("S3_REGION"), "us-east-1"),
			Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		},
		Payments: PaymentsConfig{
			SecretKey: strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
			BaseURL:   fallback(os.Getenv("STRIPE_BASE_URL"), "https://api.stripe.com"),
			Currency:  strings.ToLower(fallback(os.Getenv("CHECKOUT_CURRENCY"), "usd")),
		},
		LogLevel:  fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat: fallback(os.Getenv("LOG_FORMAT"), "json"),
	}

	previous, err := parseSecrets(os.Getenv("ENCRYPTION_PREVIOUS_SECRETS"))
	if err != nil {
		return Config{}, err
	}
	cfg.PreviousSecrets = previous

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of %s, %s, %s", DriverPostgres, DriverMongo, DriverMemory)
	}
	if c.EncryptionSecret == "" {
		return errors.New("ENCRYPTION_SECRET is required")
	}
	if len(c.EncryptionSecret) < minSecretLength {
		return fmt.Errorf("ENCRYPTION_SECRET must be at least %d characters", minSecretLength)
	}
	if _, clash := c.PreviousSecrets[c.EncryptionKeyID]; clash {
		return errors.New("ENCRYPTION_PREVIOUS_SECRETS must not reuse ENCRYPTION_KEY_ID")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func positiveInt(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// parseSecrets reads "id:secret,id:secret" pairs of retired vault secrets.
func parseSecrets(input string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range parseCSV(input) {
		if pair == "*" {
			continue
		}
		id, secret, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(id) == "" || strings.TrimSpace(secret) == "" {
			return nil, errors.New("ENCRYPTION_PREVIOUS_SECRETS must be id:secret pairs")
		}
		out[strings.TrimSpace(id)] = strings.TrimSpace(secret)
	}
	return out, nil
}
