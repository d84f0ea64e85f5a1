package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// APIKeyHeader carries the tenant API key on business routes.
const APIKeyHeader = "X-API-Key"

// HashAPIKey is the lookup digest stored for a key. Keys are 256-bit random
// values, so an unsalted digest is enough for indexing.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(apiKey)))
	return hex.EncodeToString(sum[:])
}
