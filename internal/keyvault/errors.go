// Package keyvault mints custodial wallets and seals their secret material
// under a server-held key. Everything here is stateless after construction
// and safe for concurrent use.
package keyvault

import (
	"errors"
	"fmt"

	"github.com/hongminglow/custody-be/internal/apperr"
)

var (
	// ErrEntropyFailure means the random source could not supply bytes.
	ErrEntropyFailure = fmt.Errorf("keyvault: entropy unavailable: %w", apperr.ErrInternal)
	// ErrDecryptionFailure covers malformed envelopes, unknown key ids and
	// authentication failures alike.
	ErrDecryptionFailure = fmt.Errorf("keyvault: decryption failed: %w", apperr.ErrInternal)

	errInvalidChild = errors.New("keyvault: derived key out of range")
)
