package keyvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	envelopeVersion = "v1"
	envelopeScheme  = "aes256gcm"
	saltSize        = 16
	nonceSize       = 12
	keySize         = 32
	hkdfInfo        = "custody-be vault v1"
)

var b64 = base64.RawURLEncoding

// Vault seals and opens secret material. The envelope it produces is
//
//	v1.aes256gcm.<keyID>.<salt>.<nonce>.<ciphertext>
//
// where each binary part is unpadded base64url. A per-message salt feeds
// HKDF-SHA256 over the secret named by keyID; the header is bound to the
// ciphertext as additional data.
type Vault struct {
	activeID string
	secrets  map[string][]byte
	random   io.Reader
}

// NewVault returns a Vault encrypting under (activeID, secret). retired holds
// older secrets by id; they are used for decryption only.
func NewVault(activeID, secret string, retired map[string]string) (*Vault, error) {
	return NewVaultWithReader(activeID, secret, retired, rand.Reader)
}

// NewVaultWithReader is NewVault with an explicit source for salts and nonces.
func NewVaultWithReader(activeID, secret string, retired map[string]string, r io.Reader) (*Vault, error) {
	if err := validKeyID(activeID); err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, errors.New("keyvault: empty secret")
	}
	secrets := map[string][]byte{activeID: []byte(secret)}
	for id, s := range retired {
		if err := validKeyID(id); err != nil {
			return nil, err
		}
		if id == activeID {
			return nil, fmt.Errorf("keyvault: retired key id %q is active", id)
		}
		secrets[id] = []byte(s)
	}
	return &Vault{activeID: activeID, secrets: secrets, random: r}, nil
}

func validKeyID(id string) error {
	if id == "" || strings.ContainsAny(id, ". ") {
		return fmt.Errorf("keyvault: invalid key id %q", id)
	}
	return nil
}

// ActiveKeyID reports the id new envelopes are sealed under.
func (v *Vault) ActiveKeyID() string { return v.activeID }

// Encrypt seals plaintext under the active secret.
func (v *Vault) Encrypt(plaintext []byte) (string, error) {
	buf := make([]byte, saltSize+nonceSize)
	if _, err := io.ReadFull(v.random, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyFailure, err)
	}
	salt, nonce := buf[:saltSize], buf[saltSize:]

	aead, err := v.aead(v.secrets[v.activeID], salt)
	if err != nil {
		return "", err
	}
	header := envelopeVersion + "." + envelopeScheme + "." + v.activeID
	sealed := aead.Seal(nil, nonce, plaintext, []byte(header))

	return strings.Join([]string{header, b64.EncodeToString(salt), b64.EncodeToString(nonce), b64.EncodeToString(sealed)}, "."), nil
}

// Decrypt opens an envelope produced by Encrypt. Any failure yields
// ErrDecryptionFailure and a nil plaintext.
func (v *Vault) Decrypt(envelope string) ([]byte, error) {
	parts := strings.Split(envelope, ".")
	if len(parts) != 6 || parts[0] != envelopeVersion || parts[1] != envelopeScheme {
		return nil, ErrDecryptionFailure
	}
	secret, ok := v.secrets[parts[2]]
	if !ok {
		return nil, ErrDecryptionFailure
	}
	salt, err1 := b64.DecodeString(parts[3])
	nonce, err2 := b64.DecodeString(parts[4])
	sealed, err3 := b64.DecodeString(parts[5])
	if err1 != nil || err2 != nil || err3 != nil || len(salt) != saltSize || len(nonce) != nonceSize {
		return nil, ErrDecryptionFailure
	}

	aead, err := v.aead(secret, salt)
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	header := strings.Join(parts[:3], ".")
	plaintext, err := aead.Open(nil, nonce, sealed, []byte(header))
	if err != nil {
		return nil, ErrDecryptionFailure
	}
	return plaintext, nil
}

// NeedsRotation reports whether envelope was sealed under a key other than
// the active one.
func (v *Vault) NeedsRotation(envelope string) bool {
	parts := strings.SplitN(envelope, ".", 4)
	return len(parts) < 3 || parts[2] != v.activeID
}

// Rotate re-seals envelope under the active key.
func (v *Vault) Rotate(envelope string) (string, error) {
	plaintext, err := v.Decrypt(envelope)
	if err != nil {
		return "", err
	}
	defer wipe(plaintext)
	return v.Encrypt(plaintext)
}

func (v *Vault) aead(secret, salt []byte) (cipher.AEAD, error) {
	key := make([]byte, keySize)
	defer wipe(key)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
