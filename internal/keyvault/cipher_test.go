package keyvault

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secretA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	secretB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func newVault(t *testing.T, id, secret string, retired map[string]string) *Vault {
	t.Helper()
	v, err := NewVault(id, secret, retired)
	require.NoError(t, err)
	return v
}

func TestVault_RoundTripGeneratedKey(t *testing.T) {
	v := newVault(t, "k1", secretA, nil)
	w, err := NewGenerator().GenerateWallet()
	require.NoError(t, err)

	env, err := v.Encrypt(w.PrivateKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(env, "v1.aes256gcm.k1."))
	assert.NotContains(t, env, string(w.PrivateKey))

	got, err := v.Decrypt(env)
	require.NoError(t, err)
	assert.Equal(t, w.PrivateKey, got)
}

func TestVault_FreshNoncePerMessage(t *testing.T) {
	v := newVault(t, "k1", secretA, nil)
	a, err := v.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := v.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVault_WrongSecretFails(t *testing.T) {
	env, err := newVault(t, "k1", secretA, nil).Encrypt([]byte("private"))
	require.NoError(t, err)

	got, err := newVault(t, "k1", secretB, nil).Decrypt(env)
	require.ErrorIs(t, err, ErrDecryptionFailure)
	assert.Nil(t, got)
}

func TestVault_TamperedEnvelopeFails(t *testing.T) {
	v := newVault(t, "k1", secretA, nil)
	env, err := v.Encrypt([]byte("private"))
	require.NoError(t, err)

	parts := strings.Split(env, ".")
	tampered := []string{
		strings.Join(append(append([]string{}, parts[:5]...), flip(parts[5])), "."),
		strings.Join(append(append([]string{}, parts[:4]...), flip(parts[4]), parts[5]), "."),
		strings.Replace(env, "v1.", "v2.", 1),
		strings.Replace(env, ".k1.", ".k9.", 1),
		"garbage",
		"",
	}
	for _, env := range tampered {
		got, err := v.Decrypt(env)
		assert.ErrorIs(t, err, ErrDecryptionFailure, env)
		assert.Nil(t, got)
	}
}

func TestVault_RotationKeepsOldEnvelopesReadable(t *testing.T) {
	old := newVault(t, "k1", secretA, nil)
	env, err := old.Encrypt([]byte("mnemonic words"))
	require.NoError(t, err)

	current := newVault(t, "k2", secretB, map[string]string{"k1": secretA})
	assert.True(t, current.NeedsRotation(env))

	got, err := current.Decrypt(env)
	require.NoError(t, err)
	assert.Equal(t, "mnemonic words", string(got))

	rotated, err := current.Rotate(env)
	require.NoError(t, err)
	assert.False(t, current.NeedsRotation(rotated))
	assert.Equal(t, "k2", current.ActiveKeyID())
}

func TestVault_EntropyFailure(t *testing.T) {
	v, err := NewVaultWithReader("k1", secretA, nil, failingReader{})
	require.NoError(t, err)
	_, err = v.Encrypt([]byte("x"))
	require.ErrorIs(t, err, ErrEntropyFailure)
}

func TestNewVault_RejectsBadKeyIDs(t *testing.T) {
	_, err := NewVault("", secretA, nil)
	require.Error(t, err)
	_, err = NewVault("a.b", secretA, nil)
	require.Error(t, err)
	_, err = NewVault("k1", secretA, map[string]string{"k1": secretB})
	require.Error(t, err)
	_, err = NewVault("k1", "", nil)
	require.Error(t, err)
}

func TestVault_ConcurrentUse(t *testing.T) {
	v := newVault(t, "k1", secretA, nil)
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env, err := v.Encrypt([]byte("payload"))
			if err != nil {
				errs <- err
				return
			}
			if _, err := v.Decrypt(env); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

// flip changes the first character of a base64url segment.
func flip(s string) string {
	if s[0] == 'A' {
		return "B" + s[1:]
	}
	return "A" + s[1:]
}
