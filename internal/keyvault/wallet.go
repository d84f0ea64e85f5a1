package keyvault

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath is the first external account of the Ethereum BIP-44 tree.
const DefaultDerivationPath = "m/44'/60'/0'/0/0"

const entropyBits = 128

// Wallet is a freshly minted keypair together with its recovery phrase.
// PrivateKey is the 32-byte secp256k1 scalar.
type Wallet struct {
	Address    string
	PrivateKey []byte
	Mnemonic   string
}

// Generator mints wallets from a random source.
type Generator struct {
	random io.Reader
	path   accounts.DerivationPath
}

// NewGenerator returns a Generator reading entropy from crypto/rand.
func NewGenerator() *Generator {
	return NewGeneratorWithReader(rand.Reader)
}

// NewGeneratorWithReader returns a Generator reading entropy from r.
func NewGeneratorWithReader(r io.Reader) *Generator {
	path, err := accounts.ParseDerivationPath(DefaultDerivationPath)
	if err != nil {
		panic(err)
	}
	return &Generator{random: r, path: path}
}

// GenerateWallet draws fresh entropy, encodes it as a 12-word mnemonic and
// derives the account key from it.
func (g *Generator) GenerateWallet() (Wallet, error) {
	entropy := make([]byte, entropyBits/8)
	if _, err := io.ReadFull(g.random, entropy); err != nil {
		return Wallet{}, fmt.Errorf("%w: %v", ErrEntropyFailure, err)
	}
	defer wipe(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return Wallet{}, fmt.Errorf("encode mnemonic: %w", err)
	}
	return g.RecoverWallet(mnemonic)
}

// RecoverWallet re-derives the wallet a mnemonic encodes.
func (g *Generator) RecoverWallet(mnemonic string) (Wallet, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return Wallet{}, fmt.Errorf("invalid mnemonic: %w", err)
	}
	defer wipe(seed)

	key, err := derive(seed, g.path)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: crypto.FromECDSA(key),
		Mnemonic:   mnemonic,
	}, nil
}

// derive walks a BIP-32 path from the master key of seed.
func derive(seed []byte, path accounts.DerivationPath) (*ecdsa.PrivateKey, error) {
	node, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidChild, err)
	}
	for _, index := range path {
		node, err = node.NewChildKey(index)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errInvalidChild, err)
		}
	}
	key, err := crypto.ToECDSA(common.LeftPadBytes(node.Key, 32))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidChild, err)
	}
	return key, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
