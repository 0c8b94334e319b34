// Package wallet owns account key material: the secp256k1 key behind an
// account's auth key, and the validator keys derived from it.
package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/validator-provisioning/interfaces"
)

// KeyFileName is the default wallet key file inside a workspace.
const KeyFileName = "wallet.key"

// authKeyScheme is appended to the public key before hashing into an auth key.
const authKeyScheme byte = 0x00

// Wallet holds an account's private key. The pipeline session is its only owner.
type Wallet struct {
	key *ecdsa.PrivateKey
}

// Reference is the public description of a wallet recorded in manifests.
type Reference struct {
	Account   interfaces.AccountAddress `json:"account"`
	AuthKey   interfaces.AuthKey        `json:"auth_key"`
	PublicKey string                    `json:"public_key"`
	Address   common.Address            `json:"address"`
}

// Generate creates a wallet with a fresh random key.
func Generate() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// FromPrivateKey wraps an existing key.
func FromPrivateKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{key: key}
}

// FromHex parses a hex-encoded private key.
func FromHex(s string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Wallet{key: key}, nil
}

// Load reads a wallet key file written by Save.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	w, err := FromHex(string(data))
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrValidation, path, err)
	}
	return w, nil
}

// Save writes the private key hex-encoded to path with owner-only permissions.
func (w *Wallet) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	encoded := hex.EncodeToString(crypto.FromECDSA(w.key))
	if err := os.WriteFile(path, []byte(encoded), 0600); err != nil {
		return interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	return nil
}

// PrivateKey exposes the signing key.
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.key
}

// AuthKey hashes the uncompressed public key with the signature scheme byte.
func (w *Wallet) AuthKey() interfaces.AuthKey {
	pub := crypto.FromECDSAPub(&w.key.PublicKey)
	return interfaces.AuthKey(crypto.Keccak256Hash(pub[1:], []byte{authKeyScheme}))
}

// Account returns the on-chain account address.
func (w *Wallet) Account() interfaces.AccountAddress {
	return w.AuthKey().Account()
}

// Address returns the transaction sender address for this key.
func (w *Wallet) Address() common.Address {
	return crypto.PubkeyToAddress(w.key.PublicKey)
}

// PublicKeyHex returns the compressed public key, hex-encoded.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(crypto.CompressPubkey(&w.key.PublicKey))
}

// Reference returns the wallet's public description.
func (w *Wallet) Reference() Reference {
	return Reference{
		Account:   w.Account(),
		AuthKey:   w.AuthKey(),
		PublicKey: w.PublicKeyHex(),
		Address:   w.Address(),
	}
}

// ErrNoWallet is returned when an operation needs key material that was never loaded.
var ErrNoWallet = errors.New("no wallet available")
