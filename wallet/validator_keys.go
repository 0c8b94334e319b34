package wallet

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/validator-provisioning/interfaces"
	"golang.org/x/crypto/hkdf"
)

// ValidatorKeysFileName is written into the workspace by WriteValidatorKeys.
const ValidatorKeysFileName = "key_store.json"

// Roles of the keys derived for a validator, in derivation order.
var validatorKeyRoles = []string{"consensus", "validator_network", "fullnode_network", "execution"}

// ValidatorKeys are the role keys a validator node needs, all derived from the wallet.
type ValidatorKeys map[string]*ecdsa.PrivateKey

// DeriveValidatorKeys expands the wallet key into one key per validator role.
// Derivation is deterministic: the same wallet and chain id always yield the same keys.
func DeriveValidatorKeys(w *Wallet, chainID uint64) (ValidatorKeys, error) {
	if w == nil {
		return nil, ErrNoWallet
	}

	salt := []byte(fmt.Sprintf("validator-keys/%d", chainID))
	keys := make(ValidatorKeys, len(validatorKeyRoles))
	for _, role := range validatorKeyRoles {
		reader := hkdf.New(sha256.New, crypto.FromECDSA(w.key), salt, []byte(role))
		seed := make([]byte, 32)
		if _, err := io.ReadFull(reader, seed); err != nil {
			return nil, fmt.Errorf("could not derive %s key: %w", role, err)
		}
		key, err := crypto.ToECDSA(seed)
		if err != nil {
			return nil, fmt.Errorf("derived %s key is invalid: %w", role, err)
		}
		keys[role] = key
	}
	return keys, nil
}

type storedKey struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

type keyStore struct {
	Owner interfaces.AccountAddress `json:"owner"`
	Keys  map[string]storedKey      `json:"keys"`
}

// WriteValidatorKeys persists keys to <home>/key_store.json. The file is
// written to a temporary name and renamed, so a failure never leaves a
// partial key store behind and an existing one is replaced whole.
func WriteValidatorKeys(home string, owner interfaces.AccountAddress, keys ValidatorKeys) (string, error) {
	store := keyStore{Owner: owner, Keys: make(map[string]storedKey, len(keys))}
	for role, key := range keys {
		store.Keys[role] = storedKey{
			PublicKey:  hex.EncodeToString(crypto.CompressPubkey(&key.PublicKey)),
			PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
		}
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not encode key store: %w", err)
	}

	path := filepath.Join(home, ValidatorKeysFileName)
	if err := os.MkdirAll(home, 0700); err != nil {
		return "", interfaces.NewError(interfaces.ErrFileSystem, home, err)
	}

	tmp, err := os.CreateTemp(home, ValidatorKeysFileName+".*")
	if err != nil {
		return "", interfaces.NewError(interfaces.ErrFileSystem, home, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", interfaces.NewError(interfaces.ErrFileSystem, tmp.Name(), err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return "", interfaces.NewError(interfaces.ErrFileSystem, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return "", interfaces.NewError(interfaces.ErrFileSystem, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	return path, nil
}
