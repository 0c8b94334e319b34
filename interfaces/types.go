package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AuthKey is the 32-byte authentication key derived from an account's public key.
type AuthKey [32]byte

// NewAuthKeyFromHex parses a hex-encoded auth key, with or without 0x prefix.
func NewAuthKeyFromHex(s string) (AuthKey, error) {
	clean := strings.TrimPrefix(s, "0x")
	if len(clean) != 64 {
		return AuthKey{}, errors.New("invalid auth key length: hex string must be 64 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return AuthKey{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var key AuthKey
	copy(key[:], raw)
	return key, nil
}

// String returns the hex representation without prefix.
func (k AuthKey) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether the key is unset.
func (k AuthKey) IsZero() bool {
	return k == AuthKey{}
}

// Account returns the account address derived from the auth key: its last 16 bytes.
func (k AuthKey) Account() AccountAddress {
	var addr AccountAddress
	copy(addr[:], k[16:])
	return addr
}

// MarshalText implements encoding.TextMarshaler.
func (k AuthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AuthKey) UnmarshalText(text []byte) error {
	parsed, err := NewAuthKeyFromHex(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// AccountAddress identifies an on-chain account.
type AccountAddress [16]byte

// NewAccountAddressFromHex parses a hex-encoded account address.
func NewAccountAddressFromHex(s string) (AccountAddress, error) {
	clean := strings.TrimPrefix(s, "0x")
	if len(clean) != 32 {
		return AccountAddress{}, errors.New("invalid account length: hex string must be 32 characters")
	}

	raw, err := hex.DecodeString(clean)
	if err != nil {
		return AccountAddress{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var addr AccountAddress
	copy(addr[:], raw)
	return addr, nil
}

// String returns the hex representation without prefix.
func (a AccountAddress) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is unset.
func (a AccountAddress) IsZero() bool {
	return a == AccountAddress{}
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountAddress) UnmarshalText(text []byte) error {
	parsed, err := NewAccountAddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Waypoint anchors a node's trust root at a ledger version.
// Its text form is "<version>:<hash hex>".
type Waypoint struct {
	Version uint64
	Value   common.Hash
}

// ParseWaypoint parses the "<version>:<hash hex>" text form.
func ParseWaypoint(s string) (Waypoint, error) {
	versionStr, hashStr, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return Waypoint{}, fmt.Errorf("invalid waypoint %q: expected <version>:<hash>", s)
	}

	version, err := strconv.ParseUint(versionStr, 10, 64)
	if err != nil {
		return Waypoint{}, fmt.Errorf("invalid waypoint version %q: %w", versionStr, err)
	}

	hashStr = strings.TrimPrefix(hashStr, "0x")
	if len(hashStr) != 64 {
		return Waypoint{}, fmt.Errorf("invalid waypoint hash %q: must be 64 hex characters", hashStr)
	}
	raw, err := hex.DecodeString(hashStr)
	if err != nil {
		return Waypoint{}, fmt.Errorf("invalid waypoint hash %q: %w", hashStr, err)
	}

	return Waypoint{Version: version, Value: common.BytesToHash(raw)}, nil
}

// String returns the canonical text form.
func (w Waypoint) String() string {
	return fmt.Sprintf("%d:%s", w.Version, hex.EncodeToString(w.Value[:]))
}

// MarshalText implements encoding.TextMarshaler.
func (w Waypoint) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Waypoint) UnmarshalText(text []byte) error {
	parsed, err := ParseWaypoint(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
