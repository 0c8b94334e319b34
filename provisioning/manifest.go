package provisioning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ruteri/validator-provisioning/autopay"
	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/ruteri/validator-provisioning/miner"
	"github.com/ruteri/validator-provisioning/wallet"
)

// ManifestFileName is the default manifest name inside the target path.
const ManifestFileName = "account.json"

// Manifest summarizes a provisioning run. It is created once by the final
// stage and never changed afterwards.
type Manifest struct {
	Wallet        wallet.Reference      `json:"wallet"`
	NodeConfig    *config.NodeConfig    `json:"node_config,omitempty"`
	AutopayBatch  []autopay.Instruction `json:"autopay_batch,omitempty"`
	AutopaySigned []string              `json:"autopay_signed,omitempty"`
	BlockZero     *miner.Block          `json:"block_zero,omitempty"`
}

// NewManifest snapshots a session.
func NewManifest(s Session) (*Manifest, error) {
	if s.Wallet == nil {
		return nil, interfaces.NewError(interfaces.ErrSigning, "wallet", wallet.ErrNoWallet)
	}

	m := &Manifest{
		Wallet:     s.Wallet.Reference(),
		NodeConfig: s.Config.Clone(),
		BlockZero:  s.BlockZero,
	}

	if s.Autopay != nil {
		signed, err := autopay.EncodeSigned(s.Autopay.Signed)
		if err != nil {
			return nil, err
		}
		m.AutopayBatch = s.Autopay.Instructions
		m.AutopaySigned = signed
	}
	return m, nil
}

// Write stores the manifest at path, replacing any existing file.
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	return nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, interfaces.NewError(interfaces.ErrValidation, path, err)
	}
	return &m, nil
}
