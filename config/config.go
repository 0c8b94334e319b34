// Package config reads and writes the node/miner configuration file (0L.toml)
// that the provisioning wizard produces and the monitor consumes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/ruteri/validator-provisioning/interfaces"
)

const (
	// FileName is the configuration file written into every workspace.
	FileName = "0L.toml"

	// DefaultPath is where the monitor looks for its base configuration.
	DefaultPath = "/root/.0L/0L.toml"

	defaultMaxGas       = 1_000_000
	defaultCoinPrice    = 1
	defaultTxTimeoutSec = 5_000
)

// NodeConfig is the node/miner configuration progressively filled by the
// provisioning pipeline.
type NodeConfig struct {
	Profile   Profile   `toml:"profile" json:"profile"`
	ChainInfo ChainInfo `toml:"chain_info" json:"chain_info"`
	Workspace Workspace `toml:"workspace" json:"workspace"`
	TxConfigs TxConfigs `toml:"tx_configs" json:"tx_configs"`
}

// Profile identifies the operator's account.
type Profile struct {
	AuthKey   interfaces.AuthKey        `toml:"auth_key" json:"auth_key"`
	Account   interfaces.AccountAddress `toml:"account" json:"account"`
	Statement string                    `toml:"statement,omitempty" json:"statement,omitempty"`
	IP        string                    `toml:"ip,omitempty" json:"ip,omitempty"`
}

// ChainInfo anchors the node to a chain. BaseEpoch and BaseWaypoint are only
// set when a template was resolved.
type ChainInfo struct {
	ChainID      uint64               `toml:"chain_id" json:"chain_id"`
	BaseEpoch    *uint64              `toml:"base_epoch,omitempty" json:"base_epoch,omitempty"`
	BaseWaypoint *interfaces.Waypoint `toml:"base_waypoint,omitempty" json:"base_waypoint,omitempty"`
}

// Workspace locates the node's files.
type Workspace struct {
	NodeHome string `toml:"node_home" json:"node_home"`
	BlockDir string `toml:"block_dir" json:"block_dir"`
	DBPath   string `toml:"db_path" json:"db_path"`
}

// TxConfigs holds the parameters used to build and sign transactions.
type TxConfigs struct {
	MaxGasUnitForTx  uint64 `toml:"max_gas_unit_for_tx" json:"max_gas_unit_for_tx"`
	CoinPricePerUnit uint64 `toml:"coin_price_per_unit" json:"coin_price_per_unit"`
	UserTxTimeout    uint64 `toml:"user_tx_timeout" json:"user_tx_timeout"`
	SequenceNumber   uint64 `toml:"sequence_number" json:"sequence_number"`
	AutopayContract  string `toml:"autopay_contract,omitempty" json:"autopay_contract,omitempty"`
}

// DefaultAutopayContract is the well-known address of the autopay module.
const DefaultAutopayContract = "0x0000000000000000000000000000000000000001"

// New derives a configuration anchored at nodeHome for the given identity.
func New(authKey interfaces.AuthKey, account interfaces.AccountAddress, nodeHome string, chainID uint64) *NodeConfig {
	return &NodeConfig{
		Profile: Profile{
			AuthKey: authKey,
			Account: account,
		},
		ChainInfo: ChainInfo{
			ChainID: chainID,
		},
		Workspace: Workspace{
			NodeHome: nodeHome,
			BlockDir: "blocks",
			DBPath:   "db",
		},
		TxConfigs: TxConfigs{
			MaxGasUnitForTx:  defaultMaxGas,
			CoinPricePerUnit: defaultCoinPrice,
			UserTxTimeout:    defaultTxTimeoutSec,
			AutopayContract:  DefaultAutopayContract,
		},
	}
}

// Clone returns a deep copy; pointer fields are duplicated.
func (c *NodeConfig) Clone() *NodeConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.ChainInfo.BaseEpoch != nil {
		epoch := *c.ChainInfo.BaseEpoch
		clone.ChainInfo.BaseEpoch = &epoch
	}
	if c.ChainInfo.BaseWaypoint != nil {
		wp := *c.ChainInfo.BaseWaypoint
		clone.ChainInfo.BaseWaypoint = &wp
	}
	return &clone
}

// BlockDirPath returns the absolute directory holding mined proofs.
func (c *NodeConfig) BlockDirPath() string {
	return c.resolve(c.Workspace.BlockDir)
}

// DBDirPath returns the absolute node database directory.
func (c *NodeConfig) DBDirPath() string {
	return c.resolve(c.Workspace.DBPath)
}

func (c *NodeConfig) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Workspace.NodeHome, p)
}

// Save writes the configuration to <node_home>/0L.toml, overwriting any
// existing file.
func (c *NodeConfig) Save() (string, error) {
	if err := os.MkdirAll(c.Workspace.NodeHome, 0755); err != nil {
		return "", interfaces.NewError(interfaces.ErrFileSystem, c.Workspace.NodeHome, err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", interfaces.NewError(interfaces.ErrConfig, FileName, err)
	}

	path := filepath.Join(c.Workspace.NodeHome, FileName)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	return path, nil
}

// Load reads a configuration file. Any failure is a ConfigError.
func Load(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrConfig, path, fmt.Errorf("could not open file: %w", err))
	}

	var cfg NodeConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, interfaces.NewError(interfaces.ErrConfig, path, fmt.Errorf("could not parse file: %w", err))
	}

	if cfg.Workspace.NodeHome == "" {
		return nil, interfaces.NewError(interfaces.ErrConfig, path, errors.New("workspace.node_home is required"))
	}
	return &cfg, nil
}
