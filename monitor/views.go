// Package monitor keeps a periodically refreshed snapshot of node, chain,
// validator and account health. A single Refresher writes the snapshot; any
// number of readers load it without blocking.
package monitor

import "time"

// Items are the health check results.
type Items struct {
	ConfigsExist   bool   `json:"configs_exist"`
	DBRestored     bool   `json:"db_restored"`
	NodeRunning    bool   `json:"node_running"`
	IsSynced       bool   `json:"is_synced"`
	SyncHeight     uint64 `json:"sync_height"`
	SyncDelay      uint64 `json:"sync_delay"`
	AccountOnChain bool   `json:"account_on_chain"`
	InValidatorSet bool   `json:"in_validator_set"`
	MinerProofs    uint64 `json:"miner_proofs"`
}

// ChainView summarizes chain state.
type ChainView struct {
	Epoch          uint64 `json:"epoch"`
	Height         uint64 `json:"height"`
	Waypoint       string `json:"waypoint"`
	ValidatorCount uint64 `json:"validator_count"`
	TotalSupply    uint64 `json:"total_supply"`
	ChainID        uint64 `json:"chain_id"`
}

// ValidatorView describes a member of the validator set.
type ValidatorView struct {
	AccountAddress string `json:"account_address"`
	VotingPower    uint64 `json:"voting_power"`
	FullnodeAddr   string `json:"fullnode_network_address"`
	NetworkAddr    string `json:"validator_network_address"`
	ProofsInEpoch  uint64 `json:"proofs_in_epoch"`
	TowerHeight    uint64 `json:"tower_height"`
}

// OwnerAccountView is the node operator's account.
type OwnerAccountView struct {
	Address        string `json:"address"`
	Balance        uint64 `json:"balance"`
	IsInSet        bool   `json:"is_in_validator_set"`
	SequenceNumber uint64 `json:"sequence_number"`
}

// Snapshot is one refresh cycle's worth of state. Snapshots are immutable
// once stored.
type Snapshot struct {
	Items       Items            `json:"items"`
	Chain       ChainView        `json:"chain"`
	Validators  []ValidatorView  `json:"validators"`
	Account     OwnerAccountView `json:"account"`
	RefreshedAt time.Time        `json:"refreshed_at"`
}

// DefaultSnapshot is served until the first refresh completes.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{Validators: []ValidatorView{}}
}

// Epoch is the body of /epoch.json.
type Epoch struct {
	Epoch    uint64 `json:"epoch"`
	Waypoint string `json:"waypoint"`
}

func (s *Snapshot) Epoch() Epoch {
	return Epoch{Epoch: s.Chain.Epoch, Waypoint: s.Chain.Waypoint}
}
