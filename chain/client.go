// Package chain is a JSON-RPC client for the node's query API, used by the
// monitor to build its chain, validator and account views.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/ruteri/validator-provisioning/monitor"
)

// ErrAccountNotFound is returned when the queried account does not exist on chain.
var ErrAccountNotFound = errors.New("account not found")

// Client queries a node over JSON-RPC.
type Client struct {
	rpc *rpc.Client
	url string
	log *slog.Logger
}

// Dial connects to the node at url (http, https or ws).
func Dial(ctx context.Context, url string, log *slog.Logger) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrNetwork, url, err)
	}
	return &Client{rpc: c, url: url, log: log}, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}

type metadata struct {
	Version        uint64 `json:"version"`
	ChainID        uint64 `json:"chain_id"`
	Epoch          uint64 `json:"epoch"`
	Waypoint       string `json:"waypoint"`
	TotalSupply    uint64 `json:"total_supply"`
	ValidatorCount uint64 `json:"validator_count"`
}

type balance struct {
	Amount   uint64 `json:"amount"`
	Currency string `json:"currency"`
}

type accountState struct {
	Address        string    `json:"address"`
	Balances       []balance `json:"balances"`
	SequenceNumber uint64    `json:"sequence_number"`
}

type validatorInfo struct {
	AccountAddress          string `json:"account_address"`
	VotingPower             uint64 `json:"voting_power"`
	FullnodeNetworkAddress  string `json:"fullnode_network_address"`
	ValidatorNetworkAddress string `json:"validator_network_address"`
	ProofsInEpoch           uint64 `json:"proofs_in_epoch"`
	TowerHeight             uint64 `json:"tower_height"`
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := c.rpc.CallContext(ctx, result, method, args...); err != nil {
		c.log.Debug("RPC call failed", slog.String("method", method), "err", err)
		return interfaces.NewError(interfaces.ErrNetwork, fmt.Sprintf("%s %s", c.url, method), err)
	}
	return nil
}

// ChainView reports the chain's current epoch, height and anchors.
func (c *Client) ChainView(ctx context.Context) (monitor.ChainView, error) {
	var md metadata
	if err := c.call(ctx, &md, "get_metadata"); err != nil {
		return monitor.ChainView{}, err
	}
	return monitor.ChainView{
		Epoch:          md.Epoch,
		Height:         md.Version,
		Waypoint:       md.Waypoint,
		ValidatorCount: md.ValidatorCount,
		TotalSupply:    md.TotalSupply,
		ChainID:        md.ChainID,
	}, nil
}

// SyncHeight is the ledger version the node has synced to.
func (c *Client) SyncHeight(ctx context.Context) (uint64, error) {
	var md metadata
	if err := c.call(ctx, &md, "get_metadata"); err != nil {
		return 0, err
	}
	return md.Version, nil
}

// Validators returns the current validator set.
func (c *Client) Validators(ctx context.Context) ([]monitor.ValidatorView, error) {
	var infos []validatorInfo
	if err := c.call(ctx, &infos, "get_validators"); err != nil {
		return nil, err
	}

	views := make([]monitor.ValidatorView, 0, len(infos))
	for _, info := range infos {
		views = append(views, monitor.ValidatorView{
			AccountAddress: info.AccountAddress,
			VotingPower:    info.VotingPower,
			FullnodeAddr:   info.FullnodeNetworkAddress,
			NetworkAddr:    info.ValidatorNetworkAddress,
			ProofsInEpoch:  info.ProofsInEpoch,
			TowerHeight:    info.TowerHeight,
		})
	}
	return views, nil
}

// Account returns the state of address. A null result means the account
// has not been created yet.
func (c *Client) Account(ctx context.Context, address interfaces.AccountAddress) (monitor.OwnerAccountView, error) {
	var state *accountState
	if err := c.call(ctx, &state, "get_account_state", address.String()); err != nil {
		return monitor.OwnerAccountView{}, err
	}
	if state == nil {
		return monitor.OwnerAccountView{}, interfaces.NewError(interfaces.ErrValidation, address.String(), ErrAccountNotFound)
	}

	view := monitor.OwnerAccountView{
		Address:        address.String(),
		SequenceNumber: state.SequenceNumber,
	}
	for _, b := range state.Balances {
		view.Balance += b.Amount
	}
	return view, nil
}
