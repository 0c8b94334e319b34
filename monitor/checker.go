package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/interfaces"
)

// ChainReader is the RPC surface the checker needs.
type ChainReader interface {
	ChainView(ctx context.Context) (ChainView, error)
	Validators(ctx context.Context) ([]ValidatorView, error)
	Account(ctx context.Context, address interfaces.AccountAddress) (OwnerAccountView, error)
	SyncHeight(ctx context.Context) (uint64, error)
}

// Checker computes a snapshot. A returned error reports failed probes; the
// snapshot is still usable and reflects the failures in its fields.
type Checker interface {
	Check(ctx context.Context) (Snapshot, error)
}

// DefaultSyncTolerance is how many versions a node may trail the chain and
// still count as synced.
const DefaultSyncTolerance = 1000

// NodeChecker evaluates the local node described by cfg. Node is the local
// node's RPC; Upstream, when set, is a trusted peer used as the sync reference.
type NodeChecker struct {
	Config        *config.NodeConfig
	Node          ChainReader
	Upstream      ChainReader
	SyncTolerance uint64
	Log           *slog.Logger
}

func (c *NodeChecker) Check(ctx context.Context) (Snapshot, error) {
	var errs []error
	fail := func(probe string, err error) {
		c.Log.Debug("Probe failed", slog.String("probe", probe), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", probe, err))
	}

	snap := Snapshot{Validators: []ValidatorView{}}

	snap.Items.ConfigsExist = c.configsExist()
	snap.Items.DBRestored = c.dbRestored()
	snap.Items.MinerProofs = c.minerProofs()

	height, err := c.Node.SyncHeight(ctx)
	if err != nil {
		fail("node_running", err)
	} else {
		snap.Items.NodeRunning = true
		snap.Items.SyncHeight = height
	}

	reference := c.Upstream
	if reference == nil {
		reference = c.Node
	}

	chain, err := reference.ChainView(ctx)
	if err != nil {
		fail("chain_view", err)
	} else {
		snap.Chain = chain
		if snap.Items.NodeRunning {
			if chain.Height > height {
				snap.Items.SyncDelay = chain.Height - height
			}
			snap.Items.IsSynced = snap.Items.SyncDelay <= c.tolerance()
		}
	}

	validators, err := reference.Validators(ctx)
	if err != nil {
		fail("validators", err)
	} else if validators != nil {
		snap.Validators = validators
	}

	owner := c.Config.Profile.Account
	account, err := reference.Account(ctx, owner)
	if err != nil {
		fail("account_on_chain", err)
		account = OwnerAccountView{Address: owner.String()}
	} else {
		snap.Items.AccountOnChain = true
	}
	for _, v := range snap.Validators {
		if strings.EqualFold(strings.TrimPrefix(v.AccountAddress, "0x"), owner.String()) {
			account.IsInSet = true
			break
		}
	}
	snap.Account = account
	snap.Items.InValidatorSet = account.IsInSet

	snap.RefreshedAt = time.Now().UTC()
	return snap, errors.Join(errs...)
}

func (c *NodeChecker) tolerance() uint64 {
	if c.SyncTolerance == 0 {
		return DefaultSyncTolerance
	}
	return c.SyncTolerance
}

func (c *NodeChecker) configsExist() bool {
	home := c.Config.Workspace.NodeHome
	for _, name := range []string{config.FileName, "node.yaml"} {
		if _, err := os.Stat(filepath.Join(home, name)); err != nil {
			return false
		}
	}
	return true
}

func (c *NodeChecker) dbRestored() bool {
	entries, err := os.ReadDir(c.Config.DBDirPath())
	return err == nil && len(entries) > 0
}

func (c *NodeChecker) minerProofs() uint64 {
	matches, err := filepath.Glob(filepath.Join(c.Config.BlockDirPath(), "block_*.json"))
	if err != nil {
		return 0
	}
	return uint64(len(matches))
}
