// Package provisioning sequences the bootstrap of a validator or user account:
// key generation, node configuration, template resolution, genesis
// acquisition, mining, autopay signing and manifest persistence.
//
// The pipeline threads an immutable Session through its stages. Each stage
// returns a new Session, so a failing stage never leaks a half-updated value.
package provisioning

import (
	"errors"
	"path/filepath"
	"slices"

	"github.com/ruteri/validator-provisioning/autopay"
	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/genesis"
	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/ruteri/validator-provisioning/miner"
	"github.com/ruteri/validator-provisioning/template"
	"github.com/ruteri/validator-provisioning/wallet"
)

// Options are the user-supplied inputs of a provisioning run.
type Options struct {
	// Path is the root for all generated files.
	Path    string
	ChainID uint64

	// GithubOrg and Repo locate the genesis repository.
	GithubOrg string
	Repo      string

	Keygen           bool
	RebuildGenesis   bool
	SkipFetchGenesis bool
	SkipMining       bool

	TemplateURL string
	AutopayFile string

	// KeyFile is where keygen writes the wallet and where it is loaded from
	// when keygen is skipped. Defaults to <Path>/wallet.key.
	KeyFile string

	// ManifestPath defaults to <Path>/account.json.
	ManifestPath string

	Role genesis.Role
}

func (o Options) withDefaults() (Options, error) {
	if o.Path == "" {
		return o, interfaces.NewError(interfaces.ErrConfig, "path", errors.New("target path is required"))
	}
	if o.KeyFile == "" {
		o.KeyFile = filepath.Join(o.Path, wallet.KeyFileName)
	}
	if o.ManifestPath == "" {
		o.ManifestPath = filepath.Join(o.Path, ManifestFileName)
	}
	if o.Role == "" {
		o.Role = genesis.RoleValidator
	}
	return o, nil
}

// Session accumulates the outcome of each stage. Mining-derived chain anchors
// are only present when a template was resolved; autopay fields only when an
// autopay source was used.
type Session struct {
	Options Options

	AuthKey interfaces.AuthKey
	Account interfaces.AccountAddress
	Wallet  *wallet.Wallet

	Config   *config.NodeConfig
	Template *template.Document

	BlockZero *miner.Block
	Autopay   *autopay.Batch

	ManifestPath string

	// Executed lists the stages that ran, in order.
	Executed []string
}

// NewSession starts a session for opts.
func NewSession(opts Options) (Session, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return Session{}, err
	}
	return Session{Options: opts}, nil
}

// withConfig returns a copy whose configuration was cloned and then edited.
func (s Session) withConfig(edit func(*config.NodeConfig)) Session {
	next := s
	next.Config = s.Config.Clone()
	edit(next.Config)
	return next
}

func (s Session) markExecuted(stage string) Session {
	s.Executed = slices.Concat(s.Executed, []string{stage})
	return s
}

// TemplateUsed reports whether a template was resolved in this session.
func (s Session) TemplateUsed() bool {
	return s.Template != nil
}

// StartingEpoch is the epoch autopay instructions are evaluated against.
func (s Session) StartingEpoch() uint64 {
	if s.Config != nil && s.Config.ChainInfo.BaseEpoch != nil {
		return *s.Config.ChainInfo.BaseEpoch
	}
	return 0
}
