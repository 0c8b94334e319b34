package provisioning

import (
	"context"
	"log/slog"

	"github.com/ruteri/validator-provisioning/autopay"
	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/genesis"
	"github.com/ruteri/validator-provisioning/miner"
	"github.com/ruteri/validator-provisioning/template"
	"github.com/ruteri/validator-provisioning/wallet"
)

// KeyGenerator creates fresh account credentials.
type KeyGenerator interface {
	Generate() (*wallet.Wallet, error)
}

// ValidatorKeyInitializer derives and persists validator keys. It either
// writes a complete key store or nothing.
type ValidatorKeyInitializer interface {
	InitValidatorKeys(w *wallet.Wallet, cfg *config.NodeConfig) (string, error)
}

type TemplateResolver interface {
	Resolve(ctx context.Context, url, destDir string) (template.Document, error)
}

type GenesisFetcher interface {
	Fetch(ctx context.Context, destDir string) ([]string, error)
}

type GenesisBuilder interface {
	Build(ctx context.Context, cfg *config.NodeConfig) error
}

type NodeFileWriter interface {
	WriteNodeFile(cfg *config.NodeConfig, role genesis.Role) (string, error)
}

type GenesisMiner interface {
	MineGenesis(ctx context.Context, cfg *config.NodeConfig) (*miner.Block, string, error)
}

type AutopayBuilder interface {
	Build(ctx context.Context, src autopay.Source, startingEpoch uint64, params autopay.TxParams) (autopay.Batch, error)
}

// Deps are the collaborators a pipeline delegates to. Fetcher and Builder may
// be nil when the corresponding stage is never enabled.
type Deps struct {
	Keys          KeyGenerator
	ValidatorKeys ValidatorKeyInitializer
	Templates     TemplateResolver
	Fetcher       GenesisFetcher
	Builder       GenesisBuilder
	NodeFiles     NodeFileWriter
	Miner         GenesisMiner
	Autopay       AutopayBuilder
	Log           *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return d
}

// DefaultDeps wires the standard collaborators. The genesis fetcher, builder
// and miner depend on run-time settings and are passed in.
func DefaultDeps(log *slog.Logger, fetcher GenesisFetcher, builder GenesisBuilder, m GenesisMiner) Deps {
	return Deps{
		Keys:          WalletKeys{},
		ValidatorKeys: ValidatorKeyStore{},
		Templates:     &template.Resolver{},
		Fetcher:       fetcher,
		Builder:       builder,
		NodeFiles:     NodeFiles{},
		Miner:         m,
		Autopay:       autopay.NewBuilder(log),
		Log:           log,
	}
}

// WalletKeys generates random secp256k1 wallets.
type WalletKeys struct{}

func (WalletKeys) Generate() (*wallet.Wallet, error) {
	return wallet.Generate()
}

// ValidatorKeyStore writes the derived role keys to the workspace key store.
type ValidatorKeyStore struct{}

func (ValidatorKeyStore) InitValidatorKeys(w *wallet.Wallet, cfg *config.NodeConfig) (string, error) {
	keys, err := wallet.DeriveValidatorKeys(w, cfg.ChainInfo.ChainID)
	if err != nil {
		return "", err
	}
	return wallet.WriteValidatorKeys(cfg.Workspace.NodeHome, cfg.Profile.Account, keys)
}

// NodeFiles materializes node.yaml.
type NodeFiles struct{}

func (NodeFiles) WriteNodeFile(cfg *config.NodeConfig, role genesis.Role) (string, error) {
	return genesis.WriteNodeFile(cfg, role)
}
