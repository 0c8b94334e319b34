package provisioning

import (
	"context"
	"errors"

	"github.com/ruteri/validator-provisioning/autopay"
	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/genesis"
	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/ruteri/validator-provisioning/wallet"
)

// Stage names, in wizard order.
const (
	StageKeygen        = "keygen"
	StageConfigInit    = "config_init"
	StageValidatorKeys = "validator_keys"
	StageTemplate      = "template"
	StageGenesisFetch  = "genesis_fetch"
	StageGenesisFiles  = "genesis_files"
	StageMining        = "mining"
	StageAutopay       = "autopay"
	StageManifest      = "manifest"
)

func keygenStage(deps Deps) Stage {
	return Stage{
		Name:    StageKeygen,
		Enabled: func(s Session) bool { return s.Options.Keygen },
		Run: func(ctx context.Context, s Session) (Session, error) {
			w, err := deps.Keys.Generate()
			if err != nil {
				return s, interfaces.NewError(interfaces.ErrSigning, "keygen", err)
			}
			if err := w.Save(s.Options.KeyFile); err != nil {
				return s, err
			}

			deps.Log.Info("Generated account keys",
				"account", w.Account().String(),
				"auth_key", w.AuthKey().String(),
				"key_file", s.Options.KeyFile)

			next := s
			next.Wallet = w
			next.AuthKey = w.AuthKey()
			next.Account = w.Account()
			return next, nil
		},
	}
}

// configInitStage anchors a fresh node configuration at the target path.
// Without keygen the credentials come from the key file.
func configInitStage(deps Deps) Stage {
	return Stage{
		Name: StageConfigInit,
		Run: func(ctx context.Context, s Session) (Session, error) {
			next := s
			if next.Wallet == nil {
				w, err := wallet.Load(s.Options.KeyFile)
				if err != nil {
					return s, err
				}
				next.Wallet = w
				next.AuthKey = w.AuthKey()
				next.Account = w.Account()
			}

			cfg := config.New(next.AuthKey, next.Account, s.Options.Path, s.Options.ChainID)
			path, err := cfg.Save()
			if err != nil {
				return s, err
			}
			deps.Log.Info("Node config written", "path", path)

			next.Config = cfg
			return next, nil
		},
	}
}

func validatorKeysStage(deps Deps) Stage {
	return Stage{
		Name:    StageValidatorKeys,
		Enabled: func(s Session) bool { return s.Options.Role == genesis.RoleValidator },
		Run: func(ctx context.Context, s Session) (Session, error) {
			path, err := deps.ValidatorKeys.InitValidatorKeys(s.Wallet, s.Config)
			if err != nil {
				return s, err
			}
			deps.Log.Info("Key file written", "path", path)
			return s, nil
		},
	}
}

func templateStage(deps Deps) Stage {
	return Stage{
		Name:    StageTemplate,
		Enabled: func(s Session) bool { return s.Options.TemplateURL != "" },
		Run: func(ctx context.Context, s Session) (Session, error) {
			doc, err := deps.Templates.Resolve(ctx, s.Options.TemplateURL, s.Config.Workspace.NodeHome)
			if err != nil {
				return s, err
			}

			next := s.withConfig(func(cfg *config.NodeConfig) {
				epoch := doc.Epoch
				waypoint := doc.Waypoint
				cfg.ChainInfo.BaseEpoch = &epoch
				cfg.ChainInfo.BaseWaypoint = &waypoint
			})
			if _, err := next.Config.Save(); err != nil {
				return s, err
			}

			deps.Log.Info("Template saved",
				"epoch", doc.Epoch,
				"waypoint", doc.Waypoint.String())

			next.Template = &doc
			return next, nil
		},
	}
}

// genesisFetchStage never runs when genesis is rebuilt locally.
func genesisFetchStage(deps Deps) Stage {
	return Stage{
		Name: StageGenesisFetch,
		Enabled: func(s Session) bool {
			return !s.Options.RebuildGenesis && !s.Options.SkipFetchGenesis
		},
		Run: func(ctx context.Context, s Session) (Session, error) {
			if deps.Fetcher == nil {
				return s, interfaces.NewError(interfaces.ErrConfig, "genesis-source", errors.New("no genesis source configured"))
			}
			files, err := deps.Fetcher.Fetch(ctx, s.Config.Workspace.NodeHome)
			if err != nil {
				return s, err
			}
			deps.Log.Info("Downloaded genesis files", "files", files)
			return s, nil
		},
	}
}

// genesisFilesStage always runs: it rebuilds genesis when asked to and then
// materializes the node file from whatever genesis is on disk.
func genesisFilesStage(deps Deps) Stage {
	return Stage{
		Name: StageGenesisFiles,
		Run: func(ctx context.Context, s Session) (Session, error) {
			if s.Options.RebuildGenesis {
				if deps.Builder == nil {
					return s, interfaces.NewError(interfaces.ErrConfig, "genesis-tool", errors.New("no genesis builder configured"))
				}
				if err := deps.Builder.Build(ctx, s.Config); err != nil {
					return s, err
				}
			}

			path, err := deps.NodeFiles.WriteNodeFile(s.Config, s.Options.Role)
			if err != nil {
				return s, err
			}
			deps.Log.Info("Node file written", "path", path)
			return s, nil
		},
	}
}

func miningStage(deps Deps) Stage {
	return Stage{
		Name:    StageMining,
		Enabled: func(s Session) bool { return !s.Options.SkipMining },
		Run: func(ctx context.Context, s Session) (Session, error) {
			block, path, err := deps.Miner.MineGenesis(ctx, s.Config)
			if err != nil {
				return s, err
			}
			deps.Log.Info("Genesis proof complete", "path", path)

			next := s
			next.BlockZero = block
			return next, nil
		},
	}
}

func autopayStage(deps Deps) Stage {
	return Stage{
		Name: StageAutopay,
		Enabled: func(s Session) bool {
			return s.Options.TemplateURL != "" || s.Options.AutopayFile != ""
		},
		Run: func(ctx context.Context, s Session) (Session, error) {
			params, err := autopay.TxParamsFromConfig(s.Config, s.Wallet)
			if err != nil {
				return s, err
			}

			source := autopay.SourceFor(s.Config.Workspace.NodeHome, s.TemplateUsed(), s.Options.AutopayFile)
			batch, err := deps.Autopay.Build(ctx, source, s.StartingEpoch(), params)
			if err != nil {
				return s, err
			}

			next := s
			next.Autopay = &batch
			return next, nil
		},
	}
}

func manifestStage(deps Deps) Stage {
	return Stage{
		Name: StageManifest,
		Run: func(ctx context.Context, s Session) (Session, error) {
			manifest, err := NewManifest(s)
			if err != nil {
				return s, err
			}
			if err := manifest.Write(s.Options.ManifestPath); err != nil {
				return s, err
			}
			deps.Log.Info("Account manifest written", "path", s.Options.ManifestPath)

			next := s
			next.ManifestPath = s.Options.ManifestPath
			return next, nil
		},
	}
}
