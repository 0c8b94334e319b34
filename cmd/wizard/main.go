package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/ruteri/validator-provisioning/cmd/flags"
	"github.com/ruteri/validator-provisioning/genesis"
	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/ruteri/validator-provisioning/miner"
	"github.com/ruteri/validator-provisioning/provisioning"
	"github.com/ruteri/validator-provisioning/storage"
	"github.com/ruteri/validator-provisioning/wallet"
	"github.com/urfave/cli/v2"
)

var pathFlag = &cli.StringFlag{
	Name:     "path",
	Usage:    "workspace directory (node home)",
	Required: true,
}

var chainIDFlag = &cli.Uint64Flag{
	Name:  "chain-id",
	Value: 1,
	Usage: "chain id written to the node configuration and used for signing",
}

var keyFileFlag = &cli.StringFlag{
	Name:  "key-file",
	Usage: "wallet key file, defaults to <path>/wallet.key",
}

var difficultyFlag = &cli.Uint64Flag{
	Name:  "difficulty",
	Value: miner.DefaultDifficulty,
	Usage: "delay proof iterations for block zero",
}

var wizardFlags = []cli.Flag{
	pathFlag,
	chainIDFlag,
	keyFileFlag,
	difficultyFlag,
	&cli.StringFlag{
		Name:  "github-org",
		Value: "OLSF",
		Usage: "github organization hosting the genesis files",
	},
	&cli.StringFlag{
		Name:  "repo",
		Value: "genesis-archive",
		Usage: "github repository hosting the genesis files",
	},
	&cli.StringFlag{
		Name:  "github-api",
		Usage: "override the github API base URL",
	},
	&cli.StringSliceFlag{
		Name:  "genesis-source",
		Usage: "genesis source URI (file, github, ipfs, s3, vault). Repeatable, tried in order. Overrides --github-org/--repo",
	},
	&cli.BoolFlag{
		Name:  "keygen",
		Usage: "generate a new wallet instead of loading --key-file",
	},
	&cli.BoolFlag{
		Name:  "rebuild-genesis",
		Usage: "build genesis locally instead of fetching it",
	},
	&cli.StringFlag{
		Name:  "genesis-tool",
		Usage: "executable used by --rebuild-genesis",
	},
	&cli.BoolFlag{
		Name:  "skip-fetch-genesis",
		Usage: "do not fetch genesis files",
	},
	&cli.BoolFlag{
		Name:  "skip-mining",
		Usage: "do not mine block zero",
	},
	&cli.StringFlag{
		Name:  "template-url",
		Usage: "URL of a template document with epoch and waypoint, e.g. a node's /epoch.json. Its autopay_instructions, when present, are signed",
	},
	&cli.StringFlag{
		Name:  "autopay-file",
		Usage: "autopay instructions file, relative paths resolve against --path",
	},
}

var createAccountFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "path",
		Usage:    "manifest output location: a .json file, or a directory that receives account.json",
		Required: true,
	},
	chainIDFlag,
	keyFileFlag,
	difficultyFlag,
	&cli.BoolFlag{
		Name:  "skip-keys",
		Usage: "load the wallet from --key-file instead of generating one",
	},
	&cli.BoolFlag{
		Name:  "val",
		Usage: "create a validator account",
	},
}

func main() {
	app := &cli.App{
		Name:  "val-wizard",
		Usage: "Provision validator and account workspaces",
		Flags: slices.Concat(flags.LogFlags, []cli.Flag{flags.LogServiceFlagFn("val-wizard")}),
		Commands: []*cli.Command{
			{
				Name:   "val-wizard",
				Usage:  "provision a validator node workspace",
				Flags:  wizardFlags,
				Action: runWizard,
			},
			{
				Name:   "create-account",
				Usage:  "create an account and write its manifest",
				Flags:  createAccountFlags,
				Action: runCreateAccount,
			},
			{
				Name:  "keygen",
				Usage: "generate a wallet key file",
				Flags: []cli.Flag{pathFlag, keyFileFlag},
				Action: func(cCtx *cli.Context) error {
					log := flags.SetupLogger(cCtx)
					keyFile := cCtx.String(keyFileFlag.Name)
					if keyFile == "" {
						keyFile = filepath.Join(cCtx.String(pathFlag.Name), wallet.KeyFileName)
					}
					w, err := wallet.Generate()
					if err != nil {
						return err
					}
					if err := w.Save(keyFile); err != nil {
						return err
					}
					log.Info("Wallet generated", "account", w.Account(), "key_file", keyFile)
					fmt.Printf("auth_key: %s\naccount: %s\n", w.AuthKey(), w.Account())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func genesisSource(cCtx *cli.Context, log *slog.Logger) (interfaces.Source, error) {
	factory := storage.NewSourceFactory(log)
	if api := cCtx.String("github-api"); api != "" {
		factory = factory.WithGitHubAPI(api)
	}
	if uris := cCtx.StringSlice("genesis-source"); len(uris) > 0 {
		return factory.CreateMultiSource(uris)
	}
	return factory.SourceFor(storage.GitHubURI(cCtx.String("github-org"), cCtx.String("repo")))
}

func runWizard(cCtx *cli.Context) error {
	log := flags.SetupLogger(cCtx)
	ctx, cancel := signalContext()
	defer cancel()

	var fetcher provisioning.GenesisFetcher
	if !cCtx.Bool("skip-fetch-genesis") && !cCtx.Bool("rebuild-genesis") {
		source, err := genesisSource(cCtx, log)
		if err != nil {
			return fmt.Errorf("genesis source: %w", err)
		}
		fetcher = genesis.NewFetcher(source, log)
	}

	var builder provisioning.GenesisBuilder
	if cCtx.Bool("rebuild-genesis") {
		builder = genesis.NewBuilder(cCtx.String("genesis-tool"), log)
	}

	deps := provisioning.DefaultDeps(log, fetcher, builder, miner.NewDelayMiner(cCtx.Uint64(difficultyFlag.Name), log))

	s, err := provisioning.RunWizard(ctx, provisioning.Options{
		Path:             cCtx.String(pathFlag.Name),
		ChainID:          cCtx.Uint64(chainIDFlag.Name),
		GithubOrg:        cCtx.String("github-org"),
		Repo:             cCtx.String("repo"),
		Keygen:           cCtx.Bool("keygen"),
		RebuildGenesis:   cCtx.Bool("rebuild-genesis"),
		SkipFetchGenesis: cCtx.Bool("skip-fetch-genesis"),
		SkipMining:       cCtx.Bool("skip-mining"),
		TemplateURL:      cCtx.String("template-url"),
		AutopayFile:      cCtx.String("autopay-file"),
		KeyFile:          cCtx.String(keyFileFlag.Name),
	}, deps)
	if err != nil {
		return err
	}

	log.Info("Validator workspace ready",
		"account", s.Account,
		"path", s.Options.Path,
		"manifest", s.ManifestPath,
		"stages", s.Executed,
	)
	return nil
}

func runCreateAccount(cCtx *cli.Context) error {
	log := flags.SetupLogger(cCtx)
	ctx, cancel := signalContext()
	defer cancel()

	deps := provisioning.DefaultDeps(log, nil, nil, miner.NewDelayMiner(cCtx.Uint64(difficultyFlag.Name), log))

	s, err := provisioning.CreateAccount(ctx, provisioning.CreateAccountOptions{
		SkipKeys: cCtx.Bool("skip-keys"),
		Val:      cCtx.Bool("val"),
		Path:     cCtx.String(pathFlag.Name),
		ChainID:  cCtx.Uint64(chainIDFlag.Name),
		KeyFile:  cCtx.String(keyFileFlag.Name),
	}, deps)
	if err != nil {
		return err
	}

	log.Info("Account created", "account", s.Account, "manifest", s.ManifestPath)
	return nil
}
