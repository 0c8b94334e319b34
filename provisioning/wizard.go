package provisioning

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ruteri/validator-provisioning/genesis"
)

// WizardPipeline is the full validator wizard:
// keygen, config init, validator keys, template, genesis fetch, genesis
// files, mining, autopay, manifest.
func WizardPipeline(deps Deps) *Pipeline {
	deps = deps.withDefaults()
	return NewPipeline(deps.Log,
		keygenStage(deps),
		configInitStage(deps),
		validatorKeysStage(deps),
		templateStage(deps),
		genesisFetchStage(deps),
		genesisFilesStage(deps),
		miningStage(deps),
		autopayStage(deps),
		manifestStage(deps),
	)
}

// RunWizard provisions a validator workspace at opts.Path.
func RunWizard(ctx context.Context, opts Options, deps Deps) (Session, error) {
	opts.Role = genesis.RoleValidator
	s, err := NewSession(opts)
	if err != nil {
		return Session{}, err
	}
	return WizardPipeline(deps).Run(ctx, s)
}

// CreateAccountOptions are the inputs of the account creation entry point.
type CreateAccountOptions struct {
	SkipKeys bool
	// Val creates a validator account instead of a user account.
	Val bool
	// Path is where the manifest is written. A path ending in ".json" names
	// the manifest file and its directory is the workspace; any other path is
	// the workspace and receives account.json.
	Path    string
	ChainID uint64
	KeyFile string
}

// CreateAccountPipeline generates keys unless skipped, initializes the
// configuration, derives validator keys for validator accounts, mines block
// zero and writes the manifest.
func CreateAccountPipeline(deps Deps) *Pipeline {
	deps = deps.withDefaults()
	return NewPipeline(deps.Log,
		keygenStage(deps),
		configInitStage(deps),
		validatorKeysStage(deps),
		miningStage(deps),
		manifestStage(deps),
	)
}

// CreateAccount runs the account creation pipeline.
func CreateAccount(ctx context.Context, opts CreateAccountOptions, deps Deps) (Session, error) {
	role := genesis.RoleFullNode
	if opts.Val {
		role = genesis.RoleValidator
	}

	workspace, manifestPath := opts.Path, ""
	if strings.EqualFold(filepath.Ext(opts.Path), ".json") {
		workspace, manifestPath = filepath.Dir(opts.Path), opts.Path
	}

	s, err := NewSession(Options{
		Path:         workspace,
		ChainID:      opts.ChainID,
		Keygen:       !opts.SkipKeys,
		KeyFile:      opts.KeyFile,
		ManifestPath: manifestPath,
		Role:         role,
	})
	if err != nil {
		return Session{}, err
	}
	return CreateAccountPipeline(deps).Run(ctx, s)
}
