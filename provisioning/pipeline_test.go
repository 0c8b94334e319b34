package provisioning

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ruteri/validator-provisioning/autopay"
	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/ruteri/validator-provisioning/template"
	"github.com/ruteri/validator-provisioning/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWaypoint = "5:7d3bcc4ca5f1a6e6a31e3e09a4c64b9bd9e4b0f0a1c4a2f2a8b2b8b0d5e6f7a1"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDocument(t *testing.T) template.Document {
	t.Helper()
	wp, err := interfaces.ParseWaypoint(testWaypoint)
	require.NoError(t, err)
	return template.Document{Epoch: 5, Waypoint: wp}
}

// walletAt writes a wallet key file so runs without keygen can load credentials.
func walletAt(t *testing.T, dir string) *wallet.Wallet {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	require.NoError(t, w.Save(filepath.Join(dir, wallet.KeyFileName)))
	return w
}

func expectedStages(opts Options) []string {
	stages := []string{}
	if opts.Keygen {
		stages = append(stages, StageKeygen)
	}
	stages = append(stages, StageConfigInit, StageValidatorKeys)
	if opts.TemplateURL != "" {
		stages = append(stages, StageTemplate)
	}
	if !opts.RebuildGenesis && !opts.SkipFetchGenesis {
		stages = append(stages, StageGenesisFetch)
	}
	stages = append(stages, StageGenesisFiles)
	if !opts.SkipMining {
		stages = append(stages, StageMining)
	}
	if opts.TemplateURL != "" || opts.AutopayFile != "" {
		stages = append(stages, StageAutopay)
	}
	return append(stages, StageManifest)
}

func TestWizardStageGating(t *testing.T) {
	for combo := 0; combo < 64; combo++ {
		opts := Options{
			ChainID:          1,
			Keygen:           combo&1 != 0,
			RebuildGenesis:   combo&2 != 0,
			SkipFetchGenesis: combo&4 != 0,
			SkipMining:       combo&8 != 0,
		}
		if combo&16 != 0 {
			opts.TemplateURL = "http://template.invalid/account.json"
		}
		if combo&32 != 0 {
			opts.AutopayFile = "autopay.json"
		}

		t.Run(fmt.Sprintf("combo-%02d", combo), func(t *testing.T) {
			opts.Path = t.TempDir()
			w := walletAt(t, opts.Path)
			mocks := newMockDeps(w, testDocument(t))

			s, err := RunWizard(context.Background(), opts, mocks.deps())
			require.NoError(t, err)

			assert.Equal(t, expectedStages(opts), s.Executed)
			mocks.nodeFiles.AssertNumberOfCalls(t, "WriteNodeFile", 1)

			if opts.RebuildGenesis {
				mocks.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
				mocks.builder.AssertNumberOfCalls(t, "Build", 1)
			} else {
				mocks.builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything)
			}

			if opts.TemplateURL != "" {
				require.NotNil(t, s.Config.ChainInfo.BaseEpoch)
				assert.Equal(t, uint64(5), *s.Config.ChainInfo.BaseEpoch)
				assert.NotNil(t, s.Config.ChainInfo.BaseWaypoint)
			} else {
				assert.Nil(t, s.Config.ChainInfo.BaseEpoch)
				assert.Nil(t, s.Config.ChainInfo.BaseWaypoint)
			}

			if opts.TemplateURL == "" && opts.AutopayFile == "" {
				assert.Nil(t, s.Autopay)
			}
		})
	}
}

func TestAutopaySourceAndEpoch(t *testing.T) {
	t.Run("template wins over autopay file", func(t *testing.T) {
		dir := t.TempDir()
		w := walletAt(t, dir)
		mocks := newMockDeps(w, testDocument(t))

		_, err := RunWizard(context.Background(), Options{
			Path:             dir,
			ChainID:          1,
			SkipFetchGenesis: true,
			SkipMining:       true,
			TemplateURL:      "http://template.invalid",
			AutopayFile:      "other.json",
		}, mocks.deps())
		require.NoError(t, err)

		mocks.autopay.AssertCalled(t, "Build", mock.Anything, autopay.Source{Path: filepath.Join(dir, "template.json"), Template: true}, uint64(5), mock.Anything)
	})

	t.Run("autopay file without template starts at epoch zero", func(t *testing.T) {
		dir := t.TempDir()
		w := walletAt(t, dir)
		mocks := newMockDeps(w, testDocument(t))

		_, err := RunWizard(context.Background(), Options{
			Path:             dir,
			ChainID:          1,
			SkipFetchGenesis: true,
			SkipMining:       true,
			AutopayFile:      "other.json",
		}, mocks.deps())
		require.NoError(t, err)

		mocks.autopay.AssertCalled(t, "Build", mock.Anything, autopay.Source{Path: filepath.Join(dir, "other.json")}, uint64(0), mock.MatchedBy(func(p autopay.TxParams) bool {
			return p.Key != nil && p.ChainID.Uint64() == 1
		}))
	})
}

func TestStageFailureStopsRun(t *testing.T) {
	dir := t.TempDir()
	w := walletAt(t, dir)

	mocks := newMockDeps(w, testDocument(t))
	fetchErr := interfaces.NewError(interfaces.ErrNetwork, "github://org/repo/genesis.blob", errors.New("connection refused"))
	mocks.fetcher = &MockFetcher{}
	mocks.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, fetchErr)

	s, err := RunWizard(context.Background(), Options{Path: dir, ChainID: 1}, mocks.deps())
	require.Error(t, err)

	var stageErr *interfaces.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageGenesisFetch, stageErr.Stage)
	assert.Equal(t, "github://org/repo/genesis.blob", stageErr.Resource())
	assert.ErrorIs(t, err, interfaces.ErrNetwork)

	// stages after the failure never ran
	assert.Equal(t, []string{StageConfigInit, StageValidatorKeys}, s.Executed)
	mocks.nodeFiles.AssertNotCalled(t, "WriteNodeFile", mock.Anything, mock.Anything)
	mocks.miner.AssertNotCalled(t, "MineGenesis", mock.Anything, mock.Anything)
	assert.NoFileExists(t, filepath.Join(dir, ManifestFileName))
}

func TestMissingKeyFileWithoutKeygen(t *testing.T) {
	mocks := newMockDeps(nil, testDocument(t))

	_, err := RunWizard(context.Background(), Options{Path: t.TempDir(), ChainID: 1}, mocks.deps())

	var stageErr *interfaces.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageConfigInit, stageErr.Stage)
	assert.ErrorIs(t, err, interfaces.ErrFileSystem)
}

func TestTemplateFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	w := walletAt(t, dir)

	mocks := newMockDeps(w, testDocument(t))
	mocks.templates = &MockTemplates{}
	mocks.templates.On("Resolve", mock.Anything, mock.Anything, mock.Anything).
		Return(template.Document{}, interfaces.NewError(interfaces.ErrValidation, filepath.Join(dir, "template.json"), errors.New("missing field waypoint")))

	_, err := RunWizard(context.Background(), Options{Path: dir, ChainID: 1, TemplateURL: "http://t"}, mocks.deps())
	assert.ErrorIs(t, err, interfaces.ErrValidation)
	mocks.templates.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestPipelineDoesNotMutateInput(t *testing.T) {
	dir := t.TempDir()
	w := walletAt(t, dir)
	mocks := newMockDeps(w, testDocument(t))

	s, err := NewSession(Options{Path: dir, ChainID: 1, SkipFetchGenesis: true, SkipMining: true})
	require.NoError(t, err)

	pipeline := WizardPipeline(mocks.deps())
	first, err := pipeline.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Nil(t, s.Config)
	assert.Empty(t, s.Executed)
	assert.NotEmpty(t, first.Executed)
}

func TestPathRequired(t *testing.T) {
	_, err := RunWizard(context.Background(), Options{}, newMockDeps(nil, template.Document{}).deps())
	assert.ErrorIs(t, err, interfaces.ErrConfig)
}

func TestWizardStagesOrder(t *testing.T) {
	assert.Equal(t, []string{
		StageKeygen, StageConfigInit, StageValidatorKeys, StageTemplate, StageGenesisFetch,
		StageGenesisFiles, StageMining, StageAutopay, StageManifest,
	}, WizardPipeline(Deps{}).Stages())
}
