package provisioning

import (
	"context"

	"github.com/ruteri/validator-provisioning/autopay"
	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/genesis"
	"github.com/ruteri/validator-provisioning/miner"
	"github.com/ruteri/validator-provisioning/template"
	"github.com/ruteri/validator-provisioning/wallet"
	"github.com/stretchr/testify/mock"
)

type MockKeys struct{ mock.Mock }

func (m *MockKeys) Generate() (*wallet.Wallet, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

type MockValidatorKeys struct{ mock.Mock }

func (m *MockValidatorKeys) InitValidatorKeys(w *wallet.Wallet, cfg *config.NodeConfig) (string, error) {
	args := m.Called(w, cfg)
	return args.String(0), args.Error(1)
}

type MockTemplates struct{ mock.Mock }

func (m *MockTemplates) Resolve(ctx context.Context, url, destDir string) (template.Document, error) {
	args := m.Called(ctx, url, destDir)
	return args.Get(0).(template.Document), args.Error(1)
}

type MockFetcher struct{ mock.Mock }

func (m *MockFetcher) Fetch(ctx context.Context, destDir string) ([]string, error) {
	args := m.Called(ctx, destDir)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockBuilder struct{ mock.Mock }

func (m *MockBuilder) Build(ctx context.Context, cfg *config.NodeConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

type MockNodeFiles struct{ mock.Mock }

func (m *MockNodeFiles) WriteNodeFile(cfg *config.NodeConfig, role genesis.Role) (string, error) {
	args := m.Called(cfg, role)
	return args.String(0), args.Error(1)
}

type MockMiner struct{ mock.Mock }

func (m *MockMiner) MineGenesis(ctx context.Context, cfg *config.NodeConfig) (*miner.Block, string, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*miner.Block), args.String(1), args.Error(2)
}

type MockAutopay struct{ mock.Mock }

func (m *MockAutopay) Build(ctx context.Context, src autopay.Source, startingEpoch uint64, params autopay.TxParams) (autopay.Batch, error) {
	args := m.Called(ctx, src, startingEpoch, params)
	return args.Get(0).(autopay.Batch), args.Error(1)
}

type mockDeps struct {
	keys          *MockKeys
	validatorKeys *MockValidatorKeys
	templates     *MockTemplates
	fetcher       *MockFetcher
	builder       *MockBuilder
	nodeFiles     *MockNodeFiles
	miner         *MockMiner
	autopay       *MockAutopay
}

func (m *mockDeps) deps() Deps {
	return Deps{
		Keys:          m.keys,
		ValidatorKeys: m.validatorKeys,
		Templates:     m.templates,
		Fetcher:       m.fetcher,
		Builder:       m.builder,
		NodeFiles:     m.nodeFiles,
		Miner:         m.miner,
		Autopay:       m.autopay,
		Log:           testLogger(),
	}
}

// newMockDeps returns collaborators that succeed whenever they are called.
func newMockDeps(w *wallet.Wallet, doc template.Document) *mockDeps {
	m := &mockDeps{
		keys:          &MockKeys{},
		validatorKeys: &MockValidatorKeys{},
		templates:     &MockTemplates{},
		fetcher:       &MockFetcher{},
		builder:       &MockBuilder{},
		nodeFiles:     &MockNodeFiles{},
		miner:         &MockMiner{},
		autopay:       &MockAutopay{},
	}
	m.keys.On("Generate").Return(w, nil).Maybe()
	m.validatorKeys.On("InitValidatorKeys", mock.Anything, mock.Anything).Return("key_store.json", nil).Maybe()
	m.templates.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(doc, nil).Maybe()
	m.fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]string{"genesis.blob"}, nil).Maybe()
	m.builder.On("Build", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.nodeFiles.On("WriteNodeFile", mock.Anything, mock.Anything).Return("node.yaml", nil).Maybe()
	m.miner.On("MineGenesis", mock.Anything, mock.Anything).Return(&miner.Block{Proof: "00"}, "block_0.json", nil).Maybe()
	m.autopay.On("Build", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(autopay.Batch{}, nil).Maybe()
	return m
}
