package miner

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMineGenesis(t *testing.T) {
	cfg := config.New(interfaces.AuthKey{0xaa}, interfaces.AccountAddress{0xaa}, t.TempDir(), 1)
	m := NewDelayMiner(1000, slog.New(slog.NewTextHandler(io.Discard, nil)))

	block, path, err := m.MineGenesis(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Workspace.NodeHome, "blocks", BlockZeroFileName), path)
	assert.Equal(t, uint64(0), block.Height)

	persisted, err := ReadBlock(path)
	require.NoError(t, err)
	assert.Equal(t, block, persisted)

	ok, err := Verify(context.Background(), persisted)
	require.NoError(t, err)
	assert.True(t, ok)

	persisted.Proof = "00"
	ok, err = Verify(context.Background(), persisted)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPreimageBindsChain(t *testing.T) {
	a := config.New(interfaces.AuthKey{0xaa}, interfaces.AccountAddress{0xaa}, "/tmp/a", 1)
	b := config.New(interfaces.AuthKey{0xaa}, interfaces.AccountAddress{0xaa}, "/tmp/a", 2)
	assert.NotEqual(t, Preimage(a), Preimage(b))
}

func TestMineGenesisCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.New(interfaces.AuthKey{0xaa}, interfaces.AccountAddress{0xaa}, t.TempDir(), 1)
	_, _, err := NewDelayMiner(100_000, slog.New(slog.NewTextHandler(io.Discard, nil))).MineGenesis(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}
