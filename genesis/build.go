package genesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/interfaces"
)

// Builder rebuilds genesis locally by running an external genesis tool in the
// workspace. The tool is invoked as:
//
//	<tool> --home <node_home> --chain-id <id> --output <node_home>/genesis.blob
//
// and must leave genesis.blob behind.
type Builder struct {
	Tool string
	log  *slog.Logger
}

func NewBuilder(tool string, log *slog.Logger) *Builder {
	return &Builder{Tool: tool, log: log}
}

// Build runs the genesis tool for cfg's workspace.
func (b *Builder) Build(ctx context.Context, cfg *config.NodeConfig) error {
	if b.Tool == "" {
		return interfaces.NewError(interfaces.ErrConfig, "genesis-tool", errors.New("no genesis tool configured"))
	}

	home := cfg.Workspace.NodeHome
	output := filepath.Join(home, BlobFileName)

	cmd := exec.CommandContext(ctx, b.Tool,
		"--home", home,
		"--chain-id", strconv.FormatUint(cfg.ChainInfo.ChainID, 10),
		"--output", output)
	cmd.Dir = home

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return interfaces.NewError(interfaces.ErrFileSystem, b.Tool, fmt.Errorf("genesis tool failed: %w: %s", err, stderr.String()))
	}

	if _, err := os.Stat(output); err != nil {
		return interfaces.NewError(interfaces.ErrFileSystem, output, fmt.Errorf("genesis tool did not produce output: %w", err))
	}

	b.log.Info("Rebuilt genesis", slog.String("tool", b.Tool), slog.String("output", output))
	return nil
}
