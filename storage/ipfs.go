package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/ruteri/validator-provisioning/interfaces"
)

// IPFSSource reads genesis material from an IPFS directory published under a
// CID (or IPNS name), through a node's HTTP API.
type IPFSSource struct {
	shell       *shell.Shell
	apiAddr     string
	root        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSSource creates a source for files under root (e.g. /ipfs/<cid>).
func NewIPFSSource(host, port, root string, timeout time.Duration, log *slog.Logger) *IPFSSource {
	apiAddr := fmt.Sprintf("%s:%s", host, port)
	sh := shell.NewShell(apiAddr)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}

	if !strings.HasPrefix(root, "/ipfs/") && !strings.HasPrefix(root, "/ipns/") {
		root = "/ipfs/" + strings.TrimPrefix(root, "/")
	}

	return &IPFSSource{
		shell:       sh,
		apiAddr:     apiAddr,
		root:        root,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s%s", apiAddr, root),
	}
}

// Fetch reads root/name from IPFS.
func (b *IPFSSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	p := path.Join(b.root, name)

	reader, err := b.shell.Cat(p)
	if err != nil {
		if strings.Contains(err.Error(), "no link named") || strings.Contains(err.Error(), "not found") {
			b.log.Debug("Genesis file not found in IPFS", slog.String("path", p))
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read IPFS content: %w", err)
	}

	b.log.Debug("Fetched genesis file from IPFS",
		slog.String("path", p),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Available checks if the IPFS node answers.
func (b *IPFSSource) Available(ctx context.Context) bool {
	up := b.shell.IsUp()
	if !up {
		b.log.Warn("IPFS node unavailable", slog.String("api", b.apiAddr))
	}
	return up
}

// Name returns a unique identifier for this source.
func (b *IPFSSource) Name() string {
	return fmt.Sprintf("ipfs-%s", path.Base(b.root))
}

// LocationURI returns the URI that identifies this source.
func (b *IPFSSource) LocationURI() string {
	return b.locationURI
}
