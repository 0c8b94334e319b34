// Package genesis acquires the chain's genesis material for a workspace,
// either by downloading it or by rebuilding it locally, and materializes the
// node file that points the node at it.
package genesis

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/validator-provisioning/interfaces"
)

const (
	// BlobFileName is the serialized genesis transaction.
	BlobFileName = "genesis.blob"

	// WaypointFileName holds the genesis waypoint in text form.
	WaypointFileName = "genesis_waypoint"
)

// Files lists the genesis artifacts fetched into a workspace, in order.
var Files = []string{BlobFileName, WaypointFileName}

// Fetcher downloads genesis artifacts from a source.
type Fetcher struct {
	source interfaces.Source
	log    *slog.Logger
}

func NewFetcher(source interfaces.Source, log *slog.Logger) *Fetcher {
	return &Fetcher{source: source, log: log}
}

// Fetch downloads every genesis artifact into destDir, overwriting existing
// copies. It returns the written paths.
func (f *Fetcher) Fetch(ctx context.Context, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, interfaces.NewError(interfaces.ErrFileSystem, destDir, err)
	}

	written := make([]string, 0, len(Files))
	for _, name := range Files {
		data, err := f.source.Fetch(ctx, name)
		if err != nil {
			return nil, interfaces.NewError(interfaces.ErrNetwork, f.source.LocationURI()+"/"+name, err)
		}

		path := filepath.Join(destDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, interfaces.NewError(interfaces.ErrFileSystem, path, err)
		}
		written = append(written, path)

		f.log.Debug("Fetched genesis artifact",
			slog.String("source", f.source.LocationURI()),
			slog.String("path", path),
			slog.Int("size", len(data)))
	}
	return written, nil
}
