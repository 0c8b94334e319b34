package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/validator-provisioning/interfaces"
)

// FileSource serves genesis material from a local directory, typically a
// checkout of the genesis repository.
type FileSource struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileSource creates a source reading files under baseDir.
func NewFileSource(baseDir string, log *slog.Logger) *FileSource {
	return &FileSource{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}
}

// Fetch reads baseDir/name. Returns ErrContentNotFound if the file doesn't exist.
func (b *FileSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	filePath := filepath.Join(b.baseDir, filepath.Clean("/"+name))

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	b.log.Debug("Fetched genesis file from disk",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Available checks that the base directory exists.
func (b *FileSource) Available(ctx context.Context) bool {
	info, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File source unavailable", "err", err)
		return false
	}
	return info.IsDir()
}

// Name returns a unique identifier for this source.
func (b *FileSource) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this source.
func (b *FileSource) LocationURI() string {
	return b.locationURI
}
