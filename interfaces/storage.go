package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrContentNotFound is returned when a named file does not exist in a source.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a source is not reachable.
	ErrBackendUnavailable = errors.New("source unavailable")

	// ErrInvalidLocationURI is returned when a source location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid source location URI")
)

// Source serves named genesis material (genesis.blob, genesis_waypoint, ...).
type Source interface {
	// Fetch retrieves the file with the given name.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Available checks if the source is reachable.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this source.
	LocationURI() string
}

// SourceFactory creates sources from location URIs.
type SourceFactory interface {
	// SourceFor creates a source from a URI.
	// Supports file://, s3://, ipfs://, github://, vault://
	SourceFor(locationURI string) (Source, error)

	// CreateMultiSource creates a source that falls back across the given URIs.
	CreateMultiSource(locationURIs []string) (Source, error)
}
