package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/validator-provisioning/interfaces"
)

// MultiSource implements interfaces.Source over several sources with fallback.
type MultiSource struct {
	sources []interfaces.Source
	log     *slog.Logger
}

// NewMultiSource creates a fallback chain. Sources are tried in order.
func NewMultiSource(sources []interfaces.Source, logger *slog.Logger) *MultiSource {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiSource{
		sources: sources,
		log:     logger,
	}
}

// Fetch returns the file from the first available source that has it.
// ErrContentNotFound is returned only if every reachable source reports it missing.
func (m *MultiSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	var errs []error
	notFound := 0

	for _, source := range m.sources {
		if !source.Available(ctx) {
			m.log.Debug("Source unavailable",
				slog.String("source", source.Name()),
				slog.String("file", name))
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), interfaces.ErrBackendUnavailable))
			continue
		}

		data, err := source.Fetch(ctx, name)
		if err == nil {
			m.log.Info("Fetched genesis file",
				slog.String("source", source.Name()),
				slog.String("file", name),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if errors.Is(err, interfaces.ErrContentNotFound) {
			notFound++
		}
		errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
		m.log.Debug("Failed to fetch from source",
			slog.String("source", source.Name()),
			slog.String("file", name),
			"err", err)
	}

	if notFound > 0 && notFound == len(errs) {
		return nil, interfaces.ErrContentNotFound
	}

	m.log.Error("All sources failed to fetch genesis file",
		slog.String("file", name),
		slog.Int("failed_sources", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all sources failed to fetch %s: %w", name, errors.Join(errs...))
}

// Available checks if any source is available.
func (m *MultiSource) Available(ctx context.Context) bool {
	for _, source := range m.sources {
		if source.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this source.
func (m *MultiSource) Name() string {
	return "multi-source"
}

// LocationURI combines the URIs of all sources.
func (m *MultiSource) LocationURI() string {
	var locations []string
	for _, source := range m.sources {
		locations = append(locations, source.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
