package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/ruteri/validator-provisioning/interfaces"
)

// DefaultGitHubAPI is the GitHub REST endpoint used unless overridden.
const DefaultGitHubAPI = "https://api.github.com"

// GitHubSource reads genesis material from a GitHub repository through the
// contents API, requesting raw file bodies.
type GitHubSource struct {
	owner       string
	repo        string
	dir         string
	ref         string
	apiURL      string
	client      *http.Client
	log         *slog.Logger
	locationURI string
}

// NewGitHubSource creates a source for files under dir in owner/repo at ref.
// An empty ref means the repository's default branch.
func NewGitHubSource(owner, repo, dir, ref string, log *slog.Logger) *GitHubSource {
	uri := fmt.Sprintf("github://%s/%s", owner, path.Join(repo, dir))
	if ref != "" {
		uri += "?ref=" + ref
	}
	return &GitHubSource{
		owner:       owner,
		repo:        repo,
		dir:         dir,
		ref:         ref,
		apiURL:      DefaultGitHubAPI,
		client:      &http.Client{Timeout: 60 * time.Second},
		log:         log,
		locationURI: uri,
	}
}

// WithAPIURL points the source at a different API host (GitHub Enterprise, tests).
func (b *GitHubSource) WithAPIURL(apiURL string) *GitHubSource {
	clone := *b
	clone.apiURL = apiURL
	return &clone
}

// Fetch downloads a file from the repository.
func (b *GitHubSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", b.apiURL, b.owner, b.repo, path.Join(b.dir, name))
	if b.ref != "" {
		url += "?ref=" + b.ref
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, interfaces.ErrContentNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("GitHub API error: %s, %s", resp.Status, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	b.log.Debug("Fetched genesis file from GitHub",
		slog.String("repo", b.owner+"/"+b.repo),
		slog.String("file", name),
		slog.Int("size", len(data)))

	return data, nil
}

// Available checks that the repository is reachable.
func (b *GitHubSource) Available(ctx context.Context) bool {
	url := fmt.Sprintf("%s/repos/%s/%s", b.apiURL, b.owner, b.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		b.log.Debug("Failed to create request", "err", err)
		return false
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Debug("GitHub source unavailable", "err", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b.log.Debug("GitHub source unavailable", slog.String("status", resp.Status))
		return false
	}
	return true
}

// Name returns a unique identifier for this source.
func (b *GitHubSource) Name() string {
	return fmt.Sprintf("github-%s-%s", b.owner, b.repo)
}

// LocationURI returns the URI that identifies this source.
func (b *GitHubSource) LocationURI() string {
	return b.locationURI
}
