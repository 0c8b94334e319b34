package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/validator-provisioning/interfaces"
)

// SourceFactory creates genesis material sources from URI strings.
type SourceFactory struct {
	log          *slog.Logger
	githubAPIURL string
}

// NewSourceFactory creates a new factory instance.
func NewSourceFactory(logger *slog.Logger) *SourceFactory {
	return &SourceFactory{
		log:          logger,
		githubAPIURL: DefaultGitHubAPI,
	}
}

// WithGitHubAPI returns a factory whose GitHub sources talk to apiURL.
func (sf *SourceFactory) WithGitHubAPI(apiURL string) *SourceFactory {
	return &SourceFactory{log: sf.log, githubAPIURL: apiURL}
}

// GitHubURI builds the location URI for genesis material in org/repo.
func GitHubURI(org, repo string) string {
	return fmt.Sprintf("github://%s/%s", org, repo)
}

// SourceFor creates a source from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local directory
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node HTTP API
//   - github:// - GitHub repository contents
//   - vault:// - HashiCorp Vault KV v2
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *SourceFactory) SourceFor(locationURI string) (interfaces.Source, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "github":
		return sf.createGitHubSource(u)
	case "ipfs":
		return sf.createIPFSSource(u)
	case "s3":
		return sf.createS3Source(u)
	case "vault":
		return sf.createVaultSource(u)
	case "file":
		return sf.createFileSource(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

// CreateMultiSource creates a fallback source from a list of location URIs.
// Invalid URIs are logged and skipped; it fails only if none is usable.
func (sf *SourceFactory) CreateMultiSource(locationURIs []string) (interfaces.Source, error) {
	sources := make([]interfaces.Source, 0, len(locationURIs))

	for _, uri := range locationURIs {
		source, err := sf.SourceFor(uri)
		if err != nil {
			sf.log.Warn("Failed to create genesis source",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		sources = append(sources, source)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no valid genesis sources created")
	}

	return NewMultiSource(sources, sf.log), nil
}

// createGitHubSource creates a GitHub source.
// URI format: github://owner/repo[/dir][?ref=branch]
func (sf *SourceFactory) createGitHubSource(u *url.URL) (interfaces.Source, error) {
	sf.log.Debug("Creating GitHub source", slog.String("uri", u.String()))

	owner := u.Host
	repo, dir, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: expected github://owner/repo", interfaces.ErrInvalidLocationURI)
	}

	return NewGitHubSource(owner, repo, dir, u.Query().Get("ref"), sf.log).WithAPIURL(sf.githubAPIURL), nil
}

// createIPFSSource creates an IPFS source.
// URI format: ipfs://host:port/<cid>[/dir][?timeout=30s]
func (sf *SourceFactory) createIPFSSource(u *url.URL) (interfaces.Source, error) {
	sf.log.Debug("Creating IPFS source", slog.String("uri", u.String()))

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "5001"
	}

	root := strings.TrimPrefix(u.Path, "/")
	if root == "" {
		return nil, fmt.Errorf("%w: ipfs URI needs a content path", interfaces.ErrInvalidLocationURI)
	}

	timeout := 30 * time.Second
	if raw := u.Query().Get("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timeout: %v", interfaces.ErrInvalidLocationURI, err)
		}
		timeout = parsed
	}

	return NewIPFSSource(host, port, root, timeout, sf.log), nil
}

// createS3Source creates an S3 or S3-compatible source.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (sf *SourceFactory) createS3Source(u *url.URL) (interfaces.Source, error) {
	sf.log.Debug("Creating S3 source", slog.String("bucket", u.Host))

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Source(u.Host, strings.TrimPrefix(u.Path, "/"), region, query.Get("endpoint"), accessKey, secretKey, sf.log)
}

// createVaultSource creates a Vault KV source.
// URI format: vault://host:port/mount/path[?tls=false]
func (sf *SourceFactory) createVaultSource(u *url.URL) (interfaces.Source, error) {
	sf.log.Debug("Creating Vault source", slog.String("uri", u.String()))

	mount, dataPath, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if mount == "" {
		return nil, fmt.Errorf("%w: expected vault://host/mount/path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if u.Query().Get("tls") == "false" {
		scheme = "http"
	}

	return NewVaultSource(scheme+"://"+u.Host, mount, dataPath, sf.log)
}

// createFileSource creates a local directory source.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *SourceFactory) createFileSource(u *url.URL) (interfaces.Source, error) {
	sf.log.Debug("Creating file source", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	return NewFileSource(path, sf.log), nil
}
