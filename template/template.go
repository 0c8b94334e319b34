// Package template fetches the remote seed document that anchors a new node to
// an existing chain and extracts its bootstrap parameters.
package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/ruteri/validator-provisioning/interfaces"
)

// FileName is the workspace copy of the resolved template.
const FileName = "template.json"

// Document holds the bootstrap parameters carried by a template.
type Document struct {
	Epoch    uint64
	Waypoint interfaces.Waypoint
}

// Resolver downloads templates. The zero value uses http.DefaultClient.
type Resolver struct {
	Client *http.Client
}

// Resolve fetches url, stores a copy at destDir/template.json and parses it.
// There is a single attempt; any failure aborts resolution. A node's
// /epoch.json is a valid template; documents may also carry an
// autopay_instructions list, which the autopay stage signs.
func (r *Resolver) Resolve(ctx context.Context, url, destDir string) (Document, error) {
	body, err := r.fetch(ctx, url)
	if err != nil {
		return Document{}, err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return Document{}, interfaces.NewError(interfaces.ErrFileSystem, destDir, err)
	}
	path := filepath.Join(destDir, FileName)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return Document{}, interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}

	return Parse(path, body)
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrNetwork, url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, interfaces.NewError(interfaces.ErrNetwork, url, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrNetwork, url, err)
	}
	return body, nil
}

// Parse extracts epoch and waypoint from a template read from path.
// Both fields are required; path is only used in diagnostics.
func Parse(path string, data []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, interfaces.NewError(interfaces.ErrValidation, path, fmt.Errorf("malformed template: %w", err))
	}

	epochRaw, ok := raw["epoch"]
	if !ok {
		return Document{}, missingField(path, "epoch")
	}
	var epoch uint64
	if err := json.Unmarshal(epochRaw, &epoch); err != nil {
		return Document{}, interfaces.NewError(interfaces.ErrValidation, path, fmt.Errorf("field epoch: expected unsigned integer: %w", err))
	}

	waypointRaw, ok := raw["waypoint"]
	if !ok {
		return Document{}, missingField(path, "waypoint")
	}
	var waypointStr string
	if err := json.Unmarshal(waypointRaw, &waypointStr); err != nil {
		return Document{}, interfaces.NewError(interfaces.ErrValidation, path, fmt.Errorf("field waypoint: expected string: %w", err))
	}
	waypoint, err := interfaces.ParseWaypoint(waypointStr)
	if err != nil {
		return Document{}, interfaces.NewError(interfaces.ErrValidation, path, fmt.Errorf("field waypoint: %w", err))
	}

	return Document{Epoch: epoch, Waypoint: waypoint}, nil
}

// Load parses a template previously persisted in dir.
func Load(dir string) (Document, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	return Parse(path, data)
}

func missingField(path, field string) error {
	return interfaces.NewError(interfaces.ErrValidation, path, errors.New("missing field "+field))
}
