package genesis

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ruteri/validator-provisioning/config"
	"github.com/ruteri/validator-provisioning/interfaces"
	"gopkg.in/yaml.v3"
)

// NodeFileName is the node configuration materialized in every workspace.
const NodeFileName = "node.yaml"

// Role of the node described by a node file.
type Role string

const (
	RoleValidator Role = "validator"
	RoleFullNode  Role = "full_node"
)

// NodeFile is the on-disk node configuration.
type NodeFile struct {
	Base      BaseConfig      `yaml:"base"`
	Execution ExecutionConfig `yaml:"execution"`
	Storage   StorageConfig   `yaml:"storage"`
}

type BaseConfig struct {
	DataDir  string         `yaml:"data_dir"`
	Role     Role           `yaml:"role"`
	Waypoint WaypointConfig `yaml:"waypoint"`
}

// WaypointConfig points at a waypoint file or carries one inline.
type WaypointConfig struct {
	FromFile   string `yaml:"from_file,omitempty"`
	FromConfig string `yaml:"from_config,omitempty"`
}

type ExecutionConfig struct {
	GenesisFileLocation string `yaml:"genesis_file_location,omitempty"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// NewNodeFile describes the node for cfg using whatever genesis artifacts are
// present in the workspace. A waypoint file wins over the configured base
// waypoint.
func NewNodeFile(cfg *config.NodeConfig, role Role) (*NodeFile, error) {
	home := cfg.Workspace.NodeHome
	nf := &NodeFile{
		Base: BaseConfig{
			DataDir: home,
			Role:    role,
		},
		Storage: StorageConfig{Dir: cfg.DBDirPath()},
	}

	blob := filepath.Join(home, BlobFileName)
	if exists, err := fileExists(blob); err != nil {
		return nil, err
	} else if exists {
		nf.Execution.GenesisFileLocation = blob
	}

	waypointPath := filepath.Join(home, WaypointFileName)
	exists, err := fileExists(waypointPath)
	if err != nil {
		return nil, err
	}
	switch {
	case exists:
		raw, err := os.ReadFile(waypointPath)
		if err != nil {
			return nil, interfaces.NewError(interfaces.ErrFileSystem, waypointPath, err)
		}
		if _, err := interfaces.ParseWaypoint(strings.TrimSpace(string(raw))); err != nil {
			return nil, interfaces.NewError(interfaces.ErrValidation, waypointPath, err)
		}
		nf.Base.Waypoint.FromFile = waypointPath
	case cfg.ChainInfo.BaseWaypoint != nil:
		nf.Base.Waypoint.FromConfig = cfg.ChainInfo.BaseWaypoint.String()
	}

	return nf, nil
}

// WriteNodeFile writes node.yaml into cfg's workspace, overwriting any
// existing file, and returns its path.
func WriteNodeFile(cfg *config.NodeConfig, role Role) (string, error) {
	nf, err := NewNodeFile(cfg, role)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(nf)
	if err != nil {
		return "", interfaces.NewError(interfaces.ErrConfig, NodeFileName, err)
	}

	path := filepath.Join(cfg.Workspace.NodeHome, NodeFileName)
	if err := os.MkdirAll(cfg.Workspace.NodeHome, 0755); err != nil {
		return "", interfaces.NewError(interfaces.ErrFileSystem, cfg.Workspace.NodeHome, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	return path, nil
}

// ReadNodeFile parses a node file.
func ReadNodeFile(path string) (*NodeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, interfaces.NewError(interfaces.ErrFileSystem, path, err)
	}
	var nf NodeFile
	if err := yaml.Unmarshal(data, &nf); err != nil {
		return nil, interfaces.NewError(interfaces.ErrValidation, path, fmt.Errorf("malformed node file: %w", err))
	}
	return &nf, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, interfaces.NewError(interfaces.ErrFileSystem, path, err)
}
