// Package config defines raftfleetctl's CLI configuration structure.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".raftfleet", "cli.yaml")
}

// Load loads CLI configuration from path, or DefaultConfigPath() when path
// is empty. A missing file is not an error; it yields Default().
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]ConnectionConfig)
	}
	return cfg, nil
}

// Save writes cfg to path, or DefaultConfigPath() when path is empty.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, raw, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Merge overlays env (RAFTFLEETCTL_* values, key without the prefix) and
// then flags (explicit non-empty overrides) onto a copy of cfg, flags
// taking priority.
func Merge(cfg *CLIConfig, env map[string]string, flags map[string]string) *CLIConfig {
	merged := *cfg
	if v, ok := env["SERVER"]; ok && v != "" {
		merged.DefaultServer = v
	}
	if v, ok := env["OUTPUT"]; ok && v != "" {
		merged.DefaultOutput = v
	}
	if v, ok := flags["server"]; ok && v != "" {
		merged.DefaultServer = v
	}
	if v, ok := flags["output"]; ok && v != "" {
		merged.DefaultOutput = v
	}
	return &merged
}
