// Package config defines raftfleetctl's CLI configuration structure.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.DefaultServer != "http://localhost:7400" {
		t.Errorf("DefaultServer = %q, want %q", cfg.DefaultServer, "http://localhost:7400")
	}
	if cfg.DefaultOutput != "table" {
		t.Errorf("DefaultOutput = %q, want %q", cfg.DefaultOutput, "table")
	}
	if cfg.Connections == nil {
		t.Error("Connections should not be nil")
	}
	if len(cfg.Connections) != 0 {
		t.Errorf("Connections should be empty, got %d", len(cfg.Connections))
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path == "" {
		t.Error("DefaultConfigPath should not be empty")
	}
	if !filepath.IsAbs(path) {
		t.Error("Path should be absolute")
	}

	expected := filepath.Join(".raftfleet", "cli.yaml")
	if !containsSuffix(path, expected) {
		t.Errorf("Path = %q, should end with %q", path, expected)
	}
}

func containsSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("Load should not error for nonexistent file: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load should return default config")
	}
	if cfg.DefaultServer != "http://localhost:7400" {
		t.Error("Should return default config for nonexistent file")
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.yaml")

	cfg := Default()
	cfg.DefaultServer = "http://fleet.internal:7400"
	cfg.CurrentConnection = "prod"
	cfg.Connections["prod"] = ConnectionConfig{Server: "http://prod.internal:7400"}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.DefaultServer != cfg.DefaultServer {
		t.Errorf("DefaultServer = %q, want %q", got.DefaultServer, cfg.DefaultServer)
	}
	if got.CurrentConnection != "prod" {
		t.Errorf("CurrentConnection = %q, want %q", got.CurrentConnection, "prod")
	}
	if got.Connections["prod"].Server != "http://prod.internal:7400" {
		t.Errorf("saved connection server = %q, want %q", got.Connections["prod"].Server, "http://prod.internal:7400")
	}
}

func TestSave_CreateDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "cli.yaml")

	if err := Save(Default(), path); err != nil {
		t.Errorf("Save failed: %v", err)
	}

	parentDir := filepath.Dir(path)
	if _, err := os.Stat(parentDir); os.IsNotExist(err) {
		t.Error("Directory should have been created")
	}
}

func TestMerge(t *testing.T) {
	cfg := Default()

	env := map[string]string{"SERVER": "http://example.com:7400"}
	flags := map[string]string{"output": "json"}

	result := Merge(cfg, env, flags)
	if result == nil {
		t.Fatal("Merge should return config")
	}
	if result.DefaultServer != "http://example.com:7400" {
		t.Errorf("DefaultServer = %q, want env override", result.DefaultServer)
	}
	if result.DefaultOutput != "json" {
		t.Errorf("DefaultOutput = %q, want flag override", result.DefaultOutput)
	}
	if cfg.DefaultServer != "http://localhost:7400" {
		t.Error("Merge should not mutate the original config")
	}
}

func TestMerge_FlagsWinOverEnv(t *testing.T) {
	cfg := Default()

	env := map[string]string{"SERVER": "http://env-server:7400"}
	flags := map[string]string{"server": "http://flag-server:7400"}

	result := Merge(cfg, env, flags)
	if result.DefaultServer != "http://flag-server:7400" {
		t.Errorf("DefaultServer = %q, want flag to win over env", result.DefaultServer)
	}
}

func TestCLIConfig_Struct(t *testing.T) {
	cfg := CLIConfig{
		DefaultServer:     "https://api.example.com",
		DefaultOutput:     "json",
		CurrentConnection: "prod",
		Connections: map[string]ConnectionConfig{
			"prod": {Server: "https://prod.example.com"},
			"dev":  {Server: "http://localhost:7400"},
		},
	}

	if cfg.DefaultServer != "https://api.example.com" {
		t.Error("DefaultServer not set correctly")
	}
	if len(cfg.Connections) != 2 {
		t.Error("Connections count incorrect")
	}
}
