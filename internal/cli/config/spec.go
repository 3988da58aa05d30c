// Package config defines raftfleetctl's CLI configuration structure.
package config

// CLIConfig is the local configuration for raftfleetctl.
type CLIConfig struct {
	// DefaultServer is loaded, saved and shown by "config show";
	// EnsureConnected does not read it, so with no --server and no current
	// connection the --server flag's own default applies.
	DefaultServer string `yaml:"default_server"`
	// DefaultOutput is one of "table", "json", "yaml".
	DefaultOutput string `yaml:"default_output"`

	// Connections holds saved raftfleetd admin endpoints by name.
	Connections map[string]ConnectionConfig `yaml:"connections"`
	// CurrentConnection names the entry in Connections last chosen by
	// "connect --save" or "connect use". It is not read at startup, so each
	// raftfleetctl process begins with no current connection.
	CurrentConnection string `yaml:"current_connection"`
}

// ConnectionConfig stores a saved raftfleetd admin endpoint.
type ConnectionConfig struct {
	Server string `yaml:"server"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "http://localhost:7400",
		DefaultOutput: "table",
		Connections:   make(map[string]ConnectionConfig),
	}
}
