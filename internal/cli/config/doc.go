// Package config provides raftfleetctl's local CLI configuration.
//
//   - spec.go: CLIConfig struct (~/.raftfleet/cli.yaml)
//   - loader.go: configuration loading, saving and env/flag merging
//
// @design DS-0601
package config
