package config

import (
	"fmt"

	"github.com/raftfleet/raftfleet/internal/infra/confloader"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "RAFTFLEET_"

// Loader loads FleetConfig from layered sources: defaults, then an
// optional YAML file, then environment variables, each overriding the
// last. The layering itself is confloader's (file < env); this type only
// adds FleetConfig's defaults and validation on top.
type Loader struct {
	envPrefix string
	filePath  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix overrides the default environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// NewLoader constructs a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load layers the configuration file (if any) and environment variables
// on top of Default(), then validates the result.
func (l *Loader) Load() (*FleetConfig, error) {
	cfg := Default()
	inner := confloader.NewLoader(confloader.WithEnvPrefix(l.envPrefix), confloader.WithConfigFile(l.filePath))
	if err := inner.Load(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
