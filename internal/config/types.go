package config

import (
	"fmt"
	"time"
)

// ConfigVersion is the frozen v1 schema version.
const ConfigVersion = 1

type Config struct {
	Version int           `toml:"version"`
	Storage StorageConfig `toml:"storage"`
	Fetch   FetchConfig   `toml:"fetch"`
	Logging LoggingConfig `toml:"logging"`
}

type StorageConfig struct {
	Home string `toml:"home"`
}

type FetchConfig struct {
	Timeout string `toml:"timeout"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Timeout returns the parsed fetch timeout, falling back to the default
// when unset.
func (f FetchConfig) TimeoutDuration() time.Duration {
	if f.Timeout == "" {
		return DefaultFetchTimeout
	}
	d, err := time.ParseDuration(f.Timeout)
	if err != nil || d <= 0 {
		return DefaultFetchTimeout
	}
	return d
}

// Scope represents the installation scope: user-wide or per-project.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
)

func ParseScope(raw string) (Scope, error) {
	switch Scope(raw) {
	case ScopeUser, ScopeProject:
		return Scope(raw), nil
	}
	return "", fmt.Errorf("CFG_SCOPE: scope must be %q or %q, got %q", ScopeUser, ScopeProject, raw)
}
