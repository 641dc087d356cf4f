package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// DefaultHome resolves the lola home directory: $LOLA_HOME when set,
// otherwise ~/.lola.
func DefaultHome() string {
	if env := os.Getenv("LOLA_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lola"
	}
	return filepath.Join(home, ".lola")
}

// Paths derives every on-disk location from an explicit home directory,
// so tests and callers never depend on ambient process state.
type Paths struct {
	Home string
}

func NewPaths(home string) Paths {
	if home == "" {
		home = DefaultHome()
	}
	return Paths{Home: home}
}

func (p Paths) ConfigPath() string { return filepath.Join(p.Home, "config.toml") }
func (p Paths) ModulesDir() string { return filepath.Join(p.Home, "modules") }
func (p Paths) ModuleDir(name string) string {
	return filepath.Join(p.ModulesDir(), name)
}
func (p Paths) RegistryPath() string { return filepath.Join(p.Home, "installed.toml") }
func (p Paths) MarketDir() string { return filepath.Join(p.Home, "market") }
func (p Paths) MarketCacheDir() string { return filepath.Join(p.MarketDir(), "cache") }
func (p Paths) StagingDir() string { return filepath.Join(p.Home, "staging") }
func (p Paths) AuditPath() string { return filepath.Join(p.Home, "audit.log") }

// EnsureLayout creates the home directory tree.
func (p Paths) EnsureLayout() error {
	dirs := []string{p.Home, p.ModulesDir(), p.MarketDir(), p.MarketCacheDir(), p.StagingDir()}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	if path == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
	}
	return path, nil
}
