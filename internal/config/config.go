package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"lola/internal/fsutil"
)

// DefaultFetchTimeout bounds every network fetch performed on behalf of
// the resolver and the marketplace refresher.
const DefaultFetchTimeout = 30 * time.Second

func DefaultConfig() Config {
	return Config{
		Version: ConfigVersion,
		Storage: StorageConfig{Home: DefaultHome()},
		Fetch:   FetchConfig{Timeout: DefaultFetchTimeout.String()},
		Logging: LoggingConfig{Level: "warn", Format: "text"},
	}
}

// Ensure loads the config at path, writing defaults first if it does not
// exist yet.
func Ensure(path string) (Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	cfg = DefaultConfig()
	if err := Save(path, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("CFG_PARSE: %w", err)
	}
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	cfg = Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}
	blob, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("CFG_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(path, blob, 0o644)
}

func Normalize(cfg Config) Config {
	if cfg.Version == 0 {
		cfg.Version = ConfigVersion
	}
	if cfg.Storage.Home == "" {
		cfg.Storage.Home = DefaultHome()
	}
	if cfg.Fetch.Timeout == "" {
		cfg.Fetch.Timeout = DefaultFetchTimeout.String()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return cfg
}

func Validate(cfg Config) error {
	if cfg.Version != ConfigVersion {
		return fmt.Errorf("CFG_VERSION: unsupported config version %d", cfg.Version)
	}
	if _, err := time.ParseDuration(cfg.Fetch.Timeout); err != nil {
		return fmt.Errorf("CFG_FETCH_TIMEOUT: %w", err)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("CFG_LOG_FORMAT: format must be text or json, got %q", cfg.Logging.Format)
	}
	return nil
}
