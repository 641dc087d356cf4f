package app

import (
	"net/http"
	"os"
	"path/filepath"

	"lola/internal/adapter"
	"lola/internal/audit"
	"lola/internal/config"
	"lola/internal/doctor"
	"lola/internal/installer"
	"lola/internal/logging"
	"lola/internal/market"
	"lola/internal/module"
	"lola/internal/registry"
	"lola/internal/resolver"
	"lola/internal/source"
)

type Options struct {
	// Home overrides the lola data directory (highest precedence, then
	// $LOLA_HOME via config defaults, then ~/.lola).
	Home       string
	ConfigPath string
	HTTPClient *http.Client
	// Choose resolves marketplace ambiguity interactively; nil means
	// ambiguity is a terminal error.
	Choose func([]market.Candidate) (market.Candidate, error)
}

// Service wires every component from one explicit configuration, so
// tests can construct a fully isolated instance from a temp directory.
type Service struct {
	Config    config.Config
	Paths     config.Paths
	Store     *module.Store
	Registry  *registry.Registry
	Market    *market.Manager
	Sources   *source.Manager
	Resolver  *resolver.Service
	Installer *installer.Service
	Doctor    *doctor.Service
	Audit     *audit.Logger
}

func New(opts Options) (*Service, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = filepath.Join(config.DefaultHome(), "config.toml")
	}
	cfg, err := config.Ensure(configPath)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	home := opts.Home
	if home == "" {
		home, err = config.ExpandPath(cfg.Storage.Home)
		if err != nil {
			return nil, err
		}
	}
	paths := config.NewPaths(home)
	if err := paths.EnsureLayout(); err != nil {
		return nil, err
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Fetch.TimeoutDuration()}
	}

	store := module.NewStore(paths.ModulesDir(), paths.StagingDir())
	reg := registry.New(paths.RegistryPath())
	mkt := market.NewManager(paths.MarketDir(), paths.MarketCacheDir(), client)
	sources := source.NewManager(client)
	auditLog := audit.New(paths.AuditPath())

	resolverSvc := &resolver.Service{
		Store:      store,
		Catalog:    mkt,
		Fetch:      sources,
		StagingDir: paths.StagingDir(),
		Timeout:    cfg.Fetch.TimeoutDuration(),
		Choose:     opts.Choose,
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		userHome = "."
	}
	installerSvc := &installer.Service{
		Store:    store,
		Registry: reg,
		Resolver: resolverSvc,
		Adapters: adapter.NewRuntime(),
		Audit:    auditLog,
		Home:     userHome,
	}
	doctorSvc := &doctor.Service{Paths: paths, Store: store, Registry: reg, Market: mkt}

	return &Service{
		Config:    cfg,
		Paths:     paths,
		Store:     store,
		Registry:  reg,
		Market:    mkt,
		Sources:   sources,
		Resolver:  resolverSvc,
		Installer: installerSvc,
		Doctor:    doctorSvc,
		Audit:     auditLog,
	}, nil
}
