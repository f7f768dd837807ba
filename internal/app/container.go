package app

import (
	"context"
	"io"
	"sync"

	"github.com/doeshing/spechealth/internal/application/checks"
	configapp "github.com/doeshing/spechealth/internal/application/config"
	"github.com/doeshing/spechealth/internal/application/orchestrator"
	"github.com/doeshing/spechealth/internal/application/registry"
	"github.com/doeshing/spechealth/internal/domain"
	"github.com/doeshing/spechealth/internal/infrastructure/cache"
	"github.com/doeshing/spechealth/internal/infrastructure/config"
	"github.com/doeshing/spechealth/internal/infrastructure/history"
	"github.com/doeshing/spechealth/internal/infrastructure/httpprobe"
	"github.com/doeshing/spechealth/internal/pkg/logger"
	"github.com/doeshing/spechealth/internal/ports"
)

// Options configure BuildContainer.
type Options struct {
	Verbose    bool
	ConfigPath string
}

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config       domain.Config
	ConfigLoader *config.FileLoader
	Logger       *logger.ZapLogger
	Registry     *registry.Registry
	Orchestrator *orchestrator.Service
	Prober       ports.URLProber
	// HistoryStore and CacheStore are nil when disabled in the config.
	HistoryStore ports.HistoryRepository
	CacheStore   ports.CacheRepository
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, opts Options) (*Container, error) {
	cfgLoader := config.NewFileLoader(opts.ConfigPath)
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := configapp.Validate(cfg); err != nil {
		return nil, err
	}

	log := logger.New(opts.Verbose)

	var cacheStore ports.CacheRepository
	if cfg.Cache.Enabled {
		cacheStore = cache.NewFileCache(cfg.Cache)
	}
	var historyStore ports.HistoryRepository
	if cfg.History.Enabled {
		historyStore = history.NewSQLiteStore(history.DefaultDir())
	}

	prober := httpprobe.New(httpprobe.ConfigFrom(cfg.HTTP), cacheStore, log.Named("probe"))
	reg := registry.New(log.Named("registry"), checks.Builtins(checks.Deps{Prober: prober, Logger: log})...)
	if err := reg.AutoDiscover(ctx); err != nil {
		log.Warn("some checks could not be loaded", map[string]interface{}{"error": err.Error()})
	}
	applyDisabled(reg, cfg.Run.DisabledChecks, log)

	return &Container{
		Config:       cfg,
		ConfigLoader: cfgLoader,
		Logger:       log,
		Registry:     reg,
		Orchestrator: &orchestrator.Service{Registry: reg, Logger: log.Named("orchestrator")},
		Prober:       prober,
		HistoryStore: historyStore,
		CacheStore:   cacheStore,
	}, nil
}

// Close releases the history store. Safe to call on a partially built container.
func (c *Container) Close() error {
	if closer, ok := c.HistoryStore.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func applyDisabled(reg *registry.Registry, ids []string, log ports.Logger) {
	for _, id := range ids {
		if !reg.SetEnabled(id, false) {
			log.Warn("disabled check is not registered", map[string]interface{}{"id": id})
		}
	}
}

// RunOptions turns the configured run defaults into orchestrator options.
func RunOptions(cfg domain.Config) orchestrator.Options {
	opts := orchestrator.Options{
		ContinueOnError:     orchestrator.Bool(cfg.Run.ContinueOnError),
		Timeout:             cfg.Run.Timeout,
		Parallel:            cfg.Run.Parallel,
		MaxConcurrency:      cfg.Run.MaxConcurrency,
		RespectDependencies: cfg.Run.RespectDependencies,
	}
	if len(cfg.Run.Categories) > 0 {
		opts.Categories = cfg.Run.Categories
	}
	return opts
}

var (
	defaultOnce     sync.Once
	defaultRegistry *registry.Registry
)

// DefaultRegistry is a process-wide registry holding the built-in checks,
// for callers that do not build a Container. It has no prober, so the
// external-specs check warns instead of probing.
func DefaultRegistry() *registry.Registry {
	defaultOnce.Do(func() {
		defaultRegistry = registry.New(logger.NewNop(), checks.Builtins(checks.Deps{})...)
	})
	return defaultRegistry
}

// RunHealthChecks runs checks from the default registry against provider.
func RunHealthChecks(ctx context.Context, provider ports.Provider, opts orchestrator.Options) domain.Report {
	svc := &orchestrator.Service{Registry: DefaultRegistry(), Logger: logger.NewNop()}
	return svc.Run(ctx, provider, opts)
}
