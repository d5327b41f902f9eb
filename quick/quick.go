// =============================================================================
// Package quick — One-Line Runtime Construction
// =============================================================================
// Provides a convenience entry point that assembles a complete relay runtime
// with minimal boilerplate: configuration, logging, metrics, telemetry, the
// root scope and its packet factory, in that order. Close tears the same
// pieces down in reverse.
//
// The package lives under quick/ (not root) so the root package stays a pure
// re-export surface with no construction logic of its own.
//
// Usage:
//
//	rt, err := quick.New(quick.WithConfigPath("packetflow.yaml"))
//	rt, err := quick.New(quick.WithScopeName("camera"), quick.WithFilters(f1, f2))
//	rt, err := quick.New(quick.WithConfig(cfg), quick.WithLogger(myLogger))
//
// =============================================================================
package quick

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/packetflow/config"
	"github.com/BaSui01/packetflow/internal/metrics"
	"github.com/BaSui01/packetflow/internal/pool"
	"github.com/BaSui01/packetflow/internal/telemetry"
	"github.com/BaSui01/packetflow/packet"
	"github.com/BaSui01/packetflow/scope"
)

// Option configures the runtime created by New.
type Option func(*options)

type options struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	scopeName  string
	filters    []*packet.Filter
}

// WithConfig sets a pre-built configuration. It skips the loader entirely;
// the configuration is still validated.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConfigPath loads configuration from the given YAML file, with
// environment variables overriding file values. A missing file means
// defaults.
func WithConfigPath(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithLogger sets a custom zap logger. Defaults to a logger built from the
// configuration's log section.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithScopeName names the root scope. Defaults to "root".
func WithScopeName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.scopeName = name
		}
	}
}

// WithFilters registers filters on the runtime's factory during construction.
func WithFilters(filters ...*packet.Filter) Option {
	return func(o *options) { o.filters = append(o.filters, filters...) }
}

// Runtime bundles the assembled pieces. Its scope hosts the packet factory,
// so relays can leash straight onto Root().Ref().
type Runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	providers *telemetry.Providers
	root      *scope.Scope
	factory   *packet.Factory
}

// New assembles a runtime: config, logger, metrics collector, telemetry
// providers, root scope, packet factory.
func New(opts ...Option) (*Runtime, error) {
	o := &options{scopeName: "root"}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		loader := config.NewLoader()
		if o.configPath != "" {
			loader = loader.WithConfigPath(o.configPath)
		}
		var err error
		cfg, err = loader.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger := o.logger
	if logger == nil {
		logger = NewLogger(cfg.Log)
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	root := scope.New(o.scopeName, scope.WithLogger(logger))

	factory, err := packet.NewFactory(root,
		packet.WithLogger(logger),
		packet.WithCollector(collector),
		packet.WithPumpConfig(pool.Config{
			MaxWorkers:  cfg.Pump.MaxWorkers,
			QueueSize:   cfg.Pump.QueueSize,
			IdleTimeout: cfg.Pump.IdleTimeout,
		}),
		packet.WithRateLimit(cfg.Dispatch.RateLimitRPS, cfg.Dispatch.RateLimitBurst),
	)
	if err != nil {
		root.Close()
		_ = providers.Shutdown(context.Background())
		return nil, fmt.Errorf("install packet factory: %w", err)
	}

	for _, flt := range o.filters {
		if err := factory.AddFilter(flt); err != nil {
			factory.Close()
			root.Close()
			_ = providers.Shutdown(context.Background())
			return nil, fmt.Errorf("add filter %q: %w", flt.Name(), err)
		}
	}

	logger.Info("packetflow runtime ready",
		zap.String("scope", o.scopeName),
		zap.Int("filters", len(o.filters)),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	return &Runtime{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		providers: providers,
		root:      root,
		factory:   factory,
	}, nil
}

// Root returns the root scope hosting the factory.
func (r *Runtime) Root() *scope.Scope {
	return r.root
}

// Factory returns the packet factory installed on the root scope.
func (r *Runtime) Factory() *packet.Factory {
	return r.factory
}

// Logger returns the runtime logger.
func (r *Runtime) Logger() *zap.Logger {
	return r.logger
}

// Config returns the effective configuration.
func (r *Runtime) Config() *config.Config {
	return r.cfg
}

// Close tears the runtime down in reverse construction order: the factory
// drains its pump, the scope tree closes, telemetry flushes and shuts down.
// Idempotent.
func (r *Runtime) Close(ctx context.Context) error {
	r.factory.Close()
	r.root.Close()

	err := r.providers.Shutdown(ctx)
	_ = r.logger.Sync()
	if err != nil {
		return fmt.Errorf("shutdown telemetry: %w", err)
	}
	return nil
}
