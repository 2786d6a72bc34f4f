// Package engine is the function-calling execution engine behind the
// booking assistant: a registry of tenant-scoped functions, a dispatcher
// that plans and executes call batches, and a workflow manager for
// multi-step branching flows, fronted by a facade that adds a
// concurrency cap, result caching, and call statistics.
//
// Usage:
//
//	eng, err := engine.New(myExecutor)
//	result, err := eng.Dispatch(ctx, call, cctx)
package engine

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/agendo/engine/cache"
	"github.com/agendo/engine/config"
	"github.com/agendo/engine/dispatcher"
	"github.com/agendo/engine/internal/metrics"
	"github.com/agendo/engine/middleware"
	"github.com/agendo/engine/registry"
	"github.com/agendo/engine/types"
	"github.com/agendo/engine/workflow"
)

// Engine composes the registry, dispatcher and workflow manager behind
// one entry point. Create instances with New; every dependency is
// injected so tests and multi-tenant hosts can run isolated engines.
type Engine struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *registry.Registry
	dispatcher *dispatcher.Dispatcher
	workflows  *workflow.Manager
	cache      cache.Store
	collector  *metrics.Collector
	sem        *semaphore.Weighted
	stats      *callStats

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// Option configures the engine created by New.
type Option func(*builder)

type builder struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      cache.Store
	registerer prometheus.Registerer
	authorizer middleware.Authorizer
	notifier   workflow.NotificationSender
}

// WithConfig sets the engine configuration. Defaults apply otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(b *builder) { b.cfg = cfg }
}

// WithLogger sets the zap logger shared by all components.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithCacheStore overrides the result cache backend.
func WithCacheStore(store cache.Store) Option {
	return func(b *builder) { b.store = store }
}

// WithMetrics registers the engine's Prometheus collectors with reg and
// wires them into the dispatch path.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(b *builder) { b.registerer = reg }
}

// WithAuthorizer wires permission checks into the middleware chain.
func WithAuthorizer(authorizer middleware.Authorizer) Option {
	return func(b *builder) { b.authorizer = authorizer }
}

// WithNotifier wires the sender used by workflow notification steps.
func WithNotifier(notifier workflow.NotificationSender) Option {
	return func(b *builder) { b.notifier = notifier }
}

// New creates an engine around the given executor. The executor performs
// the real side effects behind function calls; everything else (caching,
// concurrency limits, retries, middleware) lives in the engine.
func New(executor dispatcher.Executor, opts ...Option) (*Engine, error) {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.cfg == nil {
		b.cfg = config.DefaultConfig()
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}

	store := b.store
	if store == nil && b.cfg.Cache.Enabled {
		switch b.cfg.Cache.Backend {
		case "redis":
			var err error
			store, err = cache.NewRedisStore(cache.RedisConfig{
				Addr:      b.cfg.Redis.Addr,
				Password:  b.cfg.Redis.Password,
				DB:        b.cfg.Redis.DB,
				KeyPrefix: b.cfg.Redis.KeyPrefix,
				PoolSize:  b.cfg.Redis.PoolSize,
			}, b.logger)
			if err != nil {
				return nil, err
			}
		default:
			store = cache.NewMemoryStore(b.cfg.Cache.MaxEntries, b.logger)
		}
	}

	reg := registry.New(b.logger)

	var collector *metrics.Collector
	if b.registerer != nil {
		collector = metrics.NewCollector(b.registerer)
	}

	dispatchOpts := []dispatcher.Option{}
	if collector != nil {
		dispatchOpts = append(dispatchOpts, dispatcher.WithMetrics(collector))
	}
	if b.authorizer != nil {
		dispatchOpts = append(dispatchOpts, dispatcher.WithAuthorizer(b.authorizer))
	}
	if b.cfg.Engine.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(b.cfg.Engine.RateLimit), int(b.cfg.Engine.RateLimit)+1)
		dispatchOpts = append(dispatchOpts, dispatcher.WithRateLimiter(limiter))
	}
	disp := dispatcher.New(reg, executor, b.logger, dispatchOpts...)

	workflowOpts := []workflow.Option{}
	if b.notifier != nil {
		workflowOpts = append(workflowOpts, workflow.WithNotifier(b.notifier))
	}
	wm := workflow.New(disp, b.logger, workflowOpts...)

	e := &Engine{
		cfg:        b.cfg,
		logger:     b.logger.With(zap.String("component", "engine")),
		registry:   reg,
		dispatcher: disp,
		workflows:  wm,
		cache:      store,
		collector:  collector,
		sem:        semaphore.NewWeighted(int64(b.cfg.Engine.MaxConcurrentCalls)),
		stats:      newCallStats(),
	}
	if store != nil && b.cfg.Cache.SweepInterval > 0 {
		e.startSweeper()
	}

	e.logger.Info("engine initialized",
		zap.Int("max_concurrent_calls", b.cfg.Engine.MaxConcurrentCalls),
		zap.Bool("cache_enabled", store != nil),
	)
	return e, nil
}

// RegisterFunction adds a function to the catalog. It returns false when
// the id is already registered.
func (e *Engine) RegisterFunction(fn types.RegisteredFunction) bool {
	return e.registry.Register(fn)
}

// UnregisterFunction removes a function from the catalog.
func (e *Engine) UnregisterFunction(id string) bool {
	return e.registry.Unregister(id)
}

// RegisterWorkflow validates and stores a workflow definition.
func (e *Engine) RegisterWorkflow(def workflow.Definition) bool {
	return e.workflows.Register(def)
}

// RegisterMiddleware installs a named middleware functions can opt into.
func (e *Engine) RegisterMiddleware(mw middleware.Middleware) {
	e.registry.RegisterMiddleware(mw)
}

// LoadCatalog registers every function a catalog provider supplies for
// the given domains.
func (e *Engine) LoadCatalog(provider registry.CatalogProvider, domains ...string) int {
	return e.registry.LoadCatalog(provider, domains...)
}

// Registry exposes the function registry for read access.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Workflows exposes the workflow manager for read access.
func (e *Engine) Workflows() *workflow.Manager {
	return e.workflows
}

// startSweeper launches the background goroutine that drops expired
// cache entries on the configured interval.
func (e *Engine) startSweeper() {
	ctx, cancel := context.WithCancel(context.Background())
	e.sweepCancel = cancel
	e.sweepDone = make(chan struct{})

	go func() {
		defer close(e.sweepDone)
		ticker := time.NewTicker(e.cfg.Cache.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.cache.Sweep(ctx)
			}
		}
	}()
}

// Close stops the cache sweeper and releases the cache backend.
func (e *Engine) Close() error {
	if e.sweepCancel != nil {
		e.sweepCancel()
		<-e.sweepDone
	}
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}
