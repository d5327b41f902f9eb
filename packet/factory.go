package packet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/packetflow/internal/metrics"
	"github.com/BaSui01/packetflow/internal/pool"
	"github.com/BaSui01/packetflow/internal/telemetry"
	"github.com/BaSui01/packetflow/scope"
	"github.com/BaSui01/packetflow/types"
)

// Factory mints packets for one scope and dispatches them through the
// registered filter graph. NewFactory installs the factory into its hosting
// scope, which is what makes it discoverable by relays watching the tree.
type Factory struct {
	host      *scope.Scope
	logger    *zap.Logger
	collector *metrics.Collector
	pump      *pool.Pump
	limiter   *rate.Limiter
	scratch   *pool.SlicePool[activation]

	mu      sync.Mutex
	filters []*Filter
	names   map[string]struct{}
	closed  bool
}

type activation struct {
	index int
	flt   *Filter
	vals  []any
}

type factoryOptions struct {
	logger    *zap.Logger
	collector *metrics.Collector
	pump      pool.Config
	limiter   *rate.Limiter
}

// Option configures a factory created by NewFactory.
type Option func(*factoryOptions)

// WithLogger attaches a logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *factoryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCollector wires the metrics collector. Without it the factory records
// nothing.
func WithCollector(c *metrics.Collector) Option {
	return func(o *factoryOptions) {
		o.collector = c
	}
}

// WithPumpConfig sizes the worker pump that runs deferred filters.
func WithPumpConfig(cfg pool.Config) Option {
	return func(o *factoryOptions) {
		o.pump = cfg
	}
}

// WithRateLimit throttles Dispatch to rps packets per second with the given
// burst. Dispatch blocks for admission, so the limit applies backpressure to
// dispatchers rather than dropping packets.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *factoryOptions) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewFactory builds a factory and installs it into s as the *Factory
// singleton. Installing fires any pending factory watchers on s and its
// ancestors. Fails if s is closed or already hosts a factory.
func NewFactory(s *scope.Scope, opts ...Option) (*Factory, error) {
	o := factoryOptions{
		logger: zap.NewNop(),
		pump:   pool.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Factory{
		host: s,
		logger: o.logger.With(
			zap.String("component", "factory"),
			zap.String("scope", s.Path()),
		),
		collector: o.collector,
		limiter:   o.limiter,
		scratch:   pool.NewSlicePool[activation](8),
		names:     make(map[string]struct{}),
	}
	if o.pump.PanicHandler == nil {
		o.pump.PanicHandler = func(r any) {
			f.logger.Error("deferred filter panicked", zap.Any("panic", r))
		}
	}
	f.pump = pool.NewPump(o.pump)

	if err := scope.Install[*Factory](s, f); err != nil {
		f.pump.Close()
		return nil, err
	}
	f.logger.Info("packet factory installed")
	return f, nil
}

// Alive reports whether the factory can still mint and dispatch: it has not
// been closed and its hosting scope is still up. Relays check this before
// every use of a bound factory.
func (f *Factory) Alive() bool {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	return !closed && !f.host.Closed()
}

// NewPacket mints a staged packet bound to this factory's graph. Decorations
// attached before Dispatch are staged; Dispatch arms the packet and makes
// them visible atomically.
func (f *Factory) NewPacket() *Packet {
	p := newPacket(f.logger)
	p.onDecorated = f.packetDecorated
	p.onCompleted = f.packetCompleted
	f.collector.RecordPacketCreated(f.host.Name())
	f.logger.Debug("packet minted", zap.String("packet_id", p.id.String()))
	return p
}

// AddFilter registers a graph node. Filter names are unique per factory.
func (f *Factory) AddFilter(flt *Filter) error {
	if flt == nil || flt.name == "" {
		return types.NewError(types.ErrInvalidConfig, "filter requires a name")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return types.NewError(types.ErrFactoryClosed,
			fmt.Sprintf("add filter %s on closed factory", flt.name))
	}
	if _, dup := f.names[flt.name]; dup {
		return types.NewError(types.ErrDuplicateFilter,
			fmt.Sprintf("factory already has a filter named %s", flt.name))
	}
	f.names[flt.name] = struct{}{}
	f.filters = append(f.filters, flt)

	f.logger.Debug("filter registered",
		zap.String("filter", flt.name),
		zap.Int("inputs", len(flt.inputs)),
		zap.Bool("deferred", flt.deferred),
	)
	return nil
}

// Dispatch arms p and runs every already-satisfied filter exactly once.
// Filters satisfied by decorations published later activate as those values
// arrive; deferred filters are enqueued on the pump, not awaited. Filter
// errors are logged and counted, never returned to the dispatcher. Dispatch
// blocks only for rate-limit admission when a limit is configured.
func (f *Factory) Dispatch(ctx context.Context, p *Packet) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return types.NewError(types.ErrFactoryClosed, "dispatch on closed factory")
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("dispatch admission: %w", err)
		}
	}

	ctx, span := telemetry.Tracer().Start(ctx, "packet.dispatch",
		trace.WithAttributes(
			attribute.String("packet.id", p.id.String()),
			attribute.String("packet.scope", f.host.Path()),
		),
	)
	defer span.End()

	p.arm(ctx)
	f.evaluate(ctx, p)
	return nil
}

// Close stops the pump after draining queued deferred activations and
// invalidates the factory. Idempotent.
func (f *Factory) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.pump.Close()
	f.logger.Info("packet factory closed")
}

// PumpStats returns the deferred-activation pump statistics.
func (f *Factory) PumpStats() pool.Stats {
	return f.pump.Stats()
}

func (f *Factory) packetDecorated(p *Packet, key types.Key) {
	f.collector.RecordDecoration(key.String())
	f.evaluate(p.context(), p)
}

func (f *Factory) packetCompleted(p *Packet) {
	f.collector.RecordPacketCompleted(f.host.Name())
}

// evaluate claims and runs every filter whose inputs are all present on p.
// Claims happen under the packet lock, which is what bounds each filter to a
// single activation per packet no matter how many goroutines publish
// concurrently. Staged and completed packets never activate anything.
func (f *Factory) evaluate(ctx context.Context, p *Packet) {
	f.mu.Lock()
	filters := f.filters
	f.mu.Unlock()

	runs := f.scratch.Get()
	defer func() { f.scratch.Put(runs) }()

	p.mu.Lock()
	if !p.armed || p.completed {
		p.mu.Unlock()
		return
	}
	for i, flt := range filters {
		if _, done := p.ran[i]; done {
			continue
		}
		vals := make([]any, len(flt.inputs))
		satisfied := true
		for j, key := range flt.inputs {
			v, present := p.decorations[key]
			if !present {
				satisfied = false
				break
			}
			vals[j] = v
		}
		if !satisfied {
			continue
		}
		p.ran[i] = struct{}{}
		runs = append(runs, activation{index: i, flt: flt, vals: vals})
	}
	p.mu.Unlock()

	for _, act := range runs {
		if act.flt.deferred {
			f.enqueue(ctx, p, act.flt, act.vals)
		} else {
			f.runFilter(ctx, p, act.flt, act.vals, "inline")
		}
	}
}

func (f *Factory) enqueue(ctx context.Context, p *Packet, flt *Filter, vals []any) {
	err := f.pump.Submit(ctx, func(taskCtx context.Context) error {
		return f.runFilter(taskCtx, p, flt, vals, "deferred")
	})
	if err != nil {
		f.collector.RecordFilterActivation(flt.name, "deferred", "rejected", 0)
		f.logger.Warn("deferred filter rejected",
			zap.String("filter", flt.name),
			zap.String("packet_id", p.id.String()),
			zap.Error(err),
		)
	}
}

func (f *Factory) runFilter(ctx context.Context, p *Packet, flt *Filter, vals []any, mode string) error {
	start := time.Now()
	err := flt.run(ctx, p, vals)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
		f.logger.Error("filter activation failed",
			zap.String("filter", flt.name),
			zap.String("packet_id", p.id.String()),
			zap.Error(err),
		)
	}
	f.collector.RecordFilterActivation(flt.name, mode, status, elapsed)
	return err
}
