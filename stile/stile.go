package stile

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/packetflow/internal/metrics"
	"github.com/BaSui01/packetflow/internal/telemetry"
	"github.com/BaSui01/packetflow/packet"
	"github.com/BaSui01/packetflow/scope"
	"github.com/BaSui01/packetflow/types"
)

// Stile relays one invocation of a child filter graph as if the whole graph
// were a single filter in the parent graph. Leash points it at a scope whose
// subtree hosts (or will host) a packet factory; Invoke mints a child packet
// there, classifies each argument as input or output, wires result
// propagation back to the parent packet and hands the child to its own
// graph without waiting for it.
//
// A stile with no bound factory treats Invoke as a silent no-op; that is the
// normal state during graph startup, not an error.
type Stile struct {
	logger    *zap.Logger
	collector *metrics.Collector
	limiter   *rate.Limiter

	mu         sync.Mutex
	generation uint64
	factory    *packet.Factory
	shaped     bool
	shape      []slot
}

type slot struct {
	role Role
	key  types.Key
}

// Option configures a relay created by New.
type Option func(*Stile)

// WithLogger attaches a logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(st *Stile) {
		if logger != nil {
			st.logger = logger
		}
	}
}

// WithCollector wires the metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(st *Stile) {
		st.collector = c
	}
}

// WithThrottle caps invocations at rps per second with the given burst. A
// denied invocation is a counted no-op, not an error: the relay stays
// non-blocking under load and drops rounds instead of queueing them.
func WithThrottle(rps float64, burst int) Option {
	return func(st *Stile) {
		if rps > 0 {
			st.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// New creates an unwired relay. Call Leash to point it at a child graph.
func New(opts ...Option) *Stile {
	st := &Stile{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(st)
	}
	st.logger = st.logger.With(zap.String("component", "stile"))
	return st
}

// Leash clears the current factory binding and, when target is still alive,
// subscribes for the moment a packet factory becomes resolvable anywhere in
// target's subtree. The subscription fires at most once; firing after the
// target was torn down aborts quietly. Leashing again before a pending
// subscription fires discards that subscription's effect: the last bind
// wins. Leashing an already-gone target leaves the relay unwired, which is
// an expected state, not an error.
func (st *Stile) Leash(target scope.Ref) {
	st.mu.Lock()
	st.generation++
	gen := st.generation
	st.factory = nil
	st.mu.Unlock()

	s, ok := target.Deref()
	if !ok {
		st.logger.Debug("leash target already closed")
		return
	}

	scope.NotifyWhenInstalled(s, func(_ *packet.Factory) {
		tgt, ok := target.Deref()
		if !ok {
			st.logger.Debug("leash target closed before binding completed")
			return
		}
		f, ok := scope.FindRecursive[*packet.Factory](tgt)
		if !ok {
			return
		}

		st.mu.Lock()
		bound := st.generation == gen
		if bound {
			st.factory = f
		}
		st.mu.Unlock()

		if bound {
			st.logger.Debug("relay bound to factory", zap.String("scope", tgt.Path()))
		} else {
			st.logger.Debug("stale leash binding discarded", zap.String("scope", tgt.Path()))
		}
	})
}

// Invoke relays one round through the child graph and returns without
// waiting for it. The child packet receives every input argument's value
// before dispatch; output arguments get one-shot extraction subscribers; if
// no argument is an output, the child's completion forwards all of its
// decorations into parent instead.
//
// The (role, type) shape of args is pinned on the first invocation, and a
// later invocation with a different shape fails with SHAPE_MISMATCH. That is
// the only error Invoke returns: an unwired or throttled relay, a torn-down
// child scope and a failing child dispatch are all silent no-ops with their
// own metrics statuses.
func (st *Stile) Invoke(ctx context.Context, parent *packet.Packet, args ...Arg) error {
	mode := invocationMode(args)

	if err := st.pinShape(args); err != nil {
		st.collector.RecordRelayInvocation(mode, "mismatch")
		return err
	}

	if st.limiter != nil && !st.limiter.Allow() {
		st.collector.RecordRelayInvocation(mode, "throttled")
		st.logger.Debug("relay invocation throttled")
		return nil
	}

	f := st.boundFactory()
	if f == nil {
		st.collector.RecordRelayInvocation(mode, "unwired")
		st.logger.Debug("relay unwired, invocation skipped")
		return nil
	}

	ctx, span := telemetry.Tracer().Start(ctx, "stile.invoke",
		trace.WithAttributes(
			attribute.String("relay.mode", mode),
			attribute.Int("relay.args", len(args)),
			attribute.String("packet.parent_id", parent.ID().String()),
		),
	)
	defer span.End()

	child := f.NewPacket()

	outputs := 0
	for _, a := range args {
		switch a.role {
		case RoleInput:
			if err := a.share(child); err != nil {
				st.logger.Warn("input rejected by child packet",
					zap.Stringer("type", a.key),
					zap.Error(err),
				)
			}
		case RoleOutput:
			outputs++
			key := a.key
			a.watch(child, func() {
				st.collector.RecordExtraction(key.String())
				st.logger.Debug("output slot filled", zap.Stringer("type", key))
			})
		}
	}

	if outputs == 0 {
		child.OnComplete(func(c *packet.Packet) {
			n := c.ForwardAllTo(parent)
			st.collector.RecordForwardAll(n)
			st.logger.Debug("child completion forwarded to parent",
				zap.String("child_id", c.ID().String()),
				zap.Int("decorations", n),
			)
		})
	}

	if err := f.Dispatch(ctx, child); err != nil {
		st.collector.RecordRelayInvocation(mode, "dispatch_error")
		st.logger.Warn("child dispatch failed",
			zap.String("child_id", child.ID().String()),
			zap.Error(err),
		)
		return nil
	}

	st.collector.RecordRelayInvocation(mode, "ok")
	return nil
}

// Wired reports whether the relay currently resolves to a live factory.
func (st *Stile) Wired() bool {
	return st.boundFactory() != nil
}

// boundFactory returns the bound factory after checking it is still alive.
// A binding that died since it was installed is dropped here, so the relay
// never works against a factory whose scope was torn down.
func (st *Stile) boundFactory() *packet.Factory {
	st.mu.Lock()
	f := st.factory
	st.mu.Unlock()
	if f == nil {
		return nil
	}
	if !f.Alive() {
		st.mu.Lock()
		if st.factory == f {
			st.factory = nil
		}
		st.mu.Unlock()
		return nil
	}
	return f
}

// pinShape records the (role, type) shape of the first invocation and
// rejects any later invocation that differs.
func (st *Stile) pinShape(args []Arg) error {
	cur := make([]slot, len(args))
	for i, a := range args {
		cur[i] = slot{role: a.role, key: a.key}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.shaped {
		st.shape = cur
		st.shaped = true
		return nil
	}
	if slotsEqual(st.shape, cur) {
		return nil
	}
	return types.NewError(types.ErrShapeMismatch,
		fmt.Sprintf("relay pinned to shape (%s), invoked with (%s)",
			formatShape(st.shape), formatShape(cur)))
}

func invocationMode(args []Arg) string {
	for _, a := range args {
		if a.role == RoleOutput {
			return "extract"
		}
	}
	return "forward"
}

func slotsEqual(a, b []slot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatShape(slots []slot) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = s.role.String() + "[" + s.key.String() + "]"
	}
	return strings.Join(parts, ", ")
}
