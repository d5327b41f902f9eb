package packet

import (
	"context"

	"github.com/BaSui01/packetflow/types"
)

// Filter is one node of a child graph: a named function that activates
// exactly once per packet, as soon as every one of its typed inputs is
// present on an armed packet. Filters publish results by decorating the
// packet they received, which may in turn satisfy further filters.
type Filter struct {
	name     string
	inputs   []types.Key
	deferred bool
	run      func(ctx context.Context, p *Packet, vals []any) error
}

// Filter1 builds a filter over one typed input.
func Filter1[A any](name string, fn func(ctx context.Context, p *Packet, a A) error) *Filter {
	return &Filter{
		name:   name,
		inputs: []types.Key{types.KeyOf[A]()},
		run: func(ctx context.Context, p *Packet, vals []any) error {
			return fn(ctx, p, vals[0].(A))
		},
	}
}

// Filter2 builds a filter that activates when both typed inputs are present.
func Filter2[A, B any](name string, fn func(ctx context.Context, p *Packet, a A, b B) error) *Filter {
	return &Filter{
		name:   name,
		inputs: []types.Key{types.KeyOf[A](), types.KeyOf[B]()},
		run: func(ctx context.Context, p *Packet, vals []any) error {
			return fn(ctx, p, vals[0].(A), vals[1].(B))
		},
	}
}

// Filter3 builds a filter that activates when all three typed inputs are
// present.
func Filter3[A, B, C any](name string, fn func(ctx context.Context, p *Packet, a A, b B, c C) error) *Filter {
	return &Filter{
		name:   name,
		inputs: []types.Key{types.KeyOf[A](), types.KeyOf[B](), types.KeyOf[C]()},
		run: func(ctx context.Context, p *Packet, vals []any) error {
			return fn(ctx, p, vals[0].(A), vals[1].(B), vals[2].(C))
		},
	}
}

// Deferred marks the filter to run on the factory's worker pump instead of
// inline on the goroutine that satisfied it. Returns the filter so the call
// chains off the constructor.
func (f *Filter) Deferred() *Filter {
	f.deferred = true
	return f
}

// Name returns the filter's registration name.
func (f *Filter) Name() string {
	return f.name
}

// Inputs returns a copy of the filter's required decoration types.
func (f *Filter) Inputs() []types.Key {
	out := make([]types.Key, len(f.inputs))
	copy(out, f.inputs)
	return out
}

// IsDeferred reports whether the filter runs on the worker pump.
func (f *Filter) IsDeferred() bool {
	return f.deferred
}
