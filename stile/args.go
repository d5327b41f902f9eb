package stile

import (
	"github.com/BaSui01/packetflow/packet"
	"github.com/BaSui01/packetflow/types"
)

// Role classifies one call argument. The role is fixed at construction time
// by the In/Out constructor used, never inspected at runtime.
type Role uint8

const (
	// RoleInput marks data supplied to the child graph.
	RoleInput Role = iota + 1
	// RoleOutput marks a result slot filled from the child graph.
	RoleOutput
)

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "in"
	case RoleOutput:
		return "out"
	default:
		return "unknown"
	}
}

// Arg is one role-tagged call argument for Stile.Invoke. Build args with In
// and Out; the generic signatures make a value passed where a slot belongs a
// compile error rather than a runtime one. Arguments carry no
// cross-dependencies, so their evaluation order inside Invoke is not part of
// the contract.
type Arg struct {
	role  Role
	key   types.Key
	share func(child *packet.Packet) error
	watch func(child *packet.Packet, fired func())
}

// Role returns the argument's classification.
func (a Arg) Role() Role {
	return a.role
}

// Key returns the argument's type identity.
func (a Arg) Key() types.Key {
	return a.key
}

// In classifies v as an input: its reference is shared into the child packet
// under T's identity, with no copy. A child graph that never consumes the
// decoration simply leaves it unused. Callers that want mutations to stay
// visible across the boundary pass pointer-shaped types.
func In[T any](v T) Arg {
	return Arg{
		role: RoleInput,
		key:  types.KeyOf[T](),
		share: func(child *packet.Packet) error {
			return packet.Decorate(child, v)
		},
	}
}

// Out classifies dst as an output: a one-shot subscriber on the child packet
// fills dst with a copy of the first T the child graph publishes. Exactly
// one delivery happens per output argument per invocation; a child that
// never produces T leaves dst unset, which is how "no result this round"
// reads.
func Out[T any](dst *packet.Deferred[T]) Arg {
	return Arg{
		role: RoleOutput,
		key:  types.KeyOf[T](),
		watch: func(child *packet.Packet, fired func()) {
			packet.OnInputReady(child, func(v T) {
				dst.Fill(v)
				fired()
			})
		},
	}
}
