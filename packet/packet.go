package packet

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/packetflow/types"
)

// Packet is a transient, single-use carrier of typed values ("decorations")
// flowing through one graph invocation. A packet starts staged: decorations
// attached while staged publish silently and trigger no subscribers. The
// factory arms the packet on dispatch, making every staged decoration
// visible atomically before the first filter activation.
//
// A packet is shared by everyone holding a reference during its active
// lifetime; it is reclaimed by the garbage collector when the last reference
// drops. There is no explicit release.
type Packet struct {
	id     uuid.UUID
	logger *zap.Logger

	// Wired once by the owning factory before the packet escapes.
	onDecorated func(p *Packet, key types.Key)
	onCompleted func(p *Packet)

	mu           sync.Mutex
	armed        bool
	completed    bool
	ctx          context.Context
	decorations  map[types.Key]any
	inputSubs    map[types.Key][]func(any)
	completeSubs []func(*Packet)
	ran          map[int]struct{}
}

func newPacket(logger *zap.Logger) *Packet {
	id := uuid.New()
	return &Packet{
		id:          id,
		logger:      logger.With(zap.String("packet_id", id.String())),
		ctx:         context.Background(),
		decorations: make(map[types.Key]any),
		inputSubs:   make(map[types.Key][]func(any)),
		ran:         make(map[int]struct{}),
	}
}

// ID returns the packet's unique identity.
func (p *Packet) ID() uuid.UUID {
	return p.id
}

// Completed reports whether the packet has signalled completion.
func (p *Packet) Completed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed
}

// Keys returns a snapshot of the decoration types currently present.
func (p *Packet) Keys() []types.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]types.Key, 0, len(p.decorations))
	for k := range p.decorations {
		keys = append(keys, k)
	}
	return keys
}

// Decorate publishes v on p under the type identity T. Publishing on an
// armed packet fires any pending one-shot subscribers for T; while the
// packet is staged the value is stored silently. Each type may be published
// at most once per packet, and nothing may be published after completion.
func Decorate[T any](p *Packet, v T) error {
	return p.decorate(types.KeyOf[T](), v)
}

func (p *Packet) decorate(key types.Key, v any) error {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return types.NewError(types.ErrPacketCompleted,
			"decorate "+key.String()+" on completed packet")
	}
	if _, dup := p.decorations[key]; dup {
		p.mu.Unlock()
		return types.NewError(types.ErrDuplicateDecoration,
			"packet already holds a decoration of type "+key.String())
	}
	p.decorations[key] = v
	var fires []func(any)
	if p.armed {
		fires = p.takeInputSubsLocked(key)
	}
	p.mu.Unlock()

	for _, fn := range fires {
		fn(v)
	}
	if p.onDecorated != nil {
		p.onDecorated(p, key)
	}
	return nil
}

// Get returns the decoration of type T if present.
func Get[T any](p *Packet) (T, bool) {
	var zero T
	p.mu.Lock()
	v, ok := p.decorations[types.KeyOf[T]()]
	p.mu.Unlock()
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// Has reports whether a decoration of type T is present.
func Has[T any](p *Packet) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.decorations[types.KeyOf[T]()]
	return ok
}

// OnInputReady registers a one-shot subscriber for the decoration of type T.
// If the packet is armed and already holds T the subscriber fires
// immediately on the calling goroutine; otherwise it fires when T is
// published on the armed packet, or at arm time for values staged earlier.
// A subscriber whose type is never published simply never fires.
func OnInputReady[T any](p *Packet, fn func(T)) {
	key := types.KeyOf[T]()

	p.mu.Lock()
	if p.armed {
		if v, ok := p.decorations[key]; ok {
			p.mu.Unlock()
			fn(v.(T))
			return
		}
	}
	p.inputSubs[key] = append(p.inputSubs[key], func(v any) { fn(v.(T)) })
	p.mu.Unlock()
}

// OnComplete registers a one-shot subscriber invoked when the packet
// completes. It fires immediately if the packet already completed.
func (p *Packet) OnComplete(fn func(*Packet)) {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		fn(p)
		return
	}
	p.completeSubs = append(p.completeSubs, fn)
	p.mu.Unlock()
}

// Complete marks the packet done and fires pending completion subscribers in
// registration order. After completion the decoration set is frozen.
// Idempotent.
func (p *Packet) Complete() {
	p.mu.Lock()
	if p.completed {
		p.mu.Unlock()
		return
	}
	p.completed = true
	subs := p.completeSubs
	p.completeSubs = nil
	p.mu.Unlock()

	for _, fn := range subs {
		fn(p)
	}
	if p.onCompleted != nil {
		p.onCompleted(p)
	}
	p.logger.Debug("packet completed", zap.Int("completion_subscribers", len(subs)))
}

// ForwardAllTo publishes a snapshot of p's decorations into dst, sharing
// references rather than copying values. Types dst already holds are
// skipped. The snapshot is taken once; decorations added to p afterwards do
// not follow. Returns the number of decorations forwarded.
func (p *Packet) ForwardAllTo(dst *Packet) int {
	type pair struct {
		key types.Key
		val any
	}
	p.mu.Lock()
	pairs := make([]pair, 0, len(p.decorations))
	for k, v := range p.decorations {
		pairs = append(pairs, pair{key: k, val: v})
	}
	p.mu.Unlock()

	forwarded := 0
	for _, kv := range pairs {
		if err := dst.decorate(kv.key, kv.val); err == nil {
			forwarded++
		}
	}
	p.logger.Debug("packet forwarded",
		zap.String("dst_packet_id", dst.id.String()),
		zap.Int("forwarded", forwarded),
		zap.Int("skipped", len(pairs)-forwarded),
	)
	return forwarded
}

// arm transitions the packet from staged to armed and fires subscribers
// whose decorations were staged before dispatch. Idempotent.
func (p *Packet) arm(ctx context.Context) {
	type firing struct {
		fn  func(any)
		val any
	}

	p.mu.Lock()
	if p.armed {
		p.mu.Unlock()
		return
	}
	p.armed = true
	if ctx != nil {
		p.ctx = ctx
	}
	var fires []firing
	for key, v := range p.decorations {
		for _, fn := range p.takeInputSubsLocked(key) {
			fires = append(fires, firing{fn: fn, val: v})
		}
	}
	p.mu.Unlock()

	for _, f := range fires {
		f.fn(f.val)
	}
}

// context returns the dispatch context, Background before dispatch.
func (p *Packet) context() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx
}

// takeInputSubsLocked removes and returns the pending subscribers for key.
// Removal before the callbacks run keeps every subscriber one-shot even
// under concurrent publication.
func (p *Packet) takeInputSubsLocked(key types.Key) []func(any) {
	subs := p.inputSubs[key]
	if len(subs) == 0 {
		return nil
	}
	delete(p.inputSubs, key)
	return subs
}
