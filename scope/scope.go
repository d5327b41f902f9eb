package scope

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/packetflow/types"
)

// Scope is a node in a tree of execution contexts. Each scope hosts at most
// one singleton member per type and notifies one-shot watchers when a member
// of a watched type is installed on the scope itself or any descendant.
type Scope struct {
	name   string
	path   string
	parent *Scope
	logger *zap.Logger

	mu       sync.Mutex
	children []*Scope
	members  map[types.Key]any
	watchers map[types.Key][]func(any)
	closed   bool
}

// Option configures a root scope created by New.
type Option func(*Scope)

// WithLogger attaches a logger to the scope tree. Children inherit it.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scope) {
		if logger != nil {
			s.logger = logger.With(zap.String("component", "scope"))
		}
	}
}

// New creates a root scope.
func New(name string, opts ...Option) *Scope {
	s := &Scope{
		name:     name,
		path:     name,
		logger:   zap.NewNop(),
		members:  make(map[types.Key]any),
		watchers: make(map[types.Key][]func(any)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Child creates a nested scope. A child created under an already closed
// parent starts closed, so every operation on it degrades exactly as it
// would on any closed scope.
func (s *Scope) Child(name string) *Scope {
	c := &Scope{
		name:     name,
		path:     s.path + "/" + name,
		parent:   s,
		logger:   s.logger,
		members:  make(map[types.Key]any),
		watchers: make(map[types.Key][]func(any)),
	}

	s.mu.Lock()
	if s.closed {
		c.closed = true
	} else {
		s.children = append(s.children, c)
	}
	s.mu.Unlock()

	s.logger.Debug("scope child created",
		zap.String("scope", c.path),
		zap.Bool("parent_closed", c.closed),
	)
	return c
}

// Name returns the scope's own segment of the path.
func (s *Scope) Name() string {
	return s.name
}

// Path returns the slash-joined path from the root to this scope.
func (s *Scope) Path() string {
	return s.path
}

// Closed reports whether the scope has been torn down.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears down the scope and its whole subtree. Members and pending
// watchers are dropped; watchers never fire on close. Idempotent.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	children := s.children
	s.children = nil
	s.members = nil
	s.watchers = nil
	s.mu.Unlock()

	for _, c := range children {
		c.Close()
	}

	s.logger.Debug("scope closed", zap.String("scope", s.path))
}

// Install hosts v as the singleton member of type T on s. A scope holds at
// most one member per type; a second install of the same type fails with
// DUPLICATE_MEMBER. Watchers for T pending on s or on any ancestor fire
// after the member is visible, since an ancestor's watch covers its whole
// subtree.
func Install[T any](s *Scope, v T) error {
	key := types.KeyOf[T]()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.NewError(types.ErrScopeClosed,
			fmt.Sprintf("install %s on closed scope %s", key, s.path))
	}
	if _, dup := s.members[key]; dup {
		s.mu.Unlock()
		return types.NewError(types.ErrDuplicateMember,
			fmt.Sprintf("scope %s already hosts a member of type %s", s.path, key))
	}
	s.members[key] = v
	fns := s.takeWatchersLocked(key)
	s.mu.Unlock()

	for a := s.parent; a != nil; a = a.parent {
		a.mu.Lock()
		fns = append(fns, a.takeWatchersLocked(key)...)
		a.mu.Unlock()
	}

	for _, fn := range fns {
		fn(v)
	}

	s.logger.Debug("scope member installed",
		zap.String("scope", s.path),
		zap.Stringer("type", key),
		zap.Int("watchers_fired", len(fns)),
	)
	return nil
}

// Find returns the member of type T hosted directly on s.
func Find[T any](s *Scope) (T, bool) {
	var zero T
	key := types.KeyOf[T]()

	s.mu.Lock()
	v, ok := s.members[key]
	s.mu.Unlock()

	if !ok {
		return zero, false
	}
	return v.(T), true
}

// FindRecursive searches s and its descendants depth-first, children in
// creation order, and returns the first member of type T found.
func FindRecursive[T any](s *Scope) (T, bool) {
	var zero T
	v, ok := s.findRecursive(types.KeyOf[T]())
	if !ok {
		return zero, false
	}
	return v.(T), true
}

func (s *Scope) findRecursive(key types.Key) (any, bool) {
	s.mu.Lock()
	if v, ok := s.members[key]; ok {
		s.mu.Unlock()
		return v, true
	}
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.mu.Unlock()

	for _, c := range children {
		if v, ok := c.findRecursive(key); ok {
			return v, true
		}
	}
	return nil, false
}

// NotifyWhenInstalled arranges for fn to run exactly once with the member of
// type T as soon as one is resolvable from s: immediately when such a member
// already exists in s's subtree, otherwise when the first one is installed
// there later. The subscription is dropped without firing if s closes first;
// registering on an already closed scope is a no-op.
func NotifyWhenInstalled[T any](s *Scope, fn func(T)) {
	key := types.KeyOf[T]()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if v, ok := s.findSubtreeLocked(key); ok {
		s.mu.Unlock()
		fn(v.(T))
		return
	}
	s.watchers[key] = append(s.watchers[key], func(v any) { fn(v.(T)) })
	s.mu.Unlock()
}

// findSubtreeLocked searches s and its descendants while s.mu is held.
// Locks nest strictly parent before child.
func (s *Scope) findSubtreeLocked(key types.Key) (any, bool) {
	if v, ok := s.members[key]; ok {
		return v, true
	}
	for _, c := range s.children {
		c.mu.Lock()
		v, ok := c.findSubtreeLocked(key)
		c.mu.Unlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// takeWatchersLocked removes and returns the pending watchers for key.
// Removal before the callbacks run is what makes every watcher one-shot.
func (s *Scope) takeWatchersLocked(key types.Key) []func(any) {
	ws := s.watchers[key]
	if len(ws) == 0 {
		return nil
	}
	delete(s.watchers, key)
	return ws
}
