package packet

import (
	"reflect"
	"sync"
)

// Deferred is a write-once result slot. A relay output subscriber fills it
// at most once with a copy of the value produced inside a child packet; a
// slot that is never filled means "no result this round", which callers
// detect through Get's second return value.
type Deferred[T any] struct {
	mu     sync.Mutex
	filled bool
	value  T
	onFill func(T)
}

// NewDeferred creates an empty slot.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{}
}

// NewCheckout creates a slot coupled to parent: filling it additionally
// decorates parent with the copied value, so the result re-enters the parent
// graph as a regular decoration. A duplicate on the parent is dropped, the
// slot itself still fills.
func NewCheckout[T any](parent *Packet) *Deferred[T] {
	return &Deferred[T]{
		onFill: func(v T) {
			_ = Decorate[T](parent, v)
		},
	}
}

// Fill stores a copy of v. Only the first fill wins; later fills report
// false and leave the slot untouched.
func (d *Deferred[T]) Fill(v T) bool {
	copied := clonePointee(v)

	d.mu.Lock()
	if d.filled {
		d.mu.Unlock()
		return false
	}
	d.value = copied
	d.filled = true
	hook := d.onFill
	d.mu.Unlock()

	if hook != nil {
		hook(copied)
	}
	return true
}

// Get returns the stored value once the slot has been filled.
func (d *Deferred[T]) Get() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.filled {
		var zero T
		return zero, false
	}
	return d.value, true
}

// Filled reports whether the slot holds a value.
func (d *Deferred[T]) Filled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.filled
}

// clonePointee copies v for handoff across the packet boundary. Pointer
// values get a fresh allocation holding a copy of the pointee, one level
// deep; everything else copies by value.
func clonePointee[T any](v T) T {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return v
	}
	clone := reflect.New(rv.Type().Elem())
	clone.Elem().Set(rv.Elem())
	return clone.Interface().(T)
}
