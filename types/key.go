package types

import "reflect"

// Key identifies a decoration or a scope member by its Go type. Keys are
// comparable and safe to use as map keys.
type Key struct {
	rt reflect.Type
}

// KeyOf returns the Key for type T. The instantiation works for interface
// and pointer types as well as plain structs.
func KeyOf[T any]() Key {
	return Key{rt: reflect.TypeOf((*T)(nil)).Elem()}
}

// KeyFor returns the Key for the dynamic type of v. A nil v yields the zero
// Key.
func KeyFor(v any) Key {
	return Key{rt: reflect.TypeOf(v)}
}

// Type exposes the underlying reflect.Type. Nil for the zero Key.
func (k Key) Type() reflect.Type {
	return k.rt
}

// IsZero reports whether the Key identifies no type.
func (k Key) IsZero() bool {
	return k.rt == nil
}

// String renders the type name for logs and metric labels.
func (k Key) String() string {
	if k.rt == nil {
		return "<none>"
	}
	return k.rt.String()
}
