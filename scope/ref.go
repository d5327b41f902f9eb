package scope

// Ref is a non-owning handle to a Scope. A Ref never keeps its scope alive:
// once the scope is closed the handle reports it as gone. The zero Ref is
// permanently expired, which makes it a safe "unset" value.
type Ref struct {
	target *Scope
}

// Ref returns a non-owning handle to s.
func (s *Scope) Ref() Ref {
	return Ref{target: s}
}

// Deref returns the scope while it is still alive.
func (r Ref) Deref() (*Scope, bool) {
	if r.target == nil || r.target.Closed() {
		return nil, false
	}
	return r.target, true
}

// Alive reports whether the handle still resolves to a live scope.
func (r Ref) Alive() bool {
	_, ok := r.Deref()
	return ok
}
