package reactor

import "github.com/lumenstate/reactor/internal"

// Context propagates a value down the scope tree: a descendant scope sees
// whatever ancestor last called Set, without needing it threaded through
// every constructor explicitly.
type Context[T any] struct {
	key     *contextKey
	initial T
}

// contextKey is a unique, comparable identity for one Context[T] instance
// — the map key SetContextValue/ContextValue use, so two Context values of
// the same T never collide.
type contextKey struct{}

// NewContext creates a context whose value is initial until some ancestor
// scope calls Set.
func NewContext[T any](initial T) *Context[T] {
	return &Context[T]{key: &contextKey{}, initial: initial}
}

// Value returns the value set by the nearest ancestor scope (walking from
// whichever scope is currently running) that called Set, or initial if
// none has.
func (c *Context[T]) Value() T {
	rt := internal.GetRuntime()
	if v, ok := currentOwner(rt).ContextValue(c.key); ok {
		return as[T](v)
	}
	return c.initial
}

// Set installs value for this context on the currently running scope.
// Descendant scopes created afterward see it via Value; ancestors and
// siblings do not.
func (c *Context[T]) Set(value T) {
	rt := internal.GetRuntime()
	currentOwner(rt).SetContextValue(c.key, value)
}
