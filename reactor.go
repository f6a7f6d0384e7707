// Package reactor is a reactive signal graph: writable cells, lazily
// recomputed derivations, scheduled effects and the scopes that own them.
// It is the generic, type-safe surface over reactor/internal's untyped
// node graph.
package reactor

import "github.com/lumenstate/reactor/internal"

// as recovers a T from an internal node's any-typed value, treating a nil
// (never-yet-computed zero value) as T's zero value rather than panicking
// on the type assertion.
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// valuesEqual is the SameValue-style equality spec.md requires for
// suppressing no-op writes and no-op recomputes: plain `==` where the
// dynamic types are comparable, never-equal for anything else (a slice,
// map or func value never short-circuits a write).
func valuesEqual(a, b any) bool {
	defer func() { recover() }()
	return a == b
}

// toError normalizes an arbitrary recovered panic value into an error,
// passing an existing error through unchanged.
func toError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return &panicError{rec}
}

type panicError struct{ v any }

func (e *panicError) Error() string {
	if s, ok := e.v.(string); ok {
		return s
	}
	return "reactor: " + stringify(e.v)
}

func stringify(v any) string {
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return "panic: non-error value"
}

// currentOwner is the owner new nodes attach to: whatever scope is running
// (per-goroutine, via internal.Runtime), or that runtime's root scope if
// none is.
func currentOwner(rt *internal.Runtime) *internal.Owner {
	if o := rt.CurrentOwner(); o != nil {
		return o
	}
	return rt.RootOwner()
}
