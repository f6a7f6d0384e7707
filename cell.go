package reactor

import "github.com/lumenstate/reactor/internal"

// Cell is a writable, reactive leaf signal — the root of every dependency
// graph. Reading one inside a Derivation or Effect body links it as a
// dependency; writing one with a changed value schedules every downstream
// node that needs to recompute.
type Cell[T any] struct {
	rt   *internal.Runtime
	node *internal.Node
}

// NewCell creates a cell holding initial. If called while a Scope is
// running, the cell records that scope as its owner; otherwise the calling
// goroutine's root scope. Disposing that scope leaves the cell, its value
// and its edges to dependents in place.
func NewCell[T any](initial T) *Cell[T] {
	rt := internal.GetRuntime()
	return &Cell[T]{
		rt:   rt,
		node: rt.NewCell(initial, currentOwner(rt)),
	}
}

// Read returns the cell's current value, tracking a dependency edge to
// whatever derivation or effect is currently recomputing.
func (c *Cell[T]) Read() T {
	return as[T](c.rt.ReadCell(c.node))
}

// Write installs next as the cell's value. A write that leaves the value
// unchanged per SameValue equality is a no-op: no version bump, no
// downstream invalidation, no listener firing.
func (c *Cell[T]) Write(next T) {
	c.rt.WriteCell(c.node, next, valuesEqual)
}

// Subscribe attaches fn to run after every value-changing write (deferred
// to batch exit if called within one). It returns an unsubscribe function.
func (c *Cell[T]) Subscribe(fn func()) func() {
	return internal.Subscribe(c.node, fn)
}
