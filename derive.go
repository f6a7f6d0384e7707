package reactor

import "github.com/lumenstate/reactor/internal"

// Derivation is a read-only signal computed from other signals. It never
// recomputes eagerly: a write to one of its dependencies only marks it
// stale, and the actual recompute happens the next time something reads
// it (spec: "pull-driven on the next read").
type Derivation[T any] struct {
	rt   *internal.Runtime
	node *internal.Node
}

// NewDerivation creates a derivation whose value is compute's return
// value, re-run whenever a dependency read during the previous run has
// since changed. A panic inside compute is recovered and stored: every
// subsequent Read re-raises it until a dependency change triggers a
// recompute that succeeds. A panic that signals a self-referential read
// (the derivation, directly or transitively, reads itself) is never
// stored — it is fatal and always propagates raw, on every attempt.
func NewDerivation[T any](compute func() T) *Derivation[T] {
	rt := internal.GetRuntime()
	d := &Derivation[T]{rt: rt}
	d.node = rt.NewDerivation(func() (value any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == internal.ErrCycle {
					panic(rec)
				}
				if e, ok := rec.(error); ok && e == internal.ErrCycle {
					panic(rec)
				}
				value, err = nil, toError(rec)
			}
		}()
		return compute(), nil
	}, currentOwner(rt))
	return d
}

// Read resolves the derivation to a fresh value (recomputing only if
// actually stale) and returns it, tracking a dependency edge to whatever
// node is currently recomputing. A sticky derivation error, or a cycle, is
// re-raised here as a panic rather than returned — matching the thrown-
// exception model spec.md describes.
func (d *Derivation[T]) Read() T {
	value, err := d.rt.ReadDerivation(d.node)
	if err != nil {
		panic(err)
	}
	return as[T](value)
}

// Subscribe attaches fn to run after every value-changing recompute. It
// returns an unsubscribe function.
func (d *Derivation[T]) Subscribe(fn func()) func() {
	return internal.Subscribe(d.node, fn)
}
