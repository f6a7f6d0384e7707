package store

import "github.com/lumenstate/reactor"

// FieldGetters maps a store state's top-level key names to a function
// extracting that key's value from a state snapshot — the fixed key
// table a recording proxy needs to exist at all in a statically typed
// language (Go has no runtime property enumeration over an arbitrary S).
type FieldGetters[S any] map[string]func(S) any

// Selectors is the recording proxy passed to a slice's selector phase.
// Calling Get(key) both declares key as a dependency and returns a
// reactive getter. The getter reads through a reactor.Cell mirroring the
// adapter's state, not the adapter directly — per spec.md §2 ("L2 slices
// are themselves derivations in L1"), so wrapping a slice method in a
// reactor.Derivation or reactor.Effect tracks the same dependency edge
// L1 would track for a plain Cell read.
type Selectors[S any] struct {
	cell   *reactor.Cell[S]
	fields FieldGetters[S]
	deps   map[string]struct{}
}

// Get declares key as a dependency of the slice being constructed and
// returns a getter that always reads the current value for it, tracked
// through the slice's backing cell.
func (s *Selectors[S]) Get(key string) func() any {
	s.deps[key] = struct{}{}
	field := s.fields[key]
	return func() any { return field(s.cell.Read()) }
}

// Slice is a named, reactive projection over a store: a dependency
// key-set discovered during the selector phase, and the method struct
// produced by the body phase.
type Slice[M any] struct {
	deps      map[string]struct{}
	methods   M
	subscribe func(func()) func()
}

// Methods returns the slice's public methods (the body phase's return
// value).
func (sl *Slice[M]) Methods() M { return sl.methods }

// Deps returns the set of top-level store keys this slice depends on.
func (sl *Slice[M]) Deps() map[string]struct{} { return sl.deps }

// Subscribe fires fn whenever a dependency of this slice changes. It
// returns an unsubscribe function.
func (sl *Slice[M]) Subscribe(fn func()) func() { return sl.subscribe(fn) }

// sliceConfig holds CreateSlice's options.
type sliceConfig struct{ mutable bool }

// Option configures CreateSlice.
type Option func(*sliceConfig)

// WithMutation grants the slice body a working Set closure. Without it,
// the slice is read-only: its body is still passed a set function (Go has
// no way to omit a parameter conditionally), but calling it panics —
// enforcing spec.md's "a slice whose body returns only query methods is a
// derivation; its set is absent and attempts to mutate through it fail."
func WithMutation() Option { return func(c *sliceConfig) { c.mutable = true } }

// CreateSlice runs the two-phase slice definition against adapter: phase
// one (selector) records which top-level keys (named via fields) the
// slice reads; phase two (body) receives reactive getters for exactly
// those keys plus a (possibly disabled) setter, and returns the slice's
// public method struct M.
func CreateSlice[S, M any](
	adapter Adapter[S],
	fields FieldGetters[S],
	selector func(*Selectors[S]) map[string]func() any,
	body func(selected map[string]func() any, set func(func(S) S)) M,
	opts ...Option,
) *Slice[M] {
	cfg := sliceConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Mirror the adapter's state into a Cell so selector reads go through
	// L1's tracking (internal.Runtime.ReadCell) instead of a bare
	// adapter.GetState() call that no Derivation could ever see.
	cell := reactor.NewCell(adapter.GetState())
	adapter.Subscribe(func(next, prev S) { cell.Write(next) })

	sel := &Selectors[S]{cell: cell, fields: fields, deps: make(map[string]struct{})}
	selected := selector(sel)

	set := func(update func(S) S) {
		if !cfg.mutable {
			panic("reactor/store: slice has no mutation capability; pass WithMutation to CreateSlice to expose Set")
		}
		adapter.SetState(update)
	}

	methods := body(selected, set)

	return &Slice[M]{
		deps:      sel.deps,
		methods:   methods,
		subscribe: subscribeToDeps(adapter, fields, sel.deps),
	}
}

// subscribeToDeps builds the slice's Subscribe: the keyed fast path when
// adapter implements KeyedAdapter, otherwise a whole-store subscription
// that only fires fn when one of deps actually changed value, per
// spec.md §4.5 "fall back to subscribing to the whole store and
// filtering internally."
func subscribeToDeps[S any](adapter Adapter[S], fields FieldGetters[S], deps map[string]struct{}) func(func()) func() {
	if keyed, ok := adapter.(KeyedAdapter[S]); ok {
		return func(fn func()) func() {
			return keyed.SubscribeToKeys(deps, fn)
		}
	}

	return func(fn func()) func() {
		return adapter.Subscribe(func(next, prev S) {
			for key := range deps {
				field := fields[key]
				if !valuesEqual(field(next), field(prev)) {
					fn()
					return
				}
			}
		})
	}
}

func valuesEqual(a, b any) bool {
	defer func() { recover() }()
	return a == b
}
