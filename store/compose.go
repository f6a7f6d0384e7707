package store

// AnySlice erases a Slice[M]'s method type so heterogeneous slices can be
// passed into Compose by name — the Go stand-in for JS objects freely
// holding differently-shaped values.
type AnySlice = *Slice[any]

// Erase boxes a concretely-typed slice for use as a Compose dependency,
// preserving its identity (Methods/Deps/Subscribe all still forward to
// the original slice) rather than copying it.
func Erase[M any](sl *Slice[M]) AnySlice {
	return &Slice[any]{
		deps:      sl.deps,
		methods:   any(sl.methods),
		subscribe: sl.subscribe,
	}
}

// Compose joins named inner slices into one: its dependency set is the
// union of every inner slice's, and body closes over the inner slices'
// methods directly (so action references keep their identity across
// slice boundaries, per spec.md §4.6 "Composition").
func Compose[M any](inner map[string]AnySlice, body func(inner map[string]AnySlice) M) *Slice[M] {
	deps := make(map[string]struct{})
	for _, sl := range inner {
		for key := range sl.Deps() {
			deps[key] = struct{}{}
		}
	}

	methods := body(inner)

	return &Slice[M]{
		deps:    deps,
		methods: methods,
		subscribe: func(fn func()) func() {
			unsubs := make([]func(), 0, len(inner))
			for _, sl := range inner {
				unsubs = append(unsubs, sl.Subscribe(fn))
			}
			return func() {
				for _, unsub := range unsubs {
					unsub()
				}
			}
		},
	}
}
