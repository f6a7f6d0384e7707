// Package resource implements the L3 layer: an async fetcher bound to the
// signal graph with reactive re-fetch, in-flight cancellation, race safety
// and flush-strategy customization. It builds entirely on the public
// reactor/reactor and reactor/flush surfaces rather than reactor/internal
// directly — a resource is just a state cell plus one internal effect.
package resource

import (
	"context"
	"sync"

	"github.com/lumenstate/reactor"
	"github.com/lumenstate/reactor/flush"
)

// Status tags which branch of State is populated.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusReady
	StatusError
)

// State is the discriminated value a Resource holds: exactly one of Value
// or Err is meaningful, depending on Status.
type State[T any] struct {
	Status Status
	Value  T
	Err    error
}

// Option configures New.
type Option[T any] func(*config[T])

type config[T any] struct {
	enabled func() bool
	flush   flush.Strategy
	deps    []func()
}

// Enabled fixes the resource's enable state to a constant. Disabled means
// idle: no fetch ever runs until re-enabled.
func Enabled[T any](v bool) Option[T] {
	return func(c *config[T]) { c.enabled = func() bool { return v } }
}

// EnabledBy makes enable state reactive: the resource re-evaluates (and,
// crossing false→true, fetches) whenever d's value changes.
func EnabledBy[T any](d *reactor.Derivation[bool]) Option[T] {
	return func(c *config[T]) { c.enabled = d.Read }
}

// Flush selects the strategy that schedules a dependency-triggered
// re-fetch. Defaults to flush.Sync(). Refetch bypasses this entirely.
func Flush[T any](s flush.Strategy) Option[T] {
	return func(c *config[T]) { c.flush = s }
}

// DependsOn declares additional reactive inputs the resource should
// re-fetch on. Each read is a thunk that performs a tracked read of some
// cell or derivation (e.g. func() { categoryID.Read() }); it runs
// synchronously inside the effect body, before the fetch is dispatched,
// so the read is captured by the effect's tracking context the fetcher
// itself no longer runs inside of. The Go analogue of FluffyUI's
// Refetch(deps ...Signalish): reactive dependency discovery has to be
// explicit here because fetcher now runs off-goroutine (see Resource.run).
func DependsOn[T any](reads ...func()) Option[T] {
	return func(c *config[T]) { c.deps = append(c.deps, reads...) }
}

// Resource wraps a cancellable async fetcher in a reactive state cell: an
// internal effect re-dispatches fetcher whenever Enabled (when reactive) or
// a DependsOn input changes, guarding stale completions by a monotonic
// fetch version. fetcher itself runs on its own goroutine rather than
// inline on the effect's tracked recompute — see Resource.run — so the
// graph never blocks on it, per spec.md §9's "the core never blocks".
type Resource[T any] struct {
	fetcher func(context.Context) (T, error)
	enabled func() bool
	deps    []func()

	state *reactor.Cell[State[T]]

	loading *reactor.Derivation[bool]
	data    *reactor.Derivation[T]
	errD    *reactor.Derivation[error]
	idle    *reactor.Derivation[bool]

	// mu guards version and cancel: the effect goroutine writes them on
	// every run, the in-flight fetch's own completion goroutine reads
	// version to detect staleness, and these two can run concurrently
	// exactly when a dependency change races a slow fetch.
	mu      sync.Mutex
	version uint64
	cancel  context.CancelFunc

	scope  *reactor.Scope
	effect *reactor.Effect
}

// New creates a resource and runs its first fetch (or goes idle, if
// initially disabled) immediately. fetcher takes a context.Context as the
// cancellation handle for an in-flight call — the idiomatic substitute for
// an AbortSignal. fetcher is dispatched on its own goroutine and does not
// block the graph; pass DependsOn for any reactive input a re-fetch should
// track, since reads performed inside fetcher itself happen off the
// effect's tracked recompute and are invisible to the graph.
func New[T any](fetcher func(context.Context) (T, error), opts ...Option[T]) *Resource[T] {
	cfg := config[T]{enabled: func() bool { return true }, flush: flush.Sync()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Resource[T]{
		fetcher: fetcher,
		enabled: cfg.enabled,
		deps:    cfg.deps,
		state:   reactor.NewCell(State[T]{Status: StatusIdle}),
	}
	r.scope = reactor.NewScope()

	r.scope.Run(func() {
		r.loading = reactor.NewDerivation(func() bool { return r.state.Read().Status == StatusPending })
		r.data = reactor.NewDerivation(func() T { return r.state.Read().Value })
		r.errD = reactor.NewDerivation(func() error { return r.state.Read().Err })
		r.idle = reactor.NewDerivation(func() bool { return r.state.Read().Status == StatusIdle })

		r.effect = reactor.NewEffect(func() func() {
			r.run()
			return nil
		}, reactor.WithFlush(cfg.flush))
	})

	return r
}

// run is the effect body, re-entered on construction and on every
// dependency change. It reads enabled and every DependsOn input
// synchronously (so they register as tracked dependencies of the effect)
// then dispatches the actual fetch to its own goroutine, per spec.md §9
// "the core never blocks" — the Runtime's coarse lock is held only for
// this synchronous part, never for the fetch itself.
func (r *Resource[T]) run() {
	for _, dep := range r.deps {
		dep()
	}

	if !r.enabled() {
		r.mu.Lock()
		r.cancelInFlightLocked()
		r.mu.Unlock()
		r.state.Write(State[T]{Status: StatusIdle})
		return
	}

	r.mu.Lock()
	r.version++
	version := r.version
	r.cancelInFlightLocked()

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	r.state.Write(State[T]{Status: StatusPending})

	go r.fetchAndCommit(ctx, version)
}

// fetchAndCommit runs fetcher off the graph and writes its result back
// through state, under the same fetch-version guard spec.md §4.7 step 6
// describes for a promise's .then/.catch handlers. It may run concurrently
// with a later call to run (a dependency change or Refetch racing a slow
// fetch), which is exactly the race the version guard exists to resolve —
// mirrors FluffyUI's Refetch(fetchID) goroutine dispatch.
func (r *Resource[T]) fetchAndCommit(ctx context.Context, version uint64) {
	value, err := r.invoke(ctx)

	r.mu.Lock()
	stale := version != r.version
	r.mu.Unlock()
	if stale {
		// Superseded by a later fetch (dep change or explicit Refetch)
		// started before this one completed — drop it, per the
		// at-most-one-current-fetch race-safety invariant.
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			// Our own cancellation, not a real failure — expected when
			// deps change or the resource is disposed mid-fetch.
			return
		}
		r.state.Write(State[T]{Status: StatusError, Err: err})
		return
	}
	r.state.Write(State[T]{Status: StatusReady, Value: value})
}

// invoke calls fetcher, converting a synchronous panic into the same error
// shape as a returned error (spec.md §4.9: "treated identically to an
// async rejection").
func (r *Resource[T]) invoke(ctx context.Context) (value T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = toError(rec)
		}
	}()
	return r.fetcher(ctx)
}

// cancelInFlightLocked aborts the in-flight fetch's context. Callers must
// hold r.mu.
func (r *Resource[T]) cancelInFlightLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Read returns the resource's current discriminated state.
func (r *Resource[T]) Read() State[T] { return r.state.Read() }

// Loading reports whether a fetch is currently in flight.
func (r *Resource[T]) Loading() bool { return r.loading.Read() }

// Data returns the last successfully fetched value, or T's zero value if
// none has arrived yet.
func (r *Resource[T]) Data() T { return r.data.Read() }

// Err returns the last fetch error, or nil.
func (r *Resource[T]) Err() error { return r.errD.Read() }

// Idle reports whether the resource is disabled.
func (r *Resource[T]) Idle() bool { return r.idle.Read() }

// Refetch forces a re-invocation with the same dependency context: bumps
// the fetch version, aborts any in-flight call, and runs fetcher again —
// bypassing the flush strategy entirely (spec.md §4.7 "Refetch"). If the
// resource is disabled, it cancels any in-flight call and goes idle
// instead of fetching.
func (r *Resource[T]) Refetch() {
	r.run()
}

// Dispose aborts any in-flight fetch, disposes the internal effect (and
// its tracked dependency edges), and marks the resource terminal. Further
// Read/Data/Err calls continue to return the last value reached.
func (r *Resource[T]) Dispose() {
	r.mu.Lock()
	r.version++ // any in-flight completion is now stale and is dropped
	r.cancelInFlightLocked()
	r.mu.Unlock()
	r.scope.Dispose()
}

func toError(rec any) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return panicError{rec}
}

type panicError struct{ v any }

func (e panicError) Error() string {
	if s, ok := e.v.(string); ok {
		return s
	}
	return "reactor/resource: non-error panic value"
}
