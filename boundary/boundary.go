// Package boundary implements the thin async-boundary protocol (spec.md
// §4.8): a view-layer-agnostic descriptor that carries enough metadata for
// three execution modes — client attach, server render, client hydration —
// without boundary itself rendering anything (spec.md §1 non-goal).
package boundary

import (
	"context"
	"sync"

	"github.com/lumenstate/reactor/resource"
)

// kindTag is the process-unique, comparable identifier spec.md §6 calls a
// "registered global symbol": a fixed-address sentinel that stays distinct
// across every RefSpec instance, the same way a real symbol stays distinct
// across every copy of a library loaded into one page.
type kindTag struct{ name string }

// AsyncFragment is the stable tag identifying a RefSpec as an async
// boundary to an introspecting view or SSR layer.
var AsyncFragment = &kindTag{name: "async-fragment"}

// State is what renderer receives: the boundary's current phase and,
// once resolved, its value or error.
type State[T any] struct {
	Pending bool
	Ready   bool
	Value   T
	Err     error
}

// RefSpec is the opaque descriptor Load returns. A view layer introspects
// it via Kind (always AsyncFragment), drives it via Attach/Await/Hydrate,
// and renders via Render.
type RefSpec[T any] struct {
	id       string
	fetcher  func(context.Context) (T, error)
	renderer func(State[T]) any

	mu       sync.Mutex
	resolved bool
	value    T
	err      error

	// res is the live Attach-mode fetch, if any — a resource.Resource so
	// a remount that re-Attaches the same RefSpec gets L3's fetch-version
	// guard and cancellation instead of a second bespoke goroutine racing
	// the first.
	res *resource.Resource[T]
}

// Option configures Load.
type Option[T any] func(*RefSpec[T])

// WithID assigns the stable identifier SSR hydration pairs a client
// RefSpec back up with its server-rendered counterpart.
func WithID[T any](id string) Option[T] {
	return func(r *RefSpec[T]) { r.id = id }
}

// Load builds a ref-spec over fetcher, to be materialized by a view layer
// via Attach, Await or Hydrate.
func Load[T any](fetcher func(context.Context) (T, error), renderer func(State[T]) any, opts ...Option[T]) *RefSpec[T] {
	r := &RefSpec[T]{fetcher: fetcher, renderer: renderer}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Kind returns the symbol-keyed tag identifying this as an async
// boundary, for a view or SSR layer that needs to introspect it without a
// language-specific cast.
func (r *RefSpec[T]) Kind() *kindTag { return AsyncFragment }

// ID returns the hydration-pairing identifier, if one was given to Load.
func (r *RefSpec[T]) ID() string { return r.id }

// Attach is the client-mount mode: trigger the fetcher in the background
// and return the pending render immediately. The returned func reports
// the resolved render once the fetch completes; a caller driving its own
// render loop polls it (or wires it to its own update mechanism). Built on
// resource.New: calling Attach again on the same RefSpec (a view layer
// re-attaching on remount) disposes the prior in-flight fetch before
// starting a fresh one under a new fetch version, rather than letting two
// goroutines race to write r.value/r.err.
func (r *RefSpec[T]) Attach(ctx context.Context) (pending any, resolved func() (any, bool)) {
	r.mu.Lock()
	if r.res != nil {
		r.res.Dispose()
	}
	res := resource.New(func(fetchCtx context.Context) (T, error) {
		// Cancel the fetcher when either the caller's ctx or the
		// resource's own per-fetch context is done.
		merged, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(fetchCtx, cancel)
		defer stop()
		return r.fetcher(merged)
	})
	r.res = res
	r.mu.Unlock()

	pending = r.renderer(State[T]{Pending: true})
	resolved = func() (any, bool) {
		st := res.Read()
		switch st.Status {
		case resource.StatusReady:
			r.mu.Lock()
			r.value, r.err, r.resolved = st.Value, nil, true
			r.mu.Unlock()
			return r.renderer(State[T]{Ready: true, Value: st.Value}), true
		case resource.StatusError:
			r.mu.Lock()
			r.err, r.resolved = st.Err, true
			r.mu.Unlock()
			return r.renderer(State[T]{Err: st.Err}), true
		default:
			return nil, false
		}
	}
	return pending, resolved
}

// Await is the server-render mode: block until fetcher resolves, then
// return the resolved render plus the raw value/error pair a server layer
// serializes into the page for client hydration.
func (r *RefSpec[T]) Await(ctx context.Context) (rendered any, value T, err error) {
	value, err = r.fetcher(ctx)

	r.mu.Lock()
	r.value, r.err, r.resolved = value, err, true
	r.mu.Unlock()

	rendered = r.renderer(State[T]{Ready: err == nil, Err: err, Value: value})
	return rendered, value, err
}

// Hydrate is the client-hydration mode: pre-inject data serialized by a
// prior Await on the server, short-circuiting straight to the ready (or
// error) render without re-fetching.
func (r *RefSpec[T]) Hydrate(value T, err error) any {
	r.mu.Lock()
	r.value, r.err, r.resolved = value, err, true
	r.mu.Unlock()

	return r.renderer(State[T]{Ready: err == nil, Err: err, Value: value})
}

// Resolved reports whether this ref-spec has completed (via Attach,
// Await, or Hydrate) at least once.
func (r *RefSpec[T]) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved
}
