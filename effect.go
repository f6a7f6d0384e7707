package reactor

import (
	"github.com/lumenstate/reactor/flush"
	"github.com/lumenstate/reactor/internal"
)

// Effect is a node whose re-run is observed as a side effect rather than
// a value. It runs eagerly once at construction, then again each time a
// dependency it read changes, through its flush strategy.
type Effect struct {
	rt   *internal.Runtime
	node *internal.Node
}

// EffectOption configures NewEffect.
type EffectOption func(*effectConfig)

type effectConfig struct {
	flush flush.Strategy
}

// WithFlush selects the flush strategy that schedules this effect's
// re-runs. Defaults to flush.Sync() — run inline, on the triggering
// write's own call stack.
func WithFlush(s flush.Strategy) EffectOption {
	return func(c *effectConfig) { c.flush = s }
}

// NewEffect creates and immediately runs thunk, tracking whatever signals
// it reads. thunk may return a cleanup function, invoked immediately
// before each subsequent re-run and on disposal. A panic inside thunk
// surfaces to the flush boundary (the caller of the triggering Write or
// Batch, for a sync strategy) rather than being cached: the effect stays
// subscribed and simply tries again on its next invalidation.
func NewEffect(thunk func() func(), opts ...EffectOption) *Effect {
	cfg := effectConfig{flush: flush.Sync()}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := internal.GetRuntime()
	node := rt.NewEffect(func() (func(), error) {
		return thunk(), nil
	}, cfg.flush, currentOwner(rt))

	return &Effect{rt: rt, node: node}
}

// Dispose severs the effect's dependency edges, cancels any pending
// scheduled run, and invokes its last cleanup. Further invalidations are a
// no-op afterward.
func (e *Effect) Dispose() {
	e.node.Owner.Dispose()
}
