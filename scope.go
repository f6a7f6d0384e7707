package reactor

import "github.com/lumenstate/reactor/internal"

// Scope is a lifetime container for the cells, derivations and effects
// created while it runs. Scopes nest: disposing a parent disposes every
// descendant first. It is the mechanism by which a caller owns and
// releases a subtree of reactive state in one call.
type Scope struct {
	rt    *internal.Runtime
	owner *internal.Owner
}

// NewScope creates a child scope of whatever scope is currently running,
// or of the calling goroutine's root scope if none is.
func NewScope() *Scope {
	rt := internal.GetRuntime()
	return &Scope{rt: rt, owner: rt.NewOwner(currentOwner(rt))}
}

// Run executes fn with this scope made current: every Cell/Derivation/
// Effect/Scope created within fn attaches to this scope as a child.
func (s *Scope) Run(fn func()) {
	s.owner.Run(fn)
}

// Dispose tears down every child scope, runs infrastructure teardown
// (severing edges, cancelling pending effect runs), and — the first time
// only — runs every registered OnCleanup callback.
func (s *Scope) Dispose() {
	s.owner.Dispose()
}

// OnCleanup registers fn to run exactly once, the first time this scope
// is disposed.
func (s *Scope) OnCleanup(fn func()) {
	s.owner.OnCleanup(fn)
}

// OnError registers fn to receive any panic raised inside this scope's Run
// or by an effect body owned (directly or transitively) by this scope,
// instead of letting it propagate. A derivation body's panic is stored on
// the derivation and re-raised by its Read, so it reaches fn only when
// that Read happens inside such code.
func (s *Scope) OnError(fn func(any)) {
	s.owner.OnError(fn)
}

// OnCleanup registers fn against the currently running scope, if any — a
// package-level convenience for code that doesn't hold its own *Scope
// reference (e.g. inside an Effect or Derivation body).
func OnCleanup(fn func()) {
	internal.GetRuntime().OnCleanup(fn)
}
