package internal

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// ErrCycle is returned when a derivation or effect reads itself, directly or
// transitively, from within its own recompute.
var ErrCycle = errors.New("reactor: cycle detected: read during own recompute")

// ErrDisposed names the error for a node read or written after its owning
// scope has been disposed. No Runtime operation returns it: reads and
// writes of a node whose scope is disposed proceed without a check.
var ErrDisposed = errors.New("reactor: node accessed after its scope was disposed")

var runtimes sync.Map // goid -> *Runtime

// GetRuntime returns the Runtime confined to the calling goroutine, creating
// one on first use. Per spec §9 ("Global state") a graph instance owns its
// own tracking stack; keying by goroutine id is how that isolation is
// enforced without asking every caller to thread a Runtime parameter
// through every Cell/Derivation call.
func GetRuntime() *Runtime {
	gid := goid.Get()
	if r, ok := runtimes.Load(gid); ok {
		return r.(*Runtime)
	}
	r := newRuntime()
	runtimes.Store(gid, r)
	return r
}

// Scheduler is the flush-strategy contract an effect node schedules through.
// reactor/flush implements this structurally (no import needed here,
// avoiding a cycle): Sync runs inline, Microtask/AnimationFrame/Idle defer
// to a goroutine, Debounce/Throttle add timing.
type Scheduler interface {
	Schedule(run func())
	Cancel()
}

type syncScheduler struct{}

func (syncScheduler) Schedule(run func()) { run() }
func (syncScheduler) Cancel()             {}

// Runtime owns one dependency graph: its heap of pending effects, its
// tracking stack, its batch depth, and its monotonic clock. Exactly one
// Runtime is active per goroutine (see GetRuntime).
type Runtime struct {
	heap      *effectHeap
	tracker   *tracker
	batcher   *batcher
	scheduler *scheduler

	walkGen int64
	root    *Owner

	// pending holds dependency-triggered effects whose flush-strategy
	// Schedule call has been deferred because a Batch is in progress (spec
	// §4.4: writes dirty/schedule immediately, but the actual flush waits
	// for the outermost batch to exit). Drained by flush.
	pending []pendingEffect

	// mu and lockHolder reinstate, at the Runtime level, the goroutine
	// confinement GetRuntime normally provides for free. A flush.Strategy
	// may run a scheduled effect's Schedule callback on its own timer
	// goroutine (Microtask/AnimationFrame/Idle/Debounce/Throttle all do);
	// that callback re-enters this same *Runtime* from a goroutine other
	// than the one that built the graph. enter()/leave() make every true
	// external entry point mutually exclusive across goroutines while
	// staying reentrant for the common case — the same goroutine calling
	// back into itself (e.g. an effect body writing a cell).
	mu         sync.Mutex
	lockHolder atomic.Int64
	lockDepth  int
}

// enter acquires the Runtime-wide critical section for the calling
// goroutine, returning a matching leave func. Calls from the goroutine
// already holding it nest for free (no second Lock); a different goroutine
// blocks on mu until the holder's outermost enter/leave pair completes.
func (r *Runtime) enter() func() {
	gid := goid.Get()
	if r.lockHolder.Load() == gid {
		r.lockDepth++
		return func() { r.lockDepth-- }
	}
	r.mu.Lock()
	r.lockHolder.Store(gid)
	r.lockDepth = 1
	return func() {
		r.lockDepth--
		if r.lockDepth == 0 {
			r.lockHolder.Store(0)
			r.mu.Unlock()
		}
	}
}

type pendingEffect struct {
	node  *Node
	sched Scheduler
}

func newRuntime() *Runtime {
	r := &Runtime{
		heap:      newEffectHeap(),
		tracker:   newTracker(),
		batcher:   newBatcher(),
		scheduler: newScheduler(),
	}
	r.root = r.NewOwner(nil)
	return r
}

// NewOwner creates a scope owner. A nil parent attaches to this runtime's
// root scope (so every node still has somewhere to be severed from on
// process-wide teardown in tests).
func (r *Runtime) NewOwner(parent *Owner) *Owner {
	if parent == nil {
		parent = r.root
	}
	o := &Owner{parent: parent}
	if parent != nil {
		parent.AddChild(o)
	}
	return o
}

func (r *Runtime) CurrentOwner() *Owner { return r.tracker.currentOwner }
func (r *Runtime) CurrentNode() *Node   { return r.tracker.currentNode }

// RootOwner returns this runtime's top-level scope — the implicit parent
// for anything constructed outside of any Scope.Run.
func (r *Runtime) RootOwner() *Owner { return r.root }

// OnCleanup registers fn against the currently running owner, if any.
func (r *Runtime) OnCleanup(fn func()) {
	if o := r.tracker.currentOwner; o != nil {
		o.OnCleanup(fn)
	}
}

// Untrack runs fn with dependency tracking suspended.
func (r *Runtime) Untrack(fn func()) {
	r.tracker.runUntracked(fn)
}

// Batch defers effect flushing until the outermost Batch call returns. Only
// the depth bookkeeping is held under lock — fn runs unlocked so nested
// WriteCell/ReadCell calls (on this same goroutine) can each take their own
// short critical section without deadlocking against a held outer lock.
func (r *Runtime) Batch(fn func()) {
	leave := r.enter()
	r.batcher.depth++
	leave()

	defer func() {
		leave := r.enter()
		r.batcher.depth--
		shouldFlush := r.batcher.depth == 0
		leave()
		if shouldFlush {
			leave := r.enter()
			defer leave()
			r.flush()
		}
	}()

	fn()
}

// ---- Cell ----

// NewCell creates a writable leaf node holding initial.
func (r *Runtime) NewCell(initial any, owner *Owner) *Node {
	defer r.enter()()
	return &Node{Kind: KindCell, Value: initial, Owner: owner, rt: r}
}

// ReadCell returns the cell's current value, tracking a dependency edge
// from the cell to whatever node is currently recomputing.
func (r *Runtime) ReadCell(n *Node) any {
	defer r.enter()()
	r.tracker.track(n)
	return n.Value
}

// WriteCell installs next as n's value if it differs from the current value
// per equal, bumping the version and invalidating downstream nodes. A
// no-op write (equal returns true) does nothing — no version bump, no
// notification.
func (r *Runtime) WriteCell(n *Node, next any, equal func(a, b any) bool) {
	defer r.enter()()
	if equal(n.Value, next) {
		return
	}
	n.Value = next
	n.Version = r.scheduler.time()
	// Hold every listener/effect handoff until the whole downstream walk
	// has marked its nodes, so nothing runs against a half-invalidated
	// graph; maybeFlush then runs the queued work.
	r.batcher.depth++
	r.notifyListeners(n)
	r.propagate(n)
	r.batcher.depth--
	r.maybeFlush()
}

func (r *Runtime) notifyListeners(n *Node) {
	if len(n.listeners) == 0 {
		return
	}
	listeners := make([]func(), len(n.listeners))
	copy(listeners, n.listeners)
	// Direct listener firing is deferred to batch exit just like effects,
	// via the listener heap. Each value-changing write queues its own
	// firing: a batch with several writes fires a listener once per write.
	for _, fn := range listeners {
		if fn == nil { // slot cleared by its unsubscribe func
			continue
		}
		fn := fn
		r.scheduleRaw(fn)
	}
}

// scheduleRaw wraps a plain listener callback as a zero-height synthetic
// effect node so it participates in the same coalescing/flush machinery as
// real effects, without being part of the dependency graph itself.
func (r *Runtime) scheduleRaw(fn func()) {
	n := &Node{Kind: KindEffect, rt: r}
	n.Recompute = func() (any, error) { fn(); return nil, nil }
	r.scheduleEffect(n)
}

// Subscribe attaches a raw listener to a cell or derivation node, fired
// after every value-changing write (at batch exit, if batching).
func Subscribe(n *Node, fn func()) func() {
	n.listeners = append(n.listeners, fn)
	id := len(n.listeners) - 1
	removed := false
	return func() {
		if removed || id >= len(n.listeners) {
			return
		}
		removed = true
		n.listeners[id] = nil
	}
}

// ---- Derivation ----

// NewDerivation creates a lazily-recomputed node. compute runs with n as the
// current tracking node so its reads register dependency edges.
func (r *Runtime) NewDerivation(compute func() (any, error), owner *Owner) *Node {
	defer r.enter()()
	n := &Node{Kind: KindDerivation, state: stateDirty, rt: r}
	if owner == nil {
		owner = r.root
	}
	n.Owner = r.NewOwner(owner)
	n.Owner.node = n
	n.Recompute = compute
	n.Owner.OnDispose(func() { clearDeps(n) })
	return n
}

// ReadDerivation resolves n to a fresh value (recomputing only if actually
// stale) and returns it, tracking a dependency edge to the calling node.
func (r *Runtime) ReadDerivation(n *Node) (any, error) {
	defer r.enter()()
	if n.inProgress {
		return nil, ErrCycle
	}
	r.resolve(n)
	r.tracker.track(n)
	return n.Value, n.Err
}

// resolve brings n up to date, recomputing only when its state demands it.
func (r *Runtime) resolve(n *Node) {
	switch n.state {
	case stateClean:
		return
	case stateCheck:
		dirty := false
		for e := n.depsHead; e != nil; e = e.nextDep {
			dep := e.Dep
			if dep.Kind == KindDerivation {
				r.resolve(dep)
			}
			if e.depVersion != dep.Version {
				dirty = true
				break
			}
		}
		if !dirty {
			n.state = stateClean
			return
		}
		n.state = stateDirty
		fallthrough
	case stateDirty:
		r.recompute(n)
	}
}

// recompute re-evaluates n's thunk. A cycle is reported as a raw Go panic
// (ErrCycle, never stored on n.Err — see ReadDerivation), which unwinds
// through this function; the deferred cleanup still severs this run's
// stale dependency edges and clears inProgress so the node is left in a
// retryable state rather than stuck, even though the panic continues
// propagating past recompute to the caller.
func (r *Runtime) recompute(n *Node) {
	n.inProgress = true
	beginTrackingRun(n)
	n.Owner.DisposeChildren()

	prevVersion := n.Version
	prevErr := n.Err

	var value any
	var err error
	func() {
		defer func() {
			n.inProgress = false
			endTrackingRun(n)
		}()
		r.tracker.runWithNode(n, func() {
			value, err = n.Recompute()
		})
	}()

	n.state = stateClean

	// A pull-time recompute only marks direct dependents Dirty. Every
	// effect downstream of n was already scheduled by the write that made
	// n stale, so it is not scheduled again here (that would re-run an
	// effect from inside its own run).
	markSubsDirty := func() {
		for e := n.subsHead; e != nil; e = e.nextSub {
			e.Sub.state = stateDirty
		}
	}

	if err != nil {
		n.Err = err
		if prevErr == nil || prevErr.Error() != err.Error() {
			n.Version = r.scheduler.time()
		}
		r.notifyListeners(n)
		markSubsDirty()
		return
	}

	n.Err = nil
	changed := prevErr != nil || !equalAny(n.Value, value)
	n.Value = value
	if changed {
		n.Version = r.scheduler.time()
	}
	_ = prevVersion
	if changed {
		r.notifyListeners(n)
		markSubsDirty()
	}
}

func equalAny(a, b any) bool {
	defer func() { recover() }() // uncomparable dynamic types: never equal
	return a == b
}

// ---- Effect ----

// NewEffect creates an eagerly-run-once, then dependency-scheduled node
// whose Recompute return value is a cleanup function (or nil).
func (r *Runtime) NewEffect(thunk func() (func(), error), sched Scheduler, owner *Owner) *Node {
	defer r.enter()()
	if sched == nil {
		sched = syncScheduler{}
	}
	n := &Node{Kind: KindEffect, state: stateDirty, rt: r, effectScheduler: sched}
	if owner == nil {
		owner = r.root
	}
	n.Owner = r.NewOwner(owner)
	n.Owner.node = n

	var cleanup func()
	n.Recompute = func() (any, error) {
		if cleanup != nil {
			c := cleanup
			cleanup = nil
			c()
		}
		cl, err := thunk()
		cleanup = cl
		return nil, err
	}

	n.Owner.OnDispose(func() {
		sched.Cancel()
		clearDeps(n)
		if cleanup != nil {
			c := cleanup
			cleanup = nil
			c()
		}
	})

	r.runEffectBody(n, sched)
	return n
}

// runEffectBody runs n's thunk with n as the current tracking node, inside
// n.Owner.Run so a thunk error (surfaced as a panic) is routed to any
// OnError catcher registered on the owner chain. With no catcher, Owner.Run
// re-raises it, so it propagates out through the flush boundary (the
// caller of WriteCell/Batch/flush) exactly as spec'd: unlike a derivation's
// sticky error, an effect's error is never cached for later reads — the
// effect stays subscribed and simply retries on its next invalidation.
func (r *Runtime) runEffectBody(n *Node, sched Scheduler) {
	n.inProgress = true
	n.Owner.DisposeChildren()
	beginTrackingRun(n)

	var err error
	n.Owner.Run(func() {
		prevNode := r.tracker.currentNode
		r.tracker.currentNode = n
		defer func() { r.tracker.currentNode = prevNode }()

		_, err = n.Recompute()
		if err != nil {
			panic(err)
		}
	})

	endTrackingRun(n)
	n.state = stateClean
	n.inProgress = false
	n.Err = err
}

func (r *Runtime) scheduleEffect(n *Node) {
	if n.Owner != nil && n.Owner.Disposed() {
		return
	}
	r.heap.Insert(n)
	r.scheduler.markScheduled()
	if !r.batcher.isBatching() {
		r.flush()
	}
}

// ---- Propagation / flush ----

// propagate walks downstream from changed, marking direct dependents Dirty
// and everything further down Check, per the push-pull algorithm described
// in spec §4.1/§4.2. Duplicate visits within this single walk are
// suppressed via a generation counter on each node (spec §4.1).
func (r *Runtime) propagate(changed *Node) {
	r.walkGen++
	gen := r.walkGen
	for e := changed.subsHead; e != nil; e = e.nextSub {
		r.propagateWalk(e.Sub, stateDirty, gen)
	}
}

func (r *Runtime) propagateWalk(n *Node, s state, gen int64) {
	alreadyVisited := n.lastWalkGen == gen
	n.lastWalkGen = gen

	if s > n.state {
		n.state = s
	}

	if n.Kind == KindEffect {
		sched := n.effectScheduler
		if sched == nil {
			sched = syncScheduler{}
		}
		r.scheduleEffectWith(n, sched)
		return
	}

	if alreadyVisited {
		return
	}
	for e := n.subsHead; e != nil; e = e.nextSub {
		r.propagateWalk(e.Sub, stateCheck, gen)
	}
}

// scheduleEffectWith marks n pending and hands it to its flush strategy —
// unless a Batch is currently open, in which case the handoff itself is
// deferred to flush (called when the outermost batch exits) so a sync
// strategy doesn't run the effect mid-batch.
func (r *Runtime) scheduleEffectWith(n *Node, sched Scheduler) {
	if n.scheduled {
		return
	}
	if n.Owner != nil && n.Owner.Disposed() {
		return
	}
	n.scheduled = true

	if r.batcher.isBatching() {
		r.pending = append(r.pending, pendingEffect{node: n, sched: sched})
		r.scheduler.markScheduled()
		return
	}

	sched.Schedule(func() {
		r.runScheduledEffect(n, sched)
	})
}

// runScheduledEffect is the one entry point a flush.Strategy may call from a
// goroutine other than the one that built the graph (its own timer
// goroutine, for Microtask/AnimationFrame/Idle/Debounce/Throttle). enter()
// here is what makes that safe.
func (r *Runtime) runScheduledEffect(n *Node, sched Scheduler) {
	defer r.enter()()
	if n.Owner.Disposed() {
		n.scheduled = false
		return
	}
	n.scheduled = false
	r.runEffectBody(n, sched)
}

func (r *Runtime) maybeFlush() {
	if !r.batcher.isBatching() {
		r.flush()
	}
}

// flush drains any plain-listener/effect work queued by scheduleRaw (via
// the height-bucketed heap), then hands any effects whose scheduling was
// deferred by an in-progress batch to their flush strategy. Each dispatched
// effect may itself write cells that schedule further work; scheduler.run
// keeps iterating until a pass produces nothing new (or the infinite-loop
// cap trips).
func (r *Runtime) flush() {
	err := r.scheduler.run(func() {
		r.heap.Drain(func(n *Node) {
			// Listener nodes have no owner and are not graph members:
			// run them directly, with tracking suspended.
			r.tracker.runUntracked(func() { _, _ = n.Recompute() })
		})

		pending := r.pending
		r.pending = nil
		for _, p := range pending {
			p := p
			p.sched.Schedule(func() {
				r.runScheduledEffect(p.node, p.sched)
			})
		}
	})
	if err != nil {
		panic(err)
	}
}
