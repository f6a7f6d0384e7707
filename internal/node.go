// Package internal implements the intrusive dependency graph that backs the
// public reactor package: nodes, edges, the tracking context, the owner
// tree, and the flush scheduler. None of it is exported outside the module;
// the generic, type-safe surface lives in the reactor package itself.
package internal

// Kind distinguishes the three node types the graph ever holds.
type Kind int

const (
	KindCell Kind = iota
	KindDerivation
	KindEffect
)

// state tracks how stale a derivation/effect's cached value might be,
// following the classic push-pull signal algorithm: a direct dependent of
// something that just changed is Dirty; anything further downstream is only
// Check (it may or may not actually need to recompute, depending on whether
// its own dependencies' values end up changing once resolved).
type state int

const (
	stateClean state = iota
	stateCheck
	stateDirty
)

// Node is the shared structural unit for cells, derivations and effects.
// Cells never recompute (Recompute is nil); derivations and effects carry a
// thunk that is invoked lazily on read (derivations) or scheduled for
// side-effecting re-run (effects).
type Node struct {
	Kind Kind

	Value   any
	Version int64
	Err     error // sticky error for derivations/effects

	state      state
	inProgress bool // cycle guard: set while Recompute is executing

	// Recompute is the derivation/effect body. It returns the new value (for
	// derivations) or nil (for effects, whose cleanup function is kept by
	// the effect's own closure). nil for cells.
	Recompute func() (any, error)

	// height is the longest dependency chain ending at this node; used only
	// to order effect execution at flush time.
	height int

	subsHead, subsTail *Edge // outgoing: nodes that read this one
	depsHead, depsTail *Edge // incoming: nodes this one reads
	depIndex           map[*Node]*Edge

	lastWalkGen int64 // push-phase duplicate-visit suppression

	listeners []func() // raw Subscribe() callbacks

	scheduled       bool     // already pending in the effect queue this round
	disposed        bool
	effectScheduler Scheduler // flush strategy for effect nodes; nil elsewhere

	Owner *Owner // scope that owns this node, if any

	rt *Runtime
}

// Edge is a directed, intrusive dependency link from Dep to Sub. It caches
// the dependency's version at the time Sub last observed it, so a resolve
// pass can detect "did my input actually change" in O(1) without
// recomputing anything.
type Edge struct {
	Dep *Node
	Sub *Node

	depVersion int64
	observed   bool // mark-and-sweep flag for the current tracking run

	prevDep, nextDep *Edge
	prevSub, nextSub *Edge
}

func (n *Node) addDepEdge(e *Edge) {
	if n.depsTail == nil {
		n.depsHead, n.depsTail = e, e
	} else {
		e.prevDep = n.depsTail
		n.depsTail.nextDep = e
		n.depsTail = e
	}
	if n.depIndex == nil {
		n.depIndex = make(map[*Node]*Edge)
	}
	n.depIndex[e.Dep] = e
}

func (n *Node) removeDepEdge(e *Edge) {
	if e.prevDep != nil {
		e.prevDep.nextDep = e.nextDep
	} else {
		n.depsHead = e.nextDep
	}
	if e.nextDep != nil {
		e.nextDep.prevDep = e.prevDep
	} else {
		n.depsTail = e.prevDep
	}
	e.prevDep, e.nextDep = nil, nil
	delete(n.depIndex, e.Dep)
}

func (n *Node) addSubEdge(e *Edge) {
	if n.subsTail == nil {
		n.subsHead, n.subsTail = e, e
	} else {
		e.prevSub = n.subsTail
		n.subsTail.nextSub = e
		n.subsTail = e
	}
}

func (n *Node) removeSubEdge(e *Edge) {
	if e.prevSub != nil {
		e.prevSub.nextSub = e.nextSub
	} else {
		n.subsHead = e.nextSub
	}
	if e.nextSub != nil {
		e.nextSub.prevSub = e.prevSub
	} else {
		n.subsTail = e.prevSub
	}
	e.prevSub, e.nextSub = nil, nil
}

// track records that sub read dep during sub's current recompute/run. If an
// edge between the two already exists it is refreshed in place (the whole
// point of the intrusive edge list: no allocation when the dependency set is
// stable across re-evaluations); otherwise a fresh edge is linked in both
// directions.
func track(dep, sub *Node) {
	if e, ok := sub.depIndex[dep]; ok {
		e.observed = true
		e.depVersion = dep.Version
		return
	}

	e := &Edge{Dep: dep, Sub: sub, depVersion: dep.Version, observed: true}
	sub.addDepEdge(e)
	dep.addSubEdge(e)

	if dep.height >= sub.height {
		sub.height = dep.height + 1
	}
}

// beginTrackingRun clears the "observed this run" mark on every existing
// dependency edge, ahead of re-invoking a derivation/effect's body.
func beginTrackingRun(n *Node) {
	for e := n.depsHead; e != nil; e = e.nextDep {
		e.observed = false
	}
}

// endTrackingRun severs any dependency edge that was not refreshed during
// the run that just completed — the dependency is no longer read, so the
// edge is stale per spec.
func endTrackingRun(n *Node) {
	e := n.depsHead
	for e != nil {
		next := e.nextDep
		if !e.observed {
			n.removeDepEdge(e)
			e.Dep.removeSubEdge(e)
		}
		e = next
	}
}

// clearDeps severs every dependency edge unconditionally (used on final
// disposal).
func clearDeps(n *Node) {
	e := n.depsHead
	for e != nil {
		next := e.nextDep
		n.removeDepEdge(e)
		e.Dep.removeSubEdge(e)
		e = next
	}
}
