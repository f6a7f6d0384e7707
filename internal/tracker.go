package internal

// tracker holds the "current tracking context" for one Runtime: which node
// is presently recomputing (so reads know what to link edges to) and
// whether tracking is currently suppressed (Untrack). Per spec §9 this is
// an explicit stack owned by the graph instance rather than an implicit
// global, which is why it hangs off Runtime instead of being a package
// variable.
//
// Unlike the teacher's tracker, this one carries no mutex or goroutine-id
// re-check itself: GetRuntime confines the common synchronous path to one
// goroutine, and Runtime.enter (see runtime.go) re-establishes that same
// confinement — with a goroutine-id recheck, same idea as the teacher's
// tracker — for the one case that crosses goroutines on purpose: a
// background flush strategy handing a scheduled effect back into this
// same Runtime from its own timer goroutine.
type tracker struct {
	tracking bool

	currentOwner *Owner
	currentNode  *Node
}

func newTracker() *tracker {
	return &tracker{tracking: true}
}

func (t *tracker) shouldTrack() bool {
	return t.tracking && t.currentNode != nil
}

func (t *tracker) runWithOwner(o *Owner, fn func()) {
	prevOwner := t.currentOwner
	t.currentOwner = o
	defer func() { t.currentOwner = prevOwner }()
	fn()
}

// runWithNode makes n the current tracking target (and its owner the
// current owner) for the duration of fn. Reads performed by fn will link an
// edge from the node being read to n.
func (t *tracker) runWithNode(n *Node, fn func()) {
	prevOwner, prevNode := t.currentOwner, t.currentNode
	t.currentOwner, t.currentNode = n.Owner, n
	defer func() { t.currentOwner, t.currentNode = prevOwner, prevNode }()
	fn()
}

func (t *tracker) runUntracked(fn func()) {
	prev := t.tracking
	t.tracking = false
	defer func() { t.tracking = prev }()
	fn()
}

// track links dep as a dependency of whatever node is currently executing,
// if tracking is active. It is a no-op outside any reactive evaluation
// (e.g. a plain top-level Read()).
func (t *tracker) track(dep *Node) {
	if t.shouldTrack() {
		track(dep, t.currentNode)
	}
}
