package internal

// batcher tracks nested Batch() depth. Writes always mark dependents dirty
// and schedule effects immediately; only the *flush* (actually running
// scheduled effects) is deferred until the outermost batch exits.
type batcher struct {
	depth int
}

func newBatcher() *batcher {
	return &batcher{}
}

func (b *batcher) isBatching() bool {
	return b.depth > 0
}
