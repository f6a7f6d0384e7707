package reactor

import "github.com/lumenstate/reactor/internal"

// Batch runs fn with effect/listener flushing deferred until the
// outermost Batch call returns. Writes inside fn still mark dependents
// dirty and schedule work immediately; only the actual run of that work is
// coalesced to batch exit. Nested Batch calls join the outer one — only
// the outermost exit triggers a flush. Values read during the batch
// reflect whatever has been written so far; values read after it reflect
// the fully batched state.
func Batch(fn func()) {
	internal.GetRuntime().Batch(fn)
}
