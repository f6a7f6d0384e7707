package reactor

import "github.com/lumenstate/reactor/internal"

// Untrack runs fn with dependency tracking suspended: any Cell or
// Derivation read inside fn does not become a dependency of whatever node
// is currently recomputing.
func Untrack[T any](fn func() T) T {
	rt := internal.GetRuntime()
	var result T
	rt.Untrack(func() { result = fn() })
	return result
}
