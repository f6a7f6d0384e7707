package reactor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenstate/reactor"
)

func TestScope(t *testing.T) {
	t.Run("dispose severs every child effect", func(t *testing.T) {
		c := reactor.NewCell(0)
		runs := 0

		scope := reactor.NewScope()
		scope.Run(func() {
			reactor.NewEffect(func() func() {
				runs++
				c.Read()
				return nil
			})
		})
		assert.Equal(t, 1, runs)

		scope.Dispose()
		c.Write(1)
		assert.Equal(t, 1, runs) // no further runs after disposal
	})

	t.Run("disposing a parent disposes its children first", func(t *testing.T) {
		c := reactor.NewCell(0)
		var log []string

		parent := reactor.NewScope()
		parent.Run(func() {
			child := reactor.NewScope()
			child.Run(func() {
				reactor.OnCleanup(func() { log = append(log, "child") })
			})
			reactor.OnCleanup(func() { log = append(log, "parent") })
		})
		_ = c

		parent.Dispose()
		assert.Equal(t, []string{"child", "parent"}, log)
	})

	t.Run("OnCleanup runs exactly once, on the first dispose", func(t *testing.T) {
		scope := reactor.NewScope()
		calls := 0
		scope.Run(func() {
			reactor.OnCleanup(func() { calls++ })
		})

		scope.Dispose()
		scope.Dispose()
		assert.Equal(t, 1, calls)
	})

	t.Run("OnError catches a panic from a descendant effect", func(t *testing.T) {
		scope := reactor.NewScope()
		var caught any
		scope.OnError(func(v any) { caught = v })

		c := reactor.NewCell(0)
		scope.Run(func() {
			reactor.NewEffect(func() func() {
				if c.Read() == 1 {
					panic("caught me")
				}
				return nil
			})
		})

		assert.NotPanics(t, func() { c.Write(1) })
		assert.Equal(t, "caught me", caught)
	})

	t.Run("OnError on an ancestor catches a panic from a later scheduled re-run", func(t *testing.T) {
		outer := reactor.NewScope()
		var caught any
		outer.OnError(func(v any) { caught = v })

		c := reactor.NewCell(0)
		outer.Run(func() {
			inner := reactor.NewScope()
			inner.Run(func() {
				reactor.NewEffect(func() func() {
					if c.Read() == 1 {
						panic("nested panic")
					}
					return nil
				})
			})
		})

		assert.NotPanics(t, func() { c.Write(1) })
		assert.Equal(t, "nested panic", caught)
	})
}
