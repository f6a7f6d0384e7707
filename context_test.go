package reactor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenstate/reactor"
)

func TestContext(t *testing.T) {
	t.Run("a value set by an ancestor scope propagates to descendants", func(t *testing.T) {
		ctx := reactor.NewContext("default")

		var seenInChild string
		outer := reactor.NewScope()
		outer.Run(func() {
			ctx.Set("outer-value")
			inner := reactor.NewScope()
			inner.Run(func() {
				seenInChild = ctx.Value()
			})
		})

		assert.Equal(t, "outer-value", seenInChild)
	})

	t.Run("reading outside any scope returns the initial value", func(t *testing.T) {
		ctx := reactor.NewContext("default")
		assert.Equal(t, "default", ctx.Value())
	})

	t.Run("a sibling scope does not see a value set by its sibling", func(t *testing.T) {
		ctx := reactor.NewContext(0)

		parent := reactor.NewScope()
		var seenBySibling int
		parent.Run(func() {
			siblingA := reactor.NewScope()
			siblingA.Run(func() {
				ctx.Set(1)
			})

			siblingB := reactor.NewScope()
			siblingB.Run(func() {
				seenBySibling = ctx.Value()
			})
		})

		assert.Equal(t, 0, seenBySibling)
	})

	t.Run("a descendant can shadow an ancestor's value for its own subtree", func(t *testing.T) {
		ctx := reactor.NewContext("root")

		var seenByGrandchild string
		outer := reactor.NewScope()
		outer.Run(func() {
			ctx.Set("outer")
			middle := reactor.NewScope()
			middle.Run(func() {
				ctx.Set("middle")
				grandchild := reactor.NewScope()
				grandchild.Run(func() {
					seenByGrandchild = ctx.Value()
				})
			})
		})

		assert.Equal(t, "middle", seenByGrandchild)
	})
}
