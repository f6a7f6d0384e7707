package reactor_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenstate/reactor"
)

func TestDerivation(t *testing.T) {
	t.Run("recomputes only on dependency change", func(t *testing.T) {
		c := reactor.NewCell(1)
		runs := 0
		d := reactor.NewDerivation(func() int {
			runs++
			return c.Read() * 10
		})

		assert.Equal(t, 10, d.Read())
		assert.Equal(t, 1, runs)

		// Reading again without a write must not recompute: pull-driven
		// and memoized while clean.
		assert.Equal(t, 10, d.Read())
		assert.Equal(t, 1, runs)

		c.Write(2)
		assert.Equal(t, 20, d.Read())
		assert.Equal(t, 2, runs)
	})

	t.Run("diamond dependency settles without a glitch", func(t *testing.T) {
		root := reactor.NewCell(1)
		left := reactor.NewDerivation(func() int { return root.Read() + 1 })
		right := reactor.NewDerivation(func() int { return root.Read() + 2 })
		bottom := reactor.NewDerivation(func() int { return left.Read() + right.Read() })

		runs := 0
		var seen []int
		reactor.NewEffect(func() func() {
			runs++
			seen = append(seen, bottom.Read())
			return nil
		})

		assert.Equal(t, 1, runs)
		assert.Equal(t, []int{5}, seen) // (1+1)+(1+2) = 5

		root.Write(10)
		assert.Equal(t, 2, runs) // exactly one re-run despite two paths
		assert.Equal(t, []int{5, 23}, seen)
	})

	t.Run("an error is sticky until a successful recompute", func(t *testing.T) {
		c := reactor.NewCell(0)
		d := reactor.NewDerivation(func() int {
			v := c.Read()
			if v == 0 {
				panic(errors.New("boom"))
			}
			return v
		})

		require.Panics(t, func() { d.Read() })
		// Sticky: re-reading without any dependency change re-raises it,
		// it does not silently clear.
		require.Panics(t, func() { d.Read() })

		c.Write(7)
		assert.Equal(t, 7, d.Read())
		assert.NotPanics(t, func() { d.Read() })
	})

	t.Run("a self-referential read is a fatal cycle, never sticky", func(t *testing.T) {
		var self *reactor.Derivation[int]
		self = reactor.NewDerivation(func() int {
			return self.Read() + 1
		})

		assert.Panics(t, func() { self.Read() })
		// Every attempt re-raises the cycle raw; it is not cached as an
		// ordinary sticky error.
		assert.Panics(t, func() { self.Read() })
	})

	t.Run("subscribe fires on a value-changing recompute", func(t *testing.T) {
		c := reactor.NewCell(1)
		d := reactor.NewDerivation(func() int { return c.Read() * 2 })
		d.Read() // establish the dependency before subscribing

		fired := 0
		unsub := d.Subscribe(func() { fired++ })
		defer unsub()

		c.Write(2)
		d.Read()
		assert.Equal(t, 1, fired)
	})
}
