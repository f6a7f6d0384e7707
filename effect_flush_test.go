package reactor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lumenstate/reactor"
	"github.com/lumenstate/reactor/flush"
)

// TestEffectWithAsyncFlushStrategyRunsOnBackgroundGoroutine exercises the
// cross-goroutine path added specifically for async flush strategies: the
// triggering Write returns immediately (the run is deferred), and the
// effect body actually executes later, on the strategy's own goroutine.
func TestEffectWithAsyncFlushStrategyRunsOnBackgroundGoroutine(t *testing.T) {
	c := reactor.NewCell(0)
	seen := make(chan int, 4)

	reactor.NewEffect(func() func() {
		seen <- c.Read()
		return nil
	}, reactor.WithFlush(flush.Microtask()))

	select {
	case v := <-seen:
		assert.Equal(t, 0, v) // eager first run
	case <-time.After(time.Second):
		t.Fatal("eager run never observed")
	}

	c.Write(1)

	select {
	case v := <-seen:
		assert.Equal(t, 1, v)
	case <-time.After(time.Second):
		t.Fatal("scheduled re-run never observed")
	}
}
