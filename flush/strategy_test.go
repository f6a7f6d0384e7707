package flush_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenstate/reactor/flush"
)

func TestSyncRunsInline(t *testing.T) {
	ran := false
	flush.Sync().Schedule(func() { ran = true })
	assert.True(t, ran)
}

func TestMicrotaskRunsOnBackgroundGoroutine(t *testing.T) {
	s := flush.Microtask()
	var mu sync.Mutex
	done := make(chan struct{})

	s.Schedule(func() {
		mu.Lock()
		defer mu.Unlock()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("microtask never ran")
	}
}

func TestDebounceCoalescesRepeatCallsIntoOneRun(t *testing.T) {
	s := flush.Debounce(20 * time.Millisecond)
	var mu sync.Mutex
	runs := 0

	for i := 0; i < 5; i++ {
		s.Schedule(func() {
			mu.Lock()
			runs++
			mu.Unlock()
		})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)
}

func TestThrottleRunsLeadingEdgeImmediately(t *testing.T) {
	s := flush.Throttle(50 * time.Millisecond)
	ran := false
	s.Schedule(func() { ran = true })
	assert.True(t, ran)
}

func TestThrottleCoalescesTrailingCalls(t *testing.T) {
	s := flush.Throttle(20 * time.Millisecond)
	var mu sync.Mutex
	runs := 0
	record := func() {
		mu.Lock()
		runs++
		mu.Unlock()
	}

	s.Schedule(record) // leading, immediate
	s.Schedule(record) // trailing
	s.Schedule(record) // coalesced into the same trailing slot

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, runs)
}

func TestCancelDiscardsPendingRun(t *testing.T) {
	s := flush.Debounce(20 * time.Millisecond)
	ran := false
	s.Schedule(func() { ran = true })
	s.Cancel()

	time.Sleep(40 * time.Millisecond)
	assert.False(t, ran)
}

func TestCustomStrategy(t *testing.T) {
	var captured func()
	s := flush.Custom(func(run func()) { captured = run })

	s.Schedule(func() {})
	require.NotNil(t, captured)
	s.Cancel() // no-op, must not panic
}
