package boundary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenstate/reactor/boundary"
)

func render(st boundary.State[string]) any {
	switch {
	case st.Pending:
		return "loading"
	case st.Err != nil:
		return "error:" + st.Err.Error()
	case st.Ready:
		return "ready:" + st.Value
	default:
		return "idle"
	}
}

func TestLoadKindIsStableAcrossInstances(t *testing.T) {
	a := boundary.Load(func(ctx context.Context) (string, error) { return "a", nil }, render)
	b := boundary.Load(func(ctx context.Context) (string, error) { return "b", nil }, render)

	assert.Same(t, boundary.AsyncFragment, a.Kind())
	assert.Same(t, a.Kind(), b.Kind())
}

func TestAttachRendersPendingThenResolved(t *testing.T) {
	ref := boundary.Load(func(ctx context.Context) (string, error) {
		return "value", nil
	}, render)

	pending, resolved := ref.Attach(context.Background())
	assert.Equal(t, "loading", pending)

	require.Eventually(t, func() bool {
		_, ok := resolved()
		return ok
	}, time.Second, time.Millisecond)

	out, ok := resolved()
	require.True(t, ok)
	assert.Equal(t, "ready:value", out)
	assert.True(t, ref.Resolved())
}

func TestAwaitBlocksAndReturnsResolvedValue(t *testing.T) {
	ref := boundary.Load(func(ctx context.Context) (string, error) {
		return "server-value", nil
	}, render)

	rendered, value, err := ref.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "server-value", value)
	assert.Equal(t, "ready:server-value", rendered)
}

func TestAwaitPropagatesFetcherError(t *testing.T) {
	boom := errors.New("boom")
	ref := boundary.Load(func(ctx context.Context) (string, error) {
		return "", boom
	}, render)

	rendered, _, err := ref.Await(context.Background())
	assert.Equal(t, boom, err)
	assert.Equal(t, "error:boom", rendered)
}

func TestHydrateShortCircuitsWithoutFetching(t *testing.T) {
	calls := 0
	ref := boundary.Load(func(ctx context.Context) (string, error) {
		calls++
		return "should-not-run", nil
	}, render, boundary.WithID[string]("widget-1"))

	out := ref.Hydrate("pre-injected", nil)
	assert.Equal(t, "ready:pre-injected", out)
	assert.Equal(t, 0, calls)
	assert.True(t, ref.Resolved())
	assert.Equal(t, "widget-1", ref.ID())
}
