package internal

import "testing"

func TestEffectHeapDrainsInAscendingHeightOrder(t *testing.T) {
	h := newEffectHeap()

	mk := func(height int) *Node {
		return &Node{Kind: KindEffect, height: height}
	}

	n0a := mk(0)
	n2 := mk(2)
	n0b := mk(0)
	n1 := mk(1)

	h.Insert(n2)
	h.Insert(n0a)
	h.Insert(n1)
	h.Insert(n0b)

	var order []*Node
	h.Drain(func(n *Node) { order = append(order, n) })

	if len(order) != 4 {
		t.Fatalf("expected 4 drained nodes, got %d", len(order))
	}
	// Height 0 bucket drains in FIFO (insertion) order before height 1,
	// which drains before height 2.
	want := []*Node{n0a, n0b, n1, n2}
	for i, n := range want {
		if order[i] != n {
			t.Fatalf("position %d: want node %p, got %p", i, n, order[i])
		}
	}

	if !h.Empty() {
		t.Fatal("heap should be empty after Drain")
	}
}

func TestEffectHeapInsertIsIdempotentWhileScheduled(t *testing.T) {
	h := newEffectHeap()
	n := &Node{Kind: KindEffect, height: 0}

	h.Insert(n)
	h.Insert(n) // second insert while still scheduled must be a no-op

	count := 0
	h.Drain(func(*Node) { count++ })

	if count != 1 {
		t.Fatalf("expected exactly one drain despite two inserts, got %d", count)
	}
}

func TestEffectHeapDrainObservesWorkScheduledDuringDrain(t *testing.T) {
	h := newEffectHeap()
	first := &Node{Kind: KindEffect, height: 1}
	second := &Node{Kind: KindEffect, height: 1}

	h.Insert(first)

	var order []*Node
	h.Drain(func(n *Node) {
		order = append(order, n)
		if n == first {
			h.Insert(second)
		}
	})

	if len(order) != 2 || order[0] != first || order[1] != second {
		t.Fatalf("expected [first second], got %v", order)
	}
}
