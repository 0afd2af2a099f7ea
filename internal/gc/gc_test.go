package gc_test

import (
	"fmt"
	"testing"

	"github.com/funvibe/kestrel/internal/gc"
)

type node struct {
	gc.Header
	name string
	refs []*node
}

func (n *node) Trace(c *gc.Collector) {
	for _, r := range n.refs {
		c.Mark(r)
	}
}

// heap wires a collector to a mutable root set.
type heap struct {
	*gc.Collector
	roots []*node
}

func newHeap(opts ...gc.Option) *heap {
	h := &heap{Collector: gc.NewCollector(opts...)}
	h.AddRoots(func(mark func(gc.Object)) {
		for _, r := range h.roots {
			mark(r)
		}
	})
	return h
}

func (h *heap) alloc(name string, refs ...*node) *node {
	return gc.Allocate(h.Collector, &node{name: name, refs: refs})
}

func TestUnreachableIsFreed(t *testing.T) {
	h := newHeap()
	kept := h.alloc("kept")
	h.roots = append(h.roots, kept)
	garbage := h.alloc("garbage")

	h.Collect()

	if !h.Contains(kept) || kept.Freed() {
		t.Error("rooted object was reclaimed")
	}
	if h.Contains(garbage) || !garbage.Freed() || garbage.Owned() {
		t.Error("unreachable object survived")
	}
}

func TestAllocationCollectsFirst(t *testing.T) {
	h := newHeap()
	garbage := h.alloc("garbage")
	h.alloc("next")
	if !garbage.Freed() {
		t.Error("allocation did not run a cycle before linking")
	}
	if s := h.Stats(); s.Cycles != 2 || s.Allocated != 2 || s.Freed != 1 || s.Live != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestReachabilityIsTransitive(t *testing.T) {
	h := newHeap()
	leaf := h.alloc("leaf")
	h.roots = append(h.roots, leaf)
	mid := h.alloc("mid", leaf)
	h.roots = []*node{mid}
	root := h.alloc("root", mid)
	h.roots = []*node{root}

	h.Collect()
	for _, n := range []*node{root, mid, leaf} {
		if n.Freed() {
			t.Errorf("%s was freed while reachable", n.name)
		}
	}
}

func TestCyclesTerminateAndAreReclaimed(t *testing.T) {
	h := newHeap()
	a := h.alloc("a")
	h.roots = append(h.roots, a)
	b := h.alloc("b", a)
	a.refs = append(a.refs, b, a) // a <-> b, and a self reference
	h.roots = append(h.roots, b)

	h.Collect()
	if a.Freed() || b.Freed() {
		t.Fatal("rooted cycle was reclaimed")
	}

	h.roots = nil
	h.Collect()
	if !a.Freed() || !b.Freed() {
		t.Error("unrooted cycle survived")
	}
	if live := h.Stats().Live; live != 0 {
		t.Errorf("live = %d, want 0", live)
	}
}

func TestUnownedRootsAreRetraversed(t *testing.T) {
	h := newHeap()
	child := h.alloc("child")
	// holder is never allocated, so no sweep clears its mark.
	holder := &node{name: "holder", refs: []*node{child}}
	h.roots = []*node{holder}

	for i := 0; i < 3; i++ {
		h.Collect()
		if child.Freed() {
			t.Fatalf("cycle %d: child of an unowned root was freed", i)
		}
	}
	if holder.Owned() {
		t.Error("unowned root became owned")
	}
}

func TestAllocateIsIdempotentForOwnedObjects(t *testing.T) {
	h := newHeap()
	n := h.alloc("n")
	h.roots = []*node{n}
	again := gc.Allocate(h.Collector, n)
	if again != n {
		t.Fatal("reallocation returned a different object")
	}
	if s := h.Stats(); s.Allocated != 1 || s.Live != 1 {
		t.Errorf("owned object was linked twice: %+v", s)
	}
}

func TestShutdownFreesEverything(t *testing.T) {
	h := newHeap()
	var all []*node
	for i := 0; i < 10; i++ {
		n := h.alloc(fmt.Sprintf("n%d", i))
		h.roots = append(h.roots, n)
		all = append(all, n)
	}
	h.Shutdown()
	for _, n := range all {
		if !n.Freed() {
			t.Errorf("%s survived shutdown", n.name)
		}
	}
	if s := h.Stats(); s.Live != 0 || s.Freed != 10 {
		t.Errorf("unexpected stats after shutdown %+v", s)
	}
}

func TestHeapLimitIsFatal(t *testing.T) {
	var fatal string
	saved := gc.Fatal
	gc.Fatal = func(format string, args ...interface{}) {
		fatal = fmt.Sprintf(format, args...)
		panic(fatal)
	}
	defer func() { gc.Fatal = saved }()

	h := newHeap(gc.WithLimit(2))
	h.roots = append(h.roots, h.alloc("a"))
	h.roots = append(h.roots, h.alloc("b"))

	func() {
		defer func() { recover() }()
		h.alloc("c")
	}()
	if fatal == "" {
		t.Fatal("exceeding the limit with live objects did not call Fatal")
	}

	// Garbage does not count against the limit.
	fatal = ""
	h.roots = h.roots[:1]
	h.alloc("d")
	if fatal != "" {
		t.Errorf("limit hit although garbage was collectable: %s", fatal)
	}
}
