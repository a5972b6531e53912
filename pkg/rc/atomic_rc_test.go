package rc

import (
	"sync"
	"testing"

	"epochrc/pkg/ebr"
	"epochrc/pkg/ird"
)

// linkNode is a one-field linked node built entirely on the public
// pointer family, used to exercise AtomicRc together with the cascade
// engine the way a real client package would.
type linkNode struct {
	value int
	next  AtomicRc[*linkNode]
}

func (n *linkNode) PopEdges(taker *ird.EdgeTaker[*linkNode]) {
	taker.Take(&n.next)
}

func newLink(v int) Rc[*linkNode] {
	return New[*linkNode](&linkNode{value: v})
}

func TestAtomicRcLoadStoreTake(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	a := NewAtomicRc[*linkNode](newLink(1))

	got := a.Load(g, ebr.Acquire)
	if got.As().value != 1 {
		t.Fatalf("Load().As().value = %d, want 1", got.As().value)
	}

	a.Store(g, newLink(2), ebr.Release)
	got = a.Load(g, ebr.Acquire)
	if got.As().value != 2 {
		t.Fatalf("after Store, Load().As().value = %d, want 2", got.As().value)
	}

	taken := a.Take(g)
	if taken.As().value != 2 {
		t.Fatalf("Take().As().value = %d, want 2", taken.As().value)
	}
	taken.Release(g)

	if !a.Load(g, ebr.Acquire).IsNull() {
		t.Fatal("slot should be null after Take")
	}
}

func TestAtomicRcSwapReturnsPrevious(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	a := NewAtomicRc[*linkNode](newLink(1))
	old := a.Swap(g, newLink(2), ebr.AcqRel)
	if old.As().value != 1 {
		t.Fatalf("Swap returned value %d, want 1", old.As().value)
	}
	old.Release(g)

	final := a.Take(g)
	if final.As().value != 2 {
		t.Fatalf("final value = %d, want 2", final.As().value)
	}
	final.Release(g)
}

func TestAtomicRcCompareExchangeSucceeds(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	a := NewAtomicRc[*linkNode](newLink(1))
	expected := a.Load(g, ebr.Acquire)

	installed, err := a.CompareExchange(g, expected, newLink(2), ebr.AcqRel, ebr.Acquire)
	if err != nil {
		t.Fatalf("CompareExchange failed unexpectedly: %v", err)
	}
	if installed.As().value != 2 {
		t.Fatalf("installed.As().value = %d, want 2", installed.As().value)
	}

	final := a.Take(g)
	final.Release(g)
}

func TestAtomicRcCompareExchangeFailsReturnsCurrent(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	a := NewAtomicRc[*linkNode](newLink(1))
	stale := a.Load(g, ebr.Acquire)

	a.Store(g, newLink(2), ebr.Release)

	desired := newLink(3)
	_, err := a.CompareExchange(g, stale, desired, ebr.AcqRel, ebr.Acquire)
	if err == nil {
		t.Fatal("CompareExchange should have failed against a stale expected value")
	}
	cxErr, ok := err.(*CompareExchangeError[*linkNode])
	if !ok {
		t.Fatalf("error type = %T, want *CompareExchangeError", err)
	}
	if cxErr.Current.As().value != 2 {
		t.Fatalf("Current.As().value = %d, want 2", cxErr.Current.As().value)
	}

	desired.Release(g) // caller keeps ownership of desired on failure
	final := a.Take(g)
	final.Release(g)
}

func TestAtomicRcCompareExchangeRetriesOnEpochOnlyChange(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	a := NewAtomicRc[*linkNode](newLink(1))
	expected := a.Load(g, ebr.Acquire)

	// Re-stamp the slot with a fresh installation epoch but the same
	// logical value, simulating a benign epoch-stamp race. CompareExchange
	// must still succeed since PtrEq ignores the high tag.
	if _, ok := a.CompareExchangeTag(g, expected, expected.Tag(), ebr.SeqCst); !ok {
		t.Fatal("re-stamping the slot with its own tag should succeed")
	}
	reStamped := a.Load(g, ebr.Acquire)
	if reStamped.ptr.HighTag() == expected.ptr.HighTag() {
		t.Fatal("re-stamping should have changed the installation-epoch tag")
	}
	if !PtrEqSnapshot(expected, reStamped) {
		t.Fatal("a re-stamped slot should observe the same logical value")
	}

	installed, err := a.CompareExchange(g, expected, newLink(9), ebr.AcqRel, ebr.Acquire)
	if err != nil {
		t.Fatalf("CompareExchange should succeed against a logically-unchanged expected value: %v", err)
	}
	if installed.As().value != 9 {
		t.Fatalf("installed.As().value = %d, want 9", installed.As().value)
	}
	final := a.Take(g)
	final.Release(g)
}

func TestAtomicRcCompareExchangeWeakSucceedsUncontended(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	a := NewAtomicRc[*linkNode](newLink(1))
	expected := a.Load(g, ebr.Acquire)

	installed, err := a.CompareExchangeWeak(g, expected, newLink(2), ebr.AcqRel, ebr.Acquire)
	if err != nil {
		t.Fatalf("CompareExchangeWeak failed unexpectedly: %v", err)
	}
	if installed.As().value != 2 {
		t.Fatalf("installed.As().value = %d, want 2", installed.As().value)
	}
	final := a.Take(g)
	final.Release(g)
}

func TestAtomicRcCompareExchangeTag(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	a := NewAtomicRc[*linkNode](newLink(1).WithTag(0))
	expected := a.Load(g, ebr.Acquire)

	updated, ok := a.CompareExchangeTag(g, expected, 5, ebr.AcqRel)
	if !ok {
		t.Fatal("CompareExchangeTag failed against a fresh expected value")
	}
	if updated.Tag() != 5 {
		t.Fatalf("updated.Tag() = %d, want 5", updated.Tag())
	}
	if updated.As().value != 1 {
		t.Fatal("CompareExchangeTag must not disturb the pointee")
	}

	final := a.Take(g)
	final.Release(g)
}

func TestAtomicRcPopEdgesIntegratesWithCascade(t *testing.T) {
	col := ebr.New()

	const chainLen = 200
	nodes := make([]Rc[*linkNode], chainLen)
	for i := range nodes {
		nodes[i] = newLink(i)
	}

	atoms := make([]*AtomicRc[*linkNode], chainLen)
	for i := 0; i < chainLen; i++ {
		atoms[i] = &nodes[i].As().next
	}
	for i := 0; i < chainLen-1; i++ {
		g := col.Pin()
		atoms[i].Init(nodes[i+1].Clone())
		g.Release()
	}

	g := col.Pin()
	nodes[0].Release(g)
	g.Release()

	col.FlushUnpinned()
	col.FlushUnpinned()
	col.FlushUnpinned()
	col.FlushUnpinned()

	for i := 1; i < chainLen; i++ {
		g := col.Pin()
		nodes[i].Release(g)
		g.Release()
	}
	col.FlushUnpinned()
	col.FlushUnpinned()
	col.FlushUnpinned()
	col.FlushUnpinned()
}

func TestAtomicRcConcurrentSwap(t *testing.T) {
	col := ebr.New()
	g0 := col.Pin()
	a := NewAtomicRc[*linkNode](newLink(0))
	g0.Release()

	const goroutines = 16
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		i := i
		go func() {
			defer wg.Done()
			g := col.Pin()
			defer g.Release()
			old := a.Swap(g, newLink(i+1), ebr.AcqRel)
			old.Release(g)
		}()
	}
	wg.Wait()

	g := col.Pin()
	final := a.Take(g)
	final.Release(g)
	g.Release()
}
