package rc

import (
	"testing"

	"epochrc/pkg/ebr"
)

func TestAtomicWeakLoadStore(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	r := newLeaf(1)
	a := NewAtomicWeak[*leafNode](r.Downgrade())

	loaded := a.Load(g, ebr.Acquire)
	if loaded.IsNull() {
		t.Fatal("Load returned null after Init with a live weak handle")
	}
	counted, ok := loaded.Counted()
	if !ok {
		t.Fatal("loaded WeakSnapshot should promote while the strong handle is live")
	}
	counted.Release(g)

	r2 := newLeaf(2)
	a.Store(g, r2.Downgrade(), ebr.Release)

	reloaded := a.Load(g, ebr.Acquire)
	counted2, ok := reloaded.Counted()
	if !ok {
		t.Fatal("reloaded WeakSnapshot should promote after Store")
	}
	if counted2.As().value != 2 {
		t.Fatalf("counted2.As().value = %d, want 2", counted2.As().value)
	}
	counted2.Release(g)

	r.Release(g)
	r2.Release(g)
}

func TestAtomicWeakSwap(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	r := newLeaf(1)
	a := NewAtomicWeak[*leafNode](r.Downgrade())

	r2 := newLeaf(2)
	old := a.Swap(g, r2.Downgrade(), ebr.AcqRel)
	old.Release()

	r.Release(g)
	r2.Release(g)
}

func TestAtomicWeakCompareExchange(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	r := newLeaf(1)
	a := NewAtomicWeak[*leafNode](r.Downgrade())
	expected := a.Load(g, ebr.Acquire)

	r2 := newLeaf(2)
	installed, err := a.CompareExchange(g, expected, r2.Downgrade(), ebr.AcqRel, ebr.Acquire)
	if err != nil {
		t.Fatalf("CompareExchange failed unexpectedly: %v", err)
	}
	counted, ok := installed.Counted()
	if !ok || counted.As().value != 2 {
		t.Fatal("installed value after CompareExchange should promote to the new object")
	}
	counted.Release(g)

	r.Release(g)
	r2.Release(g)
}

func TestAtomicWeakCompareExchangeFailsOnStaleExpected(t *testing.T) {
	col := ebr.New()
	g := col.Pin()
	defer g.Release()

	r := newLeaf(1)
	a := NewAtomicWeak[*leafNode](r.Downgrade())
	stale := a.Load(g, ebr.Acquire)

	r2 := newLeaf(2)
	a.Store(g, r2.Downgrade(), ebr.Release)

	r3 := newLeaf(3)
	desired := r3.Downgrade()
	_, err := a.CompareExchange(g, stale, desired, ebr.AcqRel, ebr.Acquire)
	if err == nil {
		t.Fatal("CompareExchange should have failed against a stale expected value")
	}
	desired.Release() // caller keeps ownership of desired on failure
	r3.Release(g)

	r.Release(g)
	r2.Release(g)
}
