// pkg/rc/atomic_weak.go
package rc

import (
	"sync/atomic"

	"epochrc/pkg/block"
	"epochrc/pkg/ebr"
	"epochrc/pkg/tagptr"
)

// AtomicWeak is an atomically-accessed weak pointer slot, the weak
// counterpart of AtomicRc. The zero value is a valid null slot. Do not
// copy an AtomicWeak after its first use.
type AtomicWeak[T Object[T]] struct {
	link atomic.Pointer[tagptr.Ptr[block.Block[T]]]
}

// NewAtomicWeak returns a new AtomicWeak initialized to init, consuming
// init's weak reference.
func NewAtomicWeak[T Object[T]](init Weak[T]) *AtomicWeak[T] {
	a := &AtomicWeak[T]{}
	a.Init(init)
	return a
}

// Init sets a's initial content, consuming init's weak reference. Like
// AtomicRc.Init, it must only be used before a is published.
func (a *AtomicWeak[T]) Init(init Weak[T]) {
	p := init.TakeRaw()
	a.link.Store(box[T](p))
}

func (a *AtomicWeak[T]) loadRaw() tagptr.Ptr[block.Block[T]] {
	return derefBox[T](a.link.Load())
}

// Load returns a non-owning WeakSnapshot of the currently installed
// value.
func (a *AtomicWeak[T]) Load(guard *ebr.Guard, order ebr.Order) WeakSnapshot[T] {
	ebr.ValidateLoad(order)
	return WeakSnapshot[T]{ptr: a.loadRaw()}
}

// Store installs desired, consuming its weak reference, and releases
// whatever was previously installed.
func (a *AtomicWeak[T]) Store(guard *ebr.Guard, desired Weak[T], order ebr.Order) {
	ebr.ValidateStore(order)
	p := desired.TakeRaw().WithHighTag(guard.Epoch())
	old := derefBox[T](a.link.Swap(box[T](p)))
	if blk := old.Addr(); blk != nil {
		blk.DecrementWeak(1)
	}
}

// Swap installs desired like Store, but returns the previous value as
// an owning Weak instead of releasing it.
func (a *AtomicWeak[T]) Swap(guard *ebr.Guard, desired Weak[T], order ebr.Order) Weak[T] {
	ebr.ValidateRMW(order)
	p := desired.TakeRaw().WithHighTag(guard.Epoch())
	old := derefBox[T](a.link.Swap(box[T](p)))
	return Weak[T]{ptr: old}
}

// CompareExchange installs desired if the current value equals expected
// (ignoring the installation-epoch tag), consuming desired's weak
// reference on success and releasing the previous value. On failure it
// returns the value actually installed and a *CompareExchangeError.
func (a *AtomicWeak[T]) CompareExchange(guard *ebr.Guard, expected WeakSnapshot[T], desired Weak[T], success, failure ebr.Order) (WeakSnapshot[T], error) {
	ebr.ValidateRMW(success)
	ebr.ValidateFailureOrder(failure)

	want := desired.ptr.WithHighTag(guard.Epoch())
	for {
		curSlot := a.link.Load()
		cur := derefBox[T](curSlot)
		if !tagptr.PtrEq(cur, expected.ptr) {
			return WeakSnapshot[T]{ptr: cur}, &CompareExchangeError[T]{Current: Snapshot[T]{ptr: cur}}
		}
		if a.link.CompareAndSwap(curSlot, box[T](want)) {
			desired.TakeRaw()
			if blk := cur.Addr(); blk != nil {
				blk.DecrementWeak(1)
			}
			return WeakSnapshot[T]{ptr: want}, nil
		}
	}
}

// TakeRaw consumes the slot's current content, returning the raw tagged
// pointer and leaving the slot null.
func (a *AtomicWeak[T]) TakeRaw() tagptr.Ptr[block.Block[T]] {
	var zero tagptr.Ptr[block.Block[T]]
	return derefBox[T](a.link.Swap(&zero))
}
