// pkg/rc/atomic_rc.go
package rc

import (
	"sync/atomic"

	"epochrc/pkg/block"
	"epochrc/pkg/ebr"
	"epochrc/pkg/tagptr"
)

// AtomicRc is an atomically-accessed strong pointer slot: the owning
// counterpart of a field other goroutines load, swap and
// compare-and-swap concurrently. The zero value is a valid null slot.
//
// Go's garbage collector only traces words whose static type is a
// pointer, so the slot cannot hold a raw tagged machine word the way
// the upstream protocol does; instead it holds an atomic pointer to an
// immutable tagptr.Ptr snapshot, and every mutating method here works
// by installing a fresh snapshot and retrying on a changed snapshot
// identity, which gives the same compare-and-swap-on-logical-value
// behavior without ever hiding a live object from the collector behind
// a mangled address. Do not copy an AtomicRc after its first use.
type AtomicRc[T Object[T]] struct {
	link atomic.Pointer[tagptr.Ptr[block.Block[T]]]
}

// NewAtomicRc returns a new AtomicRc initialized to init, consuming
// init's strong reference.
func NewAtomicRc[T Object[T]](init Rc[T]) *AtomicRc[T] {
	a := &AtomicRc[T]{}
	a.Init(init)
	return a
}

// Init sets a's initial content, consuming init's strong reference. It
// must only be used before a is published to other goroutines: unlike
// Store, it does not release whatever a previously held.
func (a *AtomicRc[T]) Init(init Rc[T]) {
	p := init.TakeRaw()
	a.link.Store(box[T](p))
}

func (a *AtomicRc[T]) loadRaw() tagptr.Ptr[block.Block[T]] {
	return derefBox[T](a.link.Load())
}

// Load returns a non-owning Snapshot of the currently installed value.
func (a *AtomicRc[T]) Load(guard *ebr.Guard, order ebr.Order) Snapshot[T] {
	ebr.ValidateLoad(order)
	return Snapshot[T]{ptr: a.loadRaw()}
}

// Store installs desired, consuming its strong reference, and releases
// whatever was previously installed through guard's bag.
func (a *AtomicRc[T]) Store(guard *ebr.Guard, desired Rc[T], order ebr.Order) {
	ebr.ValidateStore(order)
	p := desired.TakeRaw().WithHighTag(guard.Epoch())
	old := derefBox[T](a.link.Swap(box[T](p)))
	releaseRaw[T](guard, old)
}

// Swap installs desired like Store, but returns the previous value as
// an owning Rc instead of releasing it.
func (a *AtomicRc[T]) Swap(guard *ebr.Guard, desired Rc[T], order ebr.Order) Rc[T] {
	ebr.ValidateRMW(order)
	p := desired.TakeRaw().WithHighTag(guard.Epoch())
	old := derefBox[T](a.link.Swap(box[T](p)))
	return Rc[T]{ptr: old}
}

// Take atomically swaps in the null pointer and returns whatever was
// previously installed as an owning Rc.
func (a *AtomicRc[T]) Take(guard *ebr.Guard) Rc[T] {
	null := tagptr.Null[block.Block[T]]().WithHighTag(guard.Epoch())
	old := derefBox[T](a.link.Swap(box[T](null)))
	return Rc[T]{ptr: old}
}

// CompareExchange installs desired if the current value equals expected
// (ignoring the installation-epoch tag), consuming desired's strong
// reference on success and releasing the previous value through
// guard's bag. On failure it returns the value actually installed and a
// *CompareExchangeError; desired is left untouched so the caller can
// retry. Unlike CompareExchangeWeak, it retries internally when the
// observed mismatch turns out to be an epoch-only stamp update racing
// concurrently, since that is not a real change in the logical value.
func (a *AtomicRc[T]) CompareExchange(guard *ebr.Guard, expected Snapshot[T], desired Rc[T], success, failure ebr.Order) (Snapshot[T], error) {
	ebr.ValidateRMW(success)
	ebr.ValidateFailureOrder(failure)

	want := desired.ptr.WithHighTag(guard.Epoch())
	for {
		curSlot := a.link.Load()
		cur := derefBox[T](curSlot)
		if !tagptr.PtrEq(cur, expected.ptr) {
			return Snapshot[T]{ptr: cur}, &CompareExchangeError[T]{Current: Snapshot[T]{ptr: cur}}
		}
		if a.link.CompareAndSwap(curSlot, box[T](want)) {
			desired.TakeRaw()
			releaseRaw[T](guard, cur)
			return Snapshot[T]{ptr: want}, nil
		}
	}
}

// CompareExchangeWeak behaves like CompareExchange but may fail
// spuriously when another goroutine raced the same slot, even if that
// goroutine's change was logically a no-op from this caller's
// perspective. It never retries internally, which makes it the cheaper
// choice inside a caller-driven retry loop that already reloads and
// recomputes desired on every iteration.
func (a *AtomicRc[T]) CompareExchangeWeak(guard *ebr.Guard, expected Snapshot[T], desired Rc[T], success, failure ebr.Order) (Snapshot[T], error) {
	ebr.ValidateRMW(success)
	ebr.ValidateFailureOrder(failure)

	curSlot := a.link.Load()
	cur := derefBox[T](curSlot)
	if !tagptr.PtrEq(cur, expected.ptr) {
		return Snapshot[T]{ptr: cur}, &CompareExchangeError[T]{Current: Snapshot[T]{ptr: cur}}
	}
	want := desired.ptr.WithHighTag(guard.Epoch())
	if !a.link.CompareAndSwap(curSlot, box[T](want)) {
		cur = a.loadRaw()
		return Snapshot[T]{ptr: cur}, &CompareExchangeError[T]{Current: Snapshot[T]{ptr: cur}}
	}
	desired.TakeRaw()
	releaseRaw[T](guard, cur)
	return Snapshot[T]{ptr: want}, nil
}

// CompareExchangeTag changes only the low tag of the currently
// installed pointer, leaving its address untouched, succeeding only if
// the current value equals expected. It is for the common case of
// storing small auxiliary state (a mark bit, a generation counter) in
// the tag without disturbing ownership.
func (a *AtomicRc[T]) CompareExchangeTag(guard *ebr.Guard, expected Snapshot[T], tag uint32, order ebr.Order) (Snapshot[T], bool) {
	ebr.ValidateRMW(order)

	desired := expected.ptr.WithTag(tag).WithHighTag(guard.Epoch())
	for {
		curSlot := a.link.Load()
		cur := derefBox[T](curSlot)
		if !tagptr.PtrEq(cur, expected.ptr) {
			return Snapshot[T]{ptr: cur}, false
		}
		if a.link.CompareAndSwap(curSlot, box[T](desired)) {
			return Snapshot[T]{ptr: desired}, true
		}
	}
}

// TakeRaw consumes the slot's current content without going through the
// guard/epoch-stamping machinery, returning the raw tagged pointer and
// leaving the slot null. It implements pkg/ird.RawOwner so a node's
// PopEdges method can extract an outgoing AtomicRc field with
// EdgeTaker.Take.
func (a *AtomicRc[T]) TakeRaw() tagptr.Ptr[block.Block[T]] {
	var zero tagptr.Ptr[block.Block[T]]
	return derefBox[T](a.link.Swap(&zero))
}
