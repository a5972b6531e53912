// pkg/rc/iter.go
package rc

import (
	"epochrc/pkg/block"
	"epochrc/pkg/ebr"
	"epochrc/pkg/ird"
	"epochrc/pkg/tagptr"
)

// NewRcIter lazily distributes n strong handles to one shared block,
// without materializing them all in a slice up front the way NewMany
// does. It is meant for a large or unknown-at-compile-time n where
// handles are handed out one at a time as consumers arrive.
type NewRcIter[T Object[T]] struct {
	remain uint32
	blk    *block.Block[T]
}

// NewIter allocates a block holding data with n strong references,
// returning an iterator over them.
func NewIter[T Object[T]](data T, n uint32) *NewRcIter[T] {
	return &NewRcIter[T]{remain: n, blk: block.New[T](data, n)}
}

// Next returns the next undistributed handle, or false once all n have
// been handed out.
func (it *NewRcIter[T]) Next() (Rc[T], bool) {
	if it.remain == 0 {
		return Rc[T]{}, false
	}
	it.remain--
	return Rc[T]{ptr: tagptr.From(it.blk, 0)}, true
}

// Remaining reports how many handles are left to distribute.
func (it *NewRcIter[T]) Remaining() uint32 {
	return it.remain
}

// Abort releases every undistributed handle in a single decrement,
// rather than one Next/Release pair at a time, and marks the iterator
// exhausted.
func (it *NewRcIter[T]) Abort(guard *ebr.Guard) {
	n := it.remain
	if n == 0 {
		return
	}
	it.remain = 0
	if it.blk.DecrementStrong(n) {
		blk := it.blk
		blk.StampDestructEpoch(guard.Epoch())
		guard.Defer(func() {
			ird.TryZero[T](guard.Col(), blk)
		})
	}
}
