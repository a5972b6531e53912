// pkg/rc/weak.go
package rc

import (
	"epochrc/pkg/block"
	"epochrc/pkg/tagptr"
)

// Weak is a non-owning handle that observes whether an object is still
// alive without keeping it alive itself. It holds a weak reference:
// the strong handles collectively keep one weak reference alive on the
// block's behalf, so a live Weak never by itself prevents the object's data
// from being torn down, only the block's own bookkeeping memory from
// being freed before every Weak (and every strong handle) has let go.
type Weak[T Object[T]] struct {
	ptr tagptr.Ptr[block.Block[T]]
}

// NullWeak returns the null Weak.
func NullWeak[T Object[T]]() Weak[T] {
	return Weak[T]{}
}

// IsNull reports whether w is the null handle.
func (w Weak[T]) IsNull() bool {
	return w.ptr.IsNull()
}

// Clone returns a new weak handle to the same object, incrementing the
// weak count.
func (w Weak[T]) Clone() Weak[T] {
	if blk := w.ptr.Addr(); blk != nil {
		blk.IncrementWeak(1)
	}
	return w
}

// Release drops this weak handle, decrementing the weak count. Unlike
// releasing a strong handle, this never schedules further work: a weak
// count reaching zero only means the block's bookkeeping word is free
// to go, since whatever T owned was already torn down when the strong
// count hit zero.
func (w Weak[T]) Release() {
	blk := w.ptr.Addr()
	if blk == nil {
		return
	}
	blk.DecrementWeak(1)
}

// Upgrade attempts to produce a new owning Rc, succeeding only if the
// object's strong count has not already fallen to zero. It races a
// concurrent strong-to-zero transition using the same resurrection
// protocol as the strong count itself: an observed 0->1 increment is
// always backed out and reported as failure, since "observed at zero"
// means the object is conceptually dead regardless of why the counter
// briefly read zero.
func (w Weak[T]) Upgrade() (Rc[T], bool) {
	blk := w.ptr.Addr()
	if blk == nil {
		return Rc[T]{}, false
	}
	if blk.IncrementStrong() {
		blk.DecrementStrong(1)
		return Rc[T]{}, false
	}
	return Rc[T]{ptr: w.ptr}, true
}

// Snapshot returns a non-owning WeakSnapshot view of w.
func (w Weak[T]) Snapshot() WeakSnapshot[T] {
	return WeakSnapshot[T]{ptr: w.ptr}
}

// TakeRaw consumes w, returning its raw tagged pointer and nulling w in
// place.
func (w *Weak[T]) TakeRaw() tagptr.Ptr[block.Block[T]] {
	p := w.ptr
	w.ptr = tagptr.Null[block.Block[T]]()
	return p
}
