// pkg/rc/weak_snapshot.go
package rc

import (
	"epochrc/pkg/block"
	"epochrc/pkg/tagptr"
)

// WeakSnapshot is a non-owning view of a Weak, obtained from an
// AtomicWeak load or from Snapshot.Downgrade. Like Snapshot, it carries
// no reference count of its own.
type WeakSnapshot[T Object[T]] struct {
	ptr tagptr.Ptr[block.Block[T]]
}

// NullWeakSnapshot returns the null WeakSnapshot.
func NullWeakSnapshot[T Object[T]]() WeakSnapshot[T] {
	return WeakSnapshot[T]{}
}

// IsNull reports whether w is the null snapshot.
func (w WeakSnapshot[T]) IsNull() bool {
	return w.ptr.IsNull()
}

// Tag returns w's low tag.
func (w WeakSnapshot[T]) Tag() uint32 {
	return w.ptr.Tag()
}

// WithTag returns a copy of w carrying a different low tag.
func (w WeakSnapshot[T]) WithTag(t uint32) WeakSnapshot[T] {
	return WeakSnapshot[T]{ptr: w.ptr.WithTag(t)}
}

// Counted attempts to promote w to an owning Rc, the weak-pointer
// equivalent of Snapshot.Counted, with the same resurrection-aware
// failure mode as Weak.Upgrade.
func (w WeakSnapshot[T]) Counted() (Rc[T], bool) {
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

// CloneWeak promotes w to an owning Weak by incrementing the weak
// count.
func (w WeakSnapshot[T]) CloneWeak() Weak[T] {
	if blk := w.ptr.Addr(); blk != nil {
		blk.IncrementWeak(1)
	}
	return Weak[T]{ptr: w.ptr}
}
