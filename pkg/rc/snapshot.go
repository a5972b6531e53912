// pkg/rc/snapshot.go
package rc

import (
	"fmt"

	"epochrc/pkg/block"
	"epochrc/pkg/tagptr"
)

// Snapshot is a non-owning view of an object obtained from an AtomicRc
// load or an Rc. It carries no reference count of its own and is valid
// only for as long as whatever pinned guard produced it (directly or
// indirectly) remains pinned, or for as long as the Rc it was taken
// from remains unreleased.
type Snapshot[T Object[T]] struct {
	ptr tagptr.Ptr[block.Block[T]]
}

// NullSnapshot returns the null Snapshot.
func NullSnapshot[T Object[T]]() Snapshot[T] {
	return Snapshot[T]{}
}

// IsNull reports whether s is the null snapshot.
func (s Snapshot[T]) IsNull() bool {
	return s.ptr.IsNull()
}

// Tag returns s's low tag.
func (s Snapshot[T]) Tag() uint32 {
	return s.ptr.Tag()
}

// WithTag returns a copy of s carrying a different low tag.
func (s Snapshot[T]) WithTag(t uint32) Snapshot[T] {
	return Snapshot[T]{ptr: s.ptr.WithTag(t)}
}

// As dereferences s, returning the zero value of T if s is null.
func (s Snapshot[T]) As() T {
	if blk := s.ptr.Addr(); blk != nil {
		return *blk.Data()
	}
	var zero T
	return zero
}

// PtrEqSnapshot reports whether a and b name the same object and carry
// the same low tag, ignoring the installation-epoch tag.
func PtrEqSnapshot[T Object[T]](a, b Snapshot[T]) bool {
	return tagptr.PtrEq(a.ptr, b.ptr)
}

// Counted promotes s to an owning Rc by incrementing the strong count.
// It is the snapshot-side equivalent of Weak.Upgrade, but without the
// possibility of failure. The strong count can already be zero here,
// when a concurrent release has scheduled the object's teardown after s
// was loaded; IncrementStrong's resurrection step then adds the extra
// count that the pending teardown consumes, so the returned handle
// still owns one strong reference.
func (s Snapshot[T]) Counted() Rc[T] {
	if blk := s.ptr.Addr(); blk != nil {
		blk.IncrementStrong()
	}
	return Rc[T]{ptr: s.ptr}
}

// Downgrade returns a non-owning WeakSnapshot of the same object.
func (s Snapshot[T]) Downgrade() WeakSnapshot[T] {
	return WeakSnapshot[T]{ptr: s.ptr}
}

func (s Snapshot[T]) describe() string {
	if s.ptr.IsNull() {
		return "Snapshot(null)"
	}
	return fmt.Sprintf("Snapshot(%p, tag=%d)", s.ptr.Addr(), s.ptr.Tag())
}
