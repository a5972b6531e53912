// pkg/rc/rc_handle.go
package rc

import (
	"fmt"

	"epochrc/pkg/block"
	"epochrc/pkg/ebr"
	"epochrc/pkg/tagptr"
)

// Rc is an owning strong handle to a value of type T. It is a plain Go
// value (copying it does not copy the referent, but does NOT increment
// the strong count either — use Clone for that); the zero value is the
// null handle.
type Rc[T Object[T]] struct {
	ptr tagptr.Ptr[block.Block[T]]
}

// Null returns the null Rc.
func Null[T Object[T]]() Rc[T] {
	return Rc[T]{}
}

// New allocates a block holding data with a single strong reference.
func New[T Object[T]](data T) Rc[T] {
	b := block.New[T](data, 1)
	return Rc[T]{ptr: tagptr.From(b, 0)}
}

// NewMany allocates one block shared by n independent strong handles,
// avoiding n-1 redundant allocations when a caller needs the same fresh
// object handed out to n different owners at once (for example, one
// handle kept locally and n-1 distributed to worker goroutines).
func NewMany[T Object[T]](data T, n uint32) []Rc[T] {
	if n == 0 {
		return nil
	}
	b := block.New[T](data, n)
	out := make([]Rc[T], n)
	for i := range out {
		out[i] = Rc[T]{ptr: tagptr.From(b, 0)}
	}
	return out
}

// IsNull reports whether r is the null handle.
func (r Rc[T]) IsNull() bool {
	return r.ptr.IsNull()
}

// Tag returns r's low tag.
func (r Rc[T]) Tag() uint32 {
	return r.ptr.Tag()
}

// WithTag returns a copy of r carrying a different low tag. It does not
// touch the strong count: the returned handle and r alias the same
// object and the same single reference, so exactly one of them should
// ultimately be released.
func (r Rc[T]) WithTag(t uint32) Rc[T] {
	return Rc[T]{ptr: r.ptr.WithTag(t)}
}

// As dereferences r, returning the zero value of T if r is null.
func (r Rc[T]) As() T {
	if blk := r.ptr.Addr(); blk != nil {
		return *blk.Data()
	}
	var zero T
	return zero
}

// PtrEq reports whether a and b name the same object and carry the same
// low tag, ignoring the installation-epoch tag.
func PtrEq[T Object[T]](a, b Rc[T]) bool {
	return tagptr.PtrEq(a.ptr, b.ptr)
}

// Clone returns a new owning handle to the same object, incrementing
// the strong count.
func (r Rc[T]) Clone() Rc[T] {
	if blk := r.ptr.Addr(); blk != nil {
		blk.IncrementStrong()
	}
	return r
}

// Release drops this handle. If it held the last strong reference, the
// block is handed to the cascade-destruction engine through guard's
// bag. Go has no implicit destructor, so callers must call Release
// exactly once per handle they own (including handles obtained from
// Clone, Downgrade's counterpart Upgrade, and FromRaw).
func (r Rc[T]) Release(guard *ebr.Guard) {
	releaseRaw[T](guard, r.ptr)
}

// Downgrade returns a new non-owning Weak handle to the same object,
// incrementing the weak count. r remains valid and must still be
// released separately.
func (r Rc[T]) Downgrade() Weak[T] {
	if blk := r.ptr.Addr(); blk != nil {
		blk.IncrementWeak(1)
	}
	return Weak[T]{ptr: r.ptr}
}

// Snapshot returns a non-owning view of r, valid for as long as r
// itself remains unreleased.
func (r Rc[T]) Snapshot() Snapshot[T] {
	return Snapshot[T]{ptr: r.ptr}
}

// TakeRaw consumes r, returning its raw tagged pointer and nulling r in
// place. It implements pkg/ird.RawOwner so that a node's PopEdges
// method can extract an outgoing Rc field with EdgeTaker.Take; it is
// exported for that use and is not meant to be called directly by
// ordinary client code.
func (r *Rc[T]) TakeRaw() tagptr.Ptr[block.Block[T]] {
	p := r.ptr
	r.ptr = tagptr.Null[block.Block[T]]()
	return p
}

// IntoRaw consumes r without releasing it, returning its raw tagged
// pointer for storage outside the pointer family (for example, handing
// it to a foreign data structure). The caller becomes responsible for
// eventually routing it back through FromRaw and Release.
func (r *Rc[T]) IntoRaw() tagptr.Ptr[block.Block[T]] {
	return r.TakeRaw()
}

// FromRaw rewraps a raw tagged pointer previously produced by IntoRaw
// as an owning Rc. It does not touch the strong count.
func FromRaw[T Object[T]](p tagptr.Ptr[block.Block[T]]) Rc[T] {
	return Rc[T]{ptr: p}
}

func (r Rc[T]) describe() string {
	if r.ptr.IsNull() {
		return "Rc(null)"
	}
	return fmt.Sprintf("Rc(%p, tag=%d)", r.ptr.Addr(), r.ptr.Tag())
}
