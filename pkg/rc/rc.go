// Package rc implements the public reference-counted pointer family:
// Rc, AtomicRc, Snapshot, Weak, AtomicWeak and WeakSnapshot. It wires
// the low-level counted block (pkg/block), reclamation backend
// (pkg/ebr) and cascade-destruction engine (pkg/ird) into the pointer
// API a client actually programs against.
//
// T is always instantiated with a node's pointer type (Rc[*Node], not
// Rc[Node]): PopEdges needs a pointer receiver to null a field as it
// hands it over, and in Go only a pointer type's method set contains
// pointer-receiver methods, so the type parameter itself must already
// be that pointer type.
package rc

import (
	"epochrc/pkg/block"
	"epochrc/pkg/ebr"
	"epochrc/pkg/ird"
	"epochrc/pkg/tagptr"
)

// Object is the capability a node type provides so the cascade-
// destruction engine can walk its outgoing edges without reflection or
// virtual dispatch. A node's PopEdges method takes a *ird.EdgeTaker[T];
// implement it by calling EdgeTaker.Take once per outgoing Rc/AtomicRc
// field. See pkg/ird for the full contract.
type Object[T any] interface {
	ird.Object[T]
}

func derefBox[T Object[T]](p *tagptr.Ptr[block.Block[T]]) tagptr.Ptr[block.Block[T]] {
	if p == nil {
		return tagptr.Null[block.Block[T]]()
	}
	return *p
}

func box[T Object[T]](v tagptr.Ptr[block.Block[T]]) *tagptr.Ptr[block.Block[T]] {
	vv := v
	return &vv
}

// releaseRaw decrements the strong count a slot was holding and, on the
// transition to zero, hands the block to the cascade-destruction engine
// through guard's bag.
func releaseRaw[T Object[T]](guard *ebr.Guard, p tagptr.Ptr[block.Block[T]]) {
	blk := p.Addr()
	if blk == nil {
		return
	}
	if blk.DecrementStrong(1) {
		blk.StampDestructEpoch(guard.Epoch())
		guard.Defer(func() {
			ird.TryZero[T](guard.Col(), blk)
		})
	}
}
