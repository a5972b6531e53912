// pkg/ird/ird.go
package ird

import (
	"epochrc/pkg/block"
	"epochrc/pkg/ebr"
	"epochrc/pkg/tagptr"
)

// Object is satisfied by a node type that can report its own outgoing
// strong edges. T is instantiated with the node's pointer type (for
// example Object[*TreeNode], not Object[TreeNode]): PopEdges needs a
// pointer receiver so it can null each edge field as it hands the edge
// to taker, and in Go only a pointer type's method set includes
// pointer-receiver methods, so the type parameter itself must be that
// pointer type. PopEdges is called at most once per node, right before
// the node itself is torn down.
//
// The self-referential constraint (Object[T] requires a PopEdges that
// takes an EdgeTaker of that same T) takes the place of the virtual
// dispatch the reference protocol uses: because T is fixed at compile
// time for any given Rc[T]/AtomicRc[T] instantiation, the method set is
// resolved statically, with no per-call vtable lookup.
type Object[T any] interface {
	PopEdges(taker *EdgeTaker[T])
}

// RawOwner is implemented by any field capable of handing over the one
// strong reference it owns, nulling itself in the process. pkg/rc's
// Rc[T] and AtomicRc[T] both implement it.
type RawOwner[T any] interface {
	TakeRaw() tagptr.Ptr[block.Block[T]]
}

// EdgeTaker accumulates the raw strong edges a dying node extracts from
// its own fields via PopEdges.
type EdgeTaker[T any] struct {
	edges []tagptr.Ptr[block.Block[T]]
}

// Take extracts owner's strong reference, if any, into the taker.
func (e *EdgeTaker[T]) Take(owner RawOwner[T]) {
	p := owner.TakeRaw()
	if !p.IsNull() {
		e.edges = append(e.edges, p)
	}
}

// Destroy runs the immediate-recursive-destruction cascade starting
// from blk, whose strong count has already reached zero and whose
// destruct epoch has already been stamped. Inline destruction never
// recurses on the Go call stack: it is driven by an explicit worklist,
// so a chain of old edges of any length destroys in bounded stack depth.
// A deferred target on an unprotected guard is different: Defer runs
// its TryZero at once, inside this call, so each such target adds a
// nested Destroy to the stack.
//
// For every edge a dying node releases, if that edge's target also
// drops to zero strong references, Destroy inline-destroys it now when
// the edge's installation epoch is old enough that no guard pinned
// since could possibly still observe it (epoch <= current-2); otherwise
// it defers the target's destruction on guard, exactly like a top-level
// drop would.
func Destroy[T Object[T]](guard *ebr.Guard, blk *block.Block[T]) {
	work := []*block.Block[T]{blk}
	for len(work) > 0 {
		n := len(work) - 1
		cur := work[n]
		work = work[:n]
		work = append(work, disposeOne(guard, cur)...)
	}
}

func disposeOne[T Object[T]](guard *ebr.Guard, blk *block.Block[T]) []*block.Block[T] {
	var taker EdgeTaker[T]
	node := *blk.Data()
	node.PopEdges(&taker)

	g := guard.Epoch()
	var inline []*block.Block[T]

	for _, edge := range taker.edges {
		target := edge.Addr()
		if target == nil {
			continue
		}
		if !target.DecrementStrong(1) {
			continue
		}
		target.StampDestructEpoch(g)

		// The high tag is 16 bits wide and wraps, so the edge's age is
		// taken modulo 2^16, as a signed distance from g.
		age := int16(uint16(g) - uint16(edge.HighTag()))
		if age >= 2 {
			inline = append(inline, target)
			continue
		}

		t := target
		guard.Defer(func() {
			TryZero[T](guard.Col(), t)
		})
	}

	blk.DecrementWeak(1)
	return inline
}

// TryZero is the deferred action scheduled whenever a strong count
// first reaches zero. Because the decrement and the deferred run are
// separated in time, a concurrent Snapshot.Counted() may have
// resurrected the block in between; TryZero re-validates the count
// before disposing, and simply undoes its own speculative teardown
// attempt if a resurrection occurred.
func TryZero[T Object[T]](col *ebr.Collector, blk *block.Block[T]) {
	if blk.Strong() != 0 {
		blk.DecrementStrong(1)
		return
	}
	Destroy(col.Unprotected(), blk)
}
