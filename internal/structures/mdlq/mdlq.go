// Package mdlq implements a Michael-Scott style doubly-linked
// multi-producer multi-consumer queue: each node's forward link is an
// owning AtomicRc, while its backward link is a non-owning Weak, so the
// list never forms an ownership cycle. A new node's prev field is set
// once, before the node is published by the tail compare-and-swap, and
// never mutated again, so reading it from another goroutine after
// observing the publish needs no atomics of its own.
package mdlq

import (
	"epochrc/pkg/ebr"
	"epochrc/pkg/ird"
	"epochrc/pkg/rc"
)

type node[T any] struct {
	item    T
	hasItem bool
	prev    rc.Weak[*node[T]]
	next    rc.AtomicRc[*node[T]]
}

// PopEdges releases the node's non-owning backward link and hands its
// owning forward link to the cascade-destruction engine. It runs
// exactly once, immediately before the node is torn down.
func (n *node[T]) PopEdges(taker *ird.EdgeTaker[*node[T]]) {
	n.prev.Release()
	n.prev = rc.NullWeak[*node[T]]()
	taker.Take(&n.next)
}

func newSentinel[T any]() *node[T] {
	return &node[T]{}
}

func newItemNode[T any](item T) *node[T] {
	return &node[T]{item: item, hasItem: true}
}

// Queue is a doubly-linked MPMC queue safe for concurrent Enqueue and
// Dequeue calls from any number of goroutines.
type Queue[T any] struct {
	head rc.AtomicRc[*node[T]]
	tail rc.AtomicRc[*node[T]]
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	// sentinel.prev must never be set to a weak reference to itself: the
	// very first enqueue would then downgrade a self-referencing prev,
	// forming a cycle that blocks the whole chain's reclamation forever.
	sentinel := rc.NewMany[*node[T]](newSentinel[T](), 2)
	q.head.Init(sentinel[0])
	q.tail.Init(sentinel[1])
	return q
}

// Enqueue appends item to the tail.
func (q *Queue[T]) Enqueue(guard *ebr.Guard, item T) {
	handles := rc.NewMany[*node[T]](newItemNode(item), 2)
	newNode, sub := handles[0], handles[1]

	for {
		ltail := q.tail.Load(guard, ebr.Acquire)

		newNode.As().prev.Release()
		newNode.As().prev = ltail.Downgrade().CloneWeak()

		// Help a concurrent enqueue that installed the tail but has not
		// yet linked the previous tail's forward pointer to it.
		if lprevWeak := ltail.As().prev.Snapshot(); !lprevWeak.IsNull() {
			if lprev, ok := lprevWeak.Counted(); ok {
				if lprev.As().next.Load(guard, ebr.SeqCst).IsNull() {
					lprev.As().next.Store(guard, ltail.Counted(), ebr.Relaxed)
				}
				lprev.Release(guard)
			}
		}

		if _, err := q.tail.CompareExchange(guard, ltail, newNode, ebr.SeqCst, ebr.SeqCst); err != nil {
			continue
		}

		ltail.As().next.Store(guard, sub, ebr.Release)
		return
	}
}

// Dequeue removes and returns the value at the head, or the zero value
// and false if the queue is empty.
func (q *Queue[T]) Dequeue(guard *ebr.Guard) (T, bool) {
	for {
		lhead := q.head.Load(guard, ebr.Acquire)
		lnext := lhead.As().next.Load(guard, ebr.Acquire)
		if lnext.IsNull() {
			var zero T
			return zero, false
		}

		desired := lnext.Counted()
		if _, err := q.head.CompareExchange(guard, lhead, desired, ebr.SeqCst, ebr.SeqCst); err != nil {
			desired.Release(guard)
			continue
		}

		return lnext.As().item, true
	}
}
