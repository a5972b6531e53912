// Package spsc implements a single-producer single-consumer queue built
// directly on the reference-counted pointer family, exercised here as a
// test artifact for the simplest possible linked-list shape: one
// outgoing strong edge per node, no contention between the head and
// tail ends since exactly one goroutine ever touches each.
package spsc

import (
	"epochrc/pkg/ebr"
	"epochrc/pkg/ird"
	"epochrc/pkg/rc"
)

type node[T any] struct {
	value T
	next  rc.AtomicRc[*node[T]]
}

func (n *node[T]) PopEdges(taker *ird.EdgeTaker[*node[T]]) {
	taker.Take(&n.next)
}

// Queue is a singly-linked sentinel queue. Enqueue must only be called
// from one goroutine, Dequeue from one (possibly different) goroutine;
// calling either from more than one goroutine concurrently is a misuse
// this package does not guard against, matching the single-producer
// single-consumer contract its name promises.
type Queue[T any] struct {
	head rc.AtomicRc[*node[T]]
	tail rc.AtomicRc[*node[T]]
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	sentinel := rc.NewMany[*node[T]](&node[T]{}, 2)
	q.head.Init(sentinel[0])
	q.tail.Init(sentinel[1])
	return q
}

// Enqueue appends value to the tail.
func (q *Queue[T]) Enqueue(guard *ebr.Guard, value T) {
	handles := rc.NewMany[*node[T]](&node[T]{value: value}, 2)

	tailSnap := q.tail.Load(guard, ebr.Acquire)
	tailNode := tailSnap.As()
	tailNode.next.Store(guard, handles[0], ebr.Release)
	q.tail.Store(guard, handles[1], ebr.Release)
}

// Dequeue removes and returns the value at the head, or the zero value
// and false if the queue is empty.
func (q *Queue[T]) Dequeue(guard *ebr.Guard) (T, bool) {
	headSnap := q.head.Load(guard, ebr.Acquire)
	headNode := headSnap.As()

	nextSnap := headNode.next.Load(guard, ebr.Acquire)
	if nextSnap.IsNull() {
		var zero T
		return zero, false
	}

	value := nextSnap.As().value
	q.head.Store(guard, nextSnap.Counted(), ebr.Release)
	return value, true
}
