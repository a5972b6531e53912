package spsc

import (
	"sync"
	"testing"

	"epochrc/pkg/ebr"
)

func TestEnqueueDequeueOrder(t *testing.T) {
	col := ebr.New()
	q := New[int]()

	g := col.Pin()
	q.Enqueue(g, 1)
	q.Enqueue(g, 2)
	q.Enqueue(g, 3)
	g.Release()

	g = col.Pin()
	for _, want := range []int{1, 2, 3} {
		got, ok := q.Dequeue(g)
		if !ok {
			t.Fatalf("Dequeue() reported empty, want %d", want)
		}
		if got != want {
			t.Fatalf("Dequeue() = %d, want %d", got, want)
		}
	}
	if _, ok := q.Dequeue(g); ok {
		t.Fatal("Dequeue() on an empty queue should report false")
	}
	g.Release()

	col.FlushUnpinned()
	col.FlushUnpinned()
	col.FlushUnpinned()
	col.FlushUnpinned()
}

func TestConcurrentProducerConsumer(t *testing.T) {
	col := ebr.New()
	q := New[int]()
	const n = 20000

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			g := col.Pin()
			q.Enqueue(g, i)
			g.Release()
		}
	}()

	go func() {
		defer wg.Done()
		received := 0
		for received < n {
			g := col.Pin()
			v, ok := q.Dequeue(g)
			g.Release()
			if !ok {
				continue
			}
			if v != received {
				t.Errorf("Dequeue() = %d, want %d", v, received)
			}
			received++
		}
	}()

	wg.Wait()
	col.FlushUnpinned()
}
