// Package harris implements a lock-free ordered map over Harris's
// linked-list algorithm (found/deleted nodes are first tag-marked, then
// physically unlinked by whichever traversal next passes over them),
// built on the reference-counted pointer family. Keys are compared with
// ordinary comparison operators via cmp.Ordered, the idiomatic Go stand-
// in for the generic Ord bound the original algorithm assumes.
package harris

import (
	"cmp"

	"epochrc/pkg/ebr"
	"epochrc/pkg/ird"
	"epochrc/pkg/rc"
)

type node[K cmp.Ordered, V any] struct {
	next  rc.AtomicRc[*node[K, V]]
	key   K
	value V
}

func (n *node[K, V]) PopEdges(taker *ird.EdgeTaker[*node[K, V]]) {
	taker.Take(&n.next)
}

func newHead[K cmp.Ordered, V any]() *node[K, V] {
	return &node[K, V]{}
}

// Map is a lock-free ordered map safe for concurrent Get, Insert and
// Remove calls from any number of goroutines.
type Map[K cmp.Ordered, V any] struct {
	head rc.AtomicRc[*node[K, V]]
}

// New returns an empty map.
func New[K cmp.Ordered, V any]() *Map[K, V] {
	m := &Map[K, V]{}
	m.head.Init(rc.New[*node[K, V]](newHead[K, V]()))
	return m
}

// cursor tracks the previous untagged node and the first untagged node
// at or past the search key, the state a single find_harris pass
// accumulates while also cleaning up any logically-removed nodes it
// passes over.
type cursor[K cmp.Ordered, V any] struct {
	prev rc.Snapshot[*node[K, V]]
	curr rc.Snapshot[*node[K, V]]
}

func newCursor[K cmp.Ordered, V any](guard *ebr.Guard, head *rc.AtomicRc[*node[K, V]]) cursor[K, V] {
	prev := head.Load(guard, ebr.Relaxed)
	curr := prev.As().next.Load(guard, ebr.Acquire)
	return cursor[K, V]{prev: prev, curr: curr}
}

// findHarris walks the list looking for key, unlinking any tag-marked
// nodes it passes along the way in a single compare-and-swap once it
// reaches an untagged anchor. ok is false only when that cleanup
// compare-and-swap lost a race, in which case the caller should restart
// with a fresh cursor.
func (c *cursor[K, V]) findHarris(guard *ebr.Guard, key K) (value V, found bool, ok bool) {
	prevNext := c.curr
	var resultPtr *V

	for {
		currNode := c.curr.As()
		if currNode == nil {
			break
		}
		next := currNode.next.Load(guard, ebr.Acquire)
		if next.Tag() != 0 {
			// Skip over an already tag-marked (logically removed) node;
			// re-clear the tag so curr's own tag always reads zero.
			c.curr = next.WithTag(0)
			continue
		}

		if currNode.key < key {
			c.prev = c.curr
			c.curr = next
			prevNext = next
			continue
		}
		if currNode.key == key {
			resultPtr = &currNode.value
		}
		break
	}

	if rc.PtrEqSnapshot(prevNext, c.curr) {
		if resultPtr != nil {
			return *resultPtr, true, true
		}
		var zero V
		return zero, false, true
	}

	desired := c.curr.Counted()
	if _, err := c.prev.As().next.CompareExchange(guard, prevNext, desired, ebr.Release, ebr.Relaxed); err != nil {
		desired.Release(guard)
		var zero V
		return zero, false, false
	}

	if resultPtr != nil {
		return *resultPtr, true, true
	}
	var zero V
	return zero, false, true
}

func (m *Map[K, V]) get(guard *ebr.Guard, key K) (V, bool, cursor[K, V]) {
	for {
		c := newCursor(guard, &m.head)
		if v, found, ok := c.findHarris(guard, key); ok {
			return v, found, c
		}
	}
}

// insert links node between c.prev and c.curr, returning the node back
// to the caller (to retry with a different cursor) if it lost the race.
func (c *cursor[K, V]) insert(guard *ebr.Guard, n rc.Rc[*node[K, V]]) (rc.Rc[*node[K, V]], bool) {
	old := n.As().next.Swap(guard, c.curr.Counted(), ebr.Relaxed)
	old.Release(guard)

	if _, err := c.prev.As().next.CompareExchange(guard, c.curr, n, ebr.Release, ebr.Relaxed); err != nil {
		return n, false
	}
	return rc.Rc[*node[K, V]]{}, true
}

// remove tag-marks curr, then attempts (best-effort; a lost race here
// is cleaned up by a later traversal's findHarris) to physically unlink
// it.
func (c *cursor[K, V]) remove(guard *ebr.Guard) bool {
	currNode := c.curr.As()
	next := currNode.next.Load(guard, ebr.Acquire)

	if _, ok := currNode.next.CompareExchangeTag(guard, next.WithTag(0), 1, ebr.AcqRel); !ok {
		return false
	}

	desired := next.Counted()
	if _, err := c.prev.As().next.CompareExchange(guard, c.curr, desired, ebr.Release, ebr.Relaxed); err != nil {
		desired.Release(guard)
	}
	return true
}

// Get returns the value stored for key, if any.
func (m *Map[K, V]) Get(guard *ebr.Guard, key K) (V, bool) {
	v, found, _ := m.get(guard, key)
	return v, found
}

// Insert stores value for key unless key is already present, in which
// case it returns the existing value and false.
func (m *Map[K, V]) Insert(guard *ebr.Guard, key K, value V) (V, bool) {
	n := rc.New[*node[K, V]](&node[K, V]{key: key, value: value})
	for {
		existing, found, c := m.get(guard, key)
		if found {
			n.Release(guard)
			return existing, false
		}
		var ok bool
		n, ok = c.insert(guard, n)
		if ok {
			var zero V
			return zero, true
		}
	}
}

// Remove deletes key, returning its value and true if it was present.
func (m *Map[K, V]) Remove(guard *ebr.Guard, key K) (V, bool) {
	for {
		v, found, c := m.get(guard, key)
		if !found {
			var zero V
			return zero, false
		}
		if c.remove(guard) {
			return v, true
		}
	}
}
