// pkg/ebr/guard.go
package ebr

import "sync/atomic"

// Participant is the registry entry for one pinned Guard: its locally
// observed epoch at the moment of pinning.
type Participant struct {
	epoch uint64 // atomic
}

// Guard is a scoped acquisition of the collector's current epoch. While
// a Guard is live, the collector will not advance the global epoch more
// than one step past the Guard's observed epoch, which in turn prevents any object retired
// at or after that epoch from being reclaimed out from under a reader
// still holding it. Guard has no implicit destructor (Go has none); the
// holder must call Release when done, exactly as it would call Unlock
// on a mutex.
type Guard struct {
	col  *Collector
	id   uint64
	part *Participant

	// unprotected marks a Guard created via Collector.Unprotected: no
	// participant is registered, Epoch reads the live global epoch
	// directly, and Defer runs its closure immediately rather than
	// queuing it, matching the "no concurrent readers could possibly
	// exist" escape hatch used for single-threaded setup/teardown code.
	unprotected bool
}

// Pin registers a new participant at the current global epoch and
// returns a Guard. The caller must call Release on the returned Guard
// once it is done accessing any epoch-protected data.
func (c *Collector) Pin() *Guard {
	part := &Participant{}
	atomic.StoreUint64(&part.epoch, atomic.LoadUint64(&c.globalEpoch))

	id := atomic.AddUint64(&c.nextParticipantID, 1)
	c.participants.Store(id, part)

	atomic.AddUint64(&c.statPins, 1)
	if atomic.AddUint64(&c.pinsSinceAdvance, 1) >= c.config.AdvanceEveryPins {
		atomic.StoreUint64(&c.pinsSinceAdvance, 0)
		c.TryAdvance()
	}

	return &Guard{col: c, id: id, part: part}
}

// Unprotected returns a Guard that registers no participant. Use it
// only where no other goroutine can possibly be observing the data
// being touched (single-threaded construction/teardown, or reclamation
// code already running from a quiescent bag). Defer on an unprotected
// Guard executes its argument immediately instead of queuing it.
func (c *Collector) Unprotected() *Guard {
	return &Guard{col: c, unprotected: true}
}

// IsUnprotected reports whether g was created via Unprotected.
func (g *Guard) IsUnprotected() bool {
	return g.unprotected
}

// Col returns the collector g belongs to.
func (g *Guard) Col() *Collector {
	return g.col
}

// Epoch returns the epoch g is pinned at. An unprotected Guard reports
// the live global epoch, since it holds no fixed pin of its own.
func (g *Guard) Epoch() uint64 {
	if g.unprotected || g.part == nil {
		return g.col.GlobalEpoch()
	}
	return atomic.LoadUint64(&g.part.epoch)
}

// Repin releases g's participant slot and registers a fresh one at the
// current global epoch, reusing the same Guard value. It is the Go
// realization of crossbeam's guard.repin(): useful in a long-running
// loop that wants to let the epoch advance between iterations. Unlike
// Pin, it does not count toward the collector's pin statistics or
// trigger an advance attempt.
func (g *Guard) Repin() {
	if g.unprotected {
		return
	}
	g.Release()

	part := &Participant{}
	atomic.StoreUint64(&part.epoch, atomic.LoadUint64(&g.col.globalEpoch))
	id := atomic.AddUint64(&g.col.nextParticipantID, 1)
	g.col.participants.Store(id, part)

	g.id = id
	g.part = part
}

// Release unregisters g's participant slot. After Release, the global
// epoch is free to advance past whatever epoch g was pinned at. Calling
// Release on an unprotected Guard, or more than once, is a no-op.
func (g *Guard) Release() {
	if g.unprotected || g.part == nil {
		return
	}
	g.col.participants.Delete(g.id)
	g.part = nil
}

// Defer schedules f to run once the collector can prove no pinned
// participant could still observe the state f's closure captured. On an
// unprotected Guard, f runs immediately instead, since there is by
// construction no such participant to wait for.
func (g *Guard) Defer(f func()) {
	if g.unprotected {
		f()
		return
	}
	g.col.deferClosure(f)
}
