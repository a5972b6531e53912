// pkg/ebr/epoch.go
package ebr

import (
	"sync"
	"sync/atomic"
)

// bagGenerations is the number of rotating deferred-work bags. Garbage
// deferred during epoch E is only safe to run once the global epoch has
// advanced two generations past E, so three slots (current, previous,
// the one about to be collected) are enough to always have a bag that
// is provably quiescent.
const bagGenerations = 3

// Config tunes a Collector's advancement heuristics.
type Config struct {
	// BagCapacity is the number of deferred closures a generation holds
	// before an advance attempt is forced.
	BagCapacity int
	// AdvanceEveryPins forces an advance attempt after this many calls
	// to Pin, bounding how stale the global epoch can get under a
	// workload that pins often but defers rarely.
	AdvanceEveryPins uint64
}

// DefaultConfig returns the tuning this package uses when none is
// supplied.
func DefaultConfig() Config {
	return Config{
		BagCapacity:      64,
		AdvanceEveryPins: 128,
	}
}

// Collector is the reclamation backend: a monotonic global epoch, a
// registry of pinned participants, and three generations of deferred
// work. It is the Go-side counterpart of the teacher's EpochManager,
// generalized from retiring typed tree nodes to deferring arbitrary
// closures in three rotating generations instead of one retire-epoch
// keyed map.
type Collector struct {
	config Config

	globalEpoch uint64 // atomic, starts at 1 so epoch 0 can mean "never pinned"

	participants      sync.Map // uint64 participant id -> *Participant
	nextParticipantID uint64   // atomic
	pinsSinceAdvance  uint64   // atomic

	bagsMu sync.Mutex
	bags   [bagGenerations][]func()

	statPins      uint64 // atomic
	statAdvances  uint64 // atomic
	statReclaimed uint64 // atomic
}

// Stats is a point-in-time snapshot of a Collector's counters.
type Stats struct {
	Pins               uint64
	Advances           uint64
	Reclaimed          uint64
	ActiveParticipants int
	PendingCount       int
}

// New returns a Collector using DefaultConfig.
func New() *Collector {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig returns a Collector tuned by cfg.
func NewWithConfig(cfg Config) *Collector {
	c := &Collector{config: cfg}
	c.globalEpoch = 1
	return c
}

// GlobalEpoch returns the current global epoch.
func (c *Collector) GlobalEpoch() uint64 {
	return atomic.LoadUint64(&c.globalEpoch)
}

// Stats returns a snapshot of the collector's counters.
func (c *Collector) Stats() Stats {
	active := 0
	c.participants.Range(func(_, _ any) bool {
		active++
		return true
	})
	c.bagsMu.Lock()
	pending := len(c.bags[0]) + len(c.bags[1]) + len(c.bags[2])
	c.bagsMu.Unlock()

	return Stats{
		Pins:               atomic.LoadUint64(&c.statPins),
		Advances:            atomic.LoadUint64(&c.statAdvances),
		Reclaimed:          atomic.LoadUint64(&c.statReclaimed),
		ActiveParticipants: active,
		PendingCount:       pending,
	}
}

// TryAdvance attempts to move the global epoch forward by one. It
// succeeds only if every currently pinned participant has observed an
// epoch at least as new as the current global epoch; a participant
// pinned at an older epoch (a long-running reader that has not yet
// repinned) blocks the advance. On success, the bag that is now two
// generations behind the new epoch is drained and its closures run.
// TryAdvance returns the resulting global epoch, whether or not it
// moved.
func (c *Collector) TryAdvance() uint64 {
	cur := atomic.LoadUint64(&c.globalEpoch)

	safe := true
	c.participants.Range(func(_, v any) bool {
		p := v.(*Participant)
		e := atomic.LoadUint64(&p.epoch)
		if e != 0 && e < cur {
			safe = false
			return false
		}
		return true
	})
	if !safe {
		return cur
	}

	if !atomic.CompareAndSwapUint64(&c.globalEpoch, cur, cur+1) {
		return atomic.LoadUint64(&c.globalEpoch)
	}
	atomic.AddUint64(&c.statAdvances, 1)
	c.collect(cur + 1)
	return cur + 1
}

func (c *Collector) collect(newEpoch uint64) {
	idx := int((newEpoch + 1) % bagGenerations)

	c.bagsMu.Lock()
	work := c.bags[idx]
	c.bags[idx] = nil
	c.bagsMu.Unlock()

	for _, f := range work {
		f()
	}
	atomic.AddUint64(&c.statReclaimed, uint64(len(work)))
}

func (c *Collector) deferClosure(f func()) {
	idx := int(atomic.LoadUint64(&c.globalEpoch) % bagGenerations)

	c.bagsMu.Lock()
	c.bags[idx] = append(c.bags[idx], f)
	full := len(c.bags[idx]) >= c.config.BagCapacity
	c.bagsMu.Unlock()

	if full {
		c.TryAdvance()
	}
}

// FlushUnpinned attempts up to bagGenerations+1 advances (one more than
// a full cycle of generations), draining every bag the current
// participant set allows, and stops early the moment an advance makes no
// progress (some participant is still pinned behind the current epoch).
// It is meant for shutdown paths and tests, not steady-state operation:
// like TryAdvance it never blocks, and it is bounded rather than looping
// for as long as advances keep succeeding.
func (c *Collector) FlushUnpinned() {
	for i := 0; i < bagGenerations+1; i++ {
		before := atomic.LoadUint64(&c.globalEpoch)
		after := c.TryAdvance()
		if after == before {
			return
		}
	}
}
