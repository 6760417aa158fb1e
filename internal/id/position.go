package id

// PositionID globally and uniquely locates an element within a sequence,
// tree or graph. The total order is lexicographic on (Counter,
// Disambiguator, Replica) — the position components compare before the
// replica id so that insertions made later by any replica sort after
// earlier ones, per spec.
type PositionID struct {
	Counter       int64
	Disambiguator int64
	Replica       ReplicaID
}

// RootPosition is the zero PositionID, the "no predecessor" argument to
// insert-after operations. It compares before every position a Clock
// produces.
func RootPosition() PositionID {
	return PositionID{}
}

// IsRoot reports whether p is the root sentinel.
func (p PositionID) IsRoot() bool {
	return p == PositionID{}
}

// Compare returns -1, 0 or 1 as p orders before, equal to, or after other.
func (p PositionID) Compare(other PositionID) int {
	switch {
	case p.Counter != other.Counter:
		if p.Counter < other.Counter {
			return -1
		}
		return 1
	case p.Disambiguator != other.Disambiguator:
		if p.Disambiguator < other.Disambiguator {
			return -1
		}
		return 1
	default:
		return p.Replica.Compare(other.Replica)
	}
}

// Less reports whether p orders strictly before other.
func (p PositionID) Less(other PositionID) bool {
	return p.Compare(other) < 0
}

// Clock is a per-replica monotonically increasing logical counter that
// produces globally unique, totally ordered positions. It is injected
// explicitly at construction of each CRDT instance rather than shared
// as a process-wide singleton, so tests can run many replicas in one
// process without their counters colliding.
type Clock struct {
	replica ReplicaID
	counter int64
}

// NewClock returns a clock for the given replica, counter starting at zero.
func NewClock(replica ReplicaID) *Clock {
	return &Clock{replica: replica}
}

// Replica returns the clock's owning replica id.
func (c *Clock) Replica() ReplicaID {
	return c.replica
}

// Next increments the local counter and returns a fresh position.
func (c *Clock) Next() PositionID {
	c.counter++
	return PositionID{Counter: c.counter, Replica: c.replica}
}

// NextBatch returns n positions sharing one counter tick, disambiguated
// by an increasing sub-index — useful when a single local operation
// produces several elements (e.g. pasting a run of characters) that must
// still compare deterministically against any one of them individually.
func (c *Clock) NextBatch(n int) []PositionID {
	if n <= 0 {
		return nil
	}
	c.counter++
	out := make([]PositionID, n)
	for i := range out {
		out[i] = PositionID{Counter: c.counter, Disambiguator: int64(i), Replica: c.replica}
	}
	return out
}

// Observe folds an externally observed counter value into the clock so
// that subsequent local positions always sort after anything already
// seen from any replica — mirrors Lamport-clock advancement on receipt.
func (c *Clock) Observe(counter int64) {
	if counter > c.counter {
		c.counter = counter
	}
}
