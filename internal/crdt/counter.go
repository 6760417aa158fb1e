package crdt

import (
	"encoding/json"
	"sync"

	"github.com/replimesh/replimesh/internal/id"
)

// GCounter is a grow-only counter: each replica owns a monotonically
// non-decreasing count, and the total is their sum. Merge takes the
// per-replica maximum.
type GCounter struct {
	mu      sync.RWMutex
	replica id.ReplicaID
	counts  map[id.ReplicaID]uint64
}

// NewGCounter constructs an empty counter owned by replica.
func NewGCounter(replica id.ReplicaID) *GCounter {
	return &GCounter{replica: replica, counts: make(map[id.ReplicaID]uint64)}
}

// Increment adds delta to the owning replica's own count.
func (c *GCounter) Increment(delta uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[c.replica] += delta
}

// Value returns the total count across all replicas.
func (c *GCounter) Value() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total uint64
	for _, v := range c.counts {
		total += v
	}
	return total
}

// PerReplica returns replica r's contribution to the total, for tests
// and diagnostics that need to see per-replica values survive a merge.
func (c *GCounter) PerReplica(r id.ReplicaID) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[r]
}

// Merge takes the per-replica maximum of the two counters.
func (c *GCounter) Merge(other *GCounter) error {
	other.mu.RLock()
	snapshot := make(map[id.ReplicaID]uint64, len(other.counts))
	for k, v := range other.counts {
		snapshot[k] = v
	}
	other.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snapshot {
		if existing, ok := c.counts[k]; !ok || v > existing {
			c.counts[k] = v
		}
	}
	return nil
}

// HasConflict is always false for a G-counter: merge is a pure maximum,
// never a tiebreak.
func (c *GCounter) HasConflict(other *GCounter) bool {
	return false
}

// MarshalState implements Snapshot.
func (c *GCounter) MarshalState() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c.counts)
}

// UnmarshalState implements Snapshot.
func (c *GCounter) UnmarshalState(data []byte) error {
	counts := make(map[id.ReplicaID]uint64)
	if err := json.Unmarshal(data, &counts); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = counts
	return nil
}
