package crdt

import (
	"encoding/json"
	"sync"

	"github.com/replimesh/replimesh/internal/id"
)

// Register is a last-write-wins register. After any sequence of merges
// the stored triple is the lexicographic maximum on (Timestamp, Replica):
// later timestamp wins, ties broken by the larger replica id.
type Register struct {
	mu        sync.RWMutex
	replica   id.ReplicaID
	value     []byte
	timestamp int64
	writer    id.ReplicaID
}

// NewRegister constructs an empty register owned by replica.
func NewRegister(replica id.ReplicaID) *Register {
	return &Register{replica: replica}
}

// Set assigns value at the given wall-clock timestamp, attributed to the
// owning replica. Set goes through the same dominance check as Merge: a
// write at an earlier timestamp than the current value loses to it, and
// at an equal timestamp it wins only if the owning replica id is greater
// than or equal to the current writer's (so a local re-Set at the same
// timestamp replaces the local value).
func (r *Register) Set(value []byte, timestamp int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(value, timestamp, r.replica)
}

// Value returns the currently winning value and its timestamp.
func (r *Register) Value() (value []byte, timestamp int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]byte(nil), r.value...), r.timestamp
}

func (r *Register) applyLocked(value []byte, timestamp int64, writer id.ReplicaID) {
	if r.dominatesLocked(timestamp, writer) {
		r.value = append([]byte(nil), value...)
		r.timestamp = timestamp
		r.writer = writer
	}
}

// dominatesLocked reports whether (timestamp, writer) is >= the current
// (r.timestamp, r.writer) under the LWW order, i.e. whether it should
// become (or remain) the winner. Must be called with mu held.
func (r *Register) dominatesLocked(timestamp int64, writer id.ReplicaID) bool {
	if timestamp != r.timestamp {
		return timestamp > r.timestamp
	}
	return writer.Compare(r.writer) >= 0
}

// Merge folds other's state into r under the LWW rule. Idempotent,
// commutative and associative: the winner is a pure function of
// (timestamp, replica), never of application order.
func (r *Register) Merge(other *Register) error {
	other.mu.RLock()
	value, timestamp, writer := append([]byte(nil), other.value...), other.timestamp, other.writer
	other.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(value, timestamp, writer)
	return nil
}

// HasConflict reports whether merging other would require the
// replica-id tiebreak rather than a clear timestamp dominance.
func (r *Register) HasConflict(other *Register) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	return r.timestamp == other.timestamp && r.writer != other.writer
}

type registerWire struct {
	Value     []byte       `json:"value"`
	Timestamp int64        `json:"timestamp"`
	Writer    id.ReplicaID `json:"writer"`
}

// MarshalState implements Snapshot.
func (r *Register) MarshalState() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return json.Marshal(registerWire{Value: r.value, Timestamp: r.timestamp, Writer: r.writer})
}

// UnmarshalState implements Snapshot.
func (r *Register) UnmarshalState(data []byte) error {
	var w registerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value, r.timestamp, r.writer = w.Value, w.Timestamp, w.Writer
	return nil
}
