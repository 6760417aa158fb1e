package crdt

import (
	"encoding/json"
	"sync"

	"github.com/replimesh/replimesh/internal/id"
)

// Map is a last-write-wins map: each key owns an independent Register,
// so per-key conflicts resolve exactly per the Register invariant while
// different keys never interact.
type Map struct {
	mu      sync.RWMutex
	replica id.ReplicaID
	entries map[string]*Register
}

// NewMap constructs an empty LWW map owned by replica.
func NewMap(replica id.ReplicaID) *Map {
	return &Map{replica: replica, entries: make(map[string]*Register)}
}

// Set assigns key=value at timestamp, creating the per-key register on
// first write.
func (m *Map) Set(key string, value []byte, timestamp int64) {
	m.mu.Lock()
	reg, ok := m.entries[key]
	if !ok {
		reg = NewRegister(m.replica)
		m.entries[key] = reg
	}
	m.mu.Unlock()
	reg.Set(value, timestamp)
}

// Get returns the current value for key and whether it is present.
func (m *Map) Get(key string) (value []byte, ok bool) {
	m.mu.RLock()
	reg, present := m.entries[key]
	m.mu.RUnlock()
	if !present {
		return nil, false
	}
	v, _ := reg.Value()
	return v, true
}

// Keys returns the set of keys ever written, in unspecified order.
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	return out
}

// Merge folds other's entries into m, key by key, via Register.Merge.
func (m *Map) Merge(other *Map) error {
	other.mu.RLock()
	keys := make([]string, 0, len(other.entries))
	for k := range other.entries {
		keys = append(keys, k)
	}
	other.mu.RUnlock()

	for _, k := range keys {
		other.mu.RLock()
		otherReg := other.entries[k]
		other.mu.RUnlock()

		m.mu.Lock()
		reg, ok := m.entries[k]
		if !ok {
			reg = NewRegister(m.replica)
			m.entries[k] = reg
		}
		m.mu.Unlock()

		if err := reg.Merge(otherReg); err != nil {
			return err
		}
	}
	return nil
}

// HasConflict reports whether any shared key would be resolved by the
// register tiebreak rule.
func (m *Map) HasConflict(other *Map) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	for k, reg := range m.entries {
		if otherReg, ok := other.entries[k]; ok && reg.HasConflict(otherReg) {
			return true
		}
	}
	return false
}

type mapWire struct {
	Entries map[string]registerWire `json:"entries"`
}

// MarshalState implements Snapshot.
func (m *Map) MarshalState() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make(map[string]registerWire, len(m.entries))
	for k, reg := range m.entries {
		reg.mu.RLock()
		entries[k] = registerWire{Value: reg.value, Timestamp: reg.timestamp, Writer: reg.writer}
		reg.mu.RUnlock()
	}
	return json.Marshal(mapWire{Entries: entries})
}

// UnmarshalState implements Snapshot.
func (m *Map) UnmarshalState(data []byte) error {
	var w mapWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*Register, len(w.Entries))
	for k, rw := range w.Entries {
		m.entries[k] = &Register{replica: m.replica, value: rw.Value, timestamp: rw.Timestamp, writer: rw.Writer}
	}
	return nil
}
