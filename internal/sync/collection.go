package sync

import (
	"crypto/sha256"
	"sync"

	"github.com/replimesh/replimesh/internal/codec"
)

// Collection binds one CRDT instance to the identity and dirty-tracking
// the engine needs to decide, each sync tick, whether it has something
// new to send. It is bound to one CRDT kind and is agnostic about
// which transport, if any, the engine is using to reach peers.
type Collection struct {
	mu          sync.Mutex
	ID          string
	Kind        codec.CRDTType
	State       State
	lastSentSum [sha256.Size]byte
	everSent    bool
	version     int64
}

// NewCollection wraps an existing State under id/kind.
func NewCollection(id string, kind codec.CRDTType, state State) *Collection {
	return &Collection{ID: id, Kind: kind, State: state}
}

// dirty reports whether the collection's serialized state has changed
// since the last successful send, and returns the serialized bytes so the
// caller never double-marshals. A marshal failure is reported as not
// dirty; the caller should treat that as a storage/serialization error
// worth logging, not a silent skip on live data.
func (c *Collection) dirty() (payload []byte, sum [sha256.Size]byte, isDirty bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, err = c.State.MarshalState()
	if err != nil {
		return nil, sum, false, err
	}
	sum = sha256.Sum256(payload)
	isDirty = !c.everSent || sum != c.lastSentSum
	return payload, sum, isDirty, nil
}

// markSent records sum as the last version successfully sent, so the
// next tick's dirty check dedupes against it: outbound deltas are
// deduplicated by (collection id, content hash), not resent verbatim.
func (c *Collection) markSent(sum [sha256.Size]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSentSum = sum
	c.everSent = true
	c.version++
}

// Version returns the number of times this collection has been sent or
// merged into, for the meta/<collection_id> storage record.
func (c *Collection) Version() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Collection) bumpVersion() {
	c.mu.Lock()
	c.version++
	c.mu.Unlock()
}
