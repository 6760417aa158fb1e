// Package peer implements the sync engine's peer registry: tracking
// known peers, their last-seen time, and sync status in a single
// per-replica map maintained by the sync engine across all collections.
package peer

import (
	"sync"
	"time"

	"github.com/replimesh/replimesh/internal/id"
)

// SyncStatus reports the last known outcome of syncing with a peer.
type SyncStatus int

const (
	StatusNever SyncStatus = iota
	StatusInProgress
	StatusSynced
	StatusFailed
)

func (s SyncStatus) String() string {
	switch s {
	case StatusNever:
		return "never"
	case StatusInProgress:
		return "in_progress"
	case StatusSynced:
		return "synced"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record is the registry's view of a single peer.
type Record struct {
	LastSeen     time.Time
	SyncStatus   SyncStatus
	LastSyncTime time.Time
	Stale        bool
}

// Registry tracks peers by replica id. The zero value is not usable; use
// NewRegistry. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	records map[id.ReplicaID]*Record
}

// NewRegistry builds an empty peer registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[id.ReplicaID]*Record)}
}

// Touch records receipt of a message from replica at now, inserting a new
// record on first contact.
func (r *Registry) Touch(replica id.ReplicaID, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[replica]
	if !ok {
		rec = &Record{SyncStatus: StatusNever}
		r.records[replica] = rec
	}
	rec.LastSeen = now
	rec.Stale = false
}

// SetSyncStatus updates the sync status for a known peer, inserting a
// record if the peer has not yet been seen. A transition to StatusSynced
// also stamps LastSyncTime with now.
func (r *Registry) SetSyncStatus(replica id.ReplicaID, status SyncStatus, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[replica]
	if !ok {
		rec = &Record{}
		r.records[replica] = rec
	}
	rec.SyncStatus = status
	if status == StatusSynced {
		rec.LastSyncTime = now
	}
}

// MarkOffline records that a peer announced it is leaving, without
// removing it from the registry.
func (r *Registry) MarkOffline(replica id.ReplicaID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[replica]; ok {
		rec.Stale = true
	}
}

// Get returns a copy of a peer's record and whether it is known.
func (r *Registry) Get(replica id.ReplicaID) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[replica]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Peers returns the replica ids of every peer currently known.
func (r *Registry) Peers() []id.ReplicaID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]id.ReplicaID, 0, len(r.records))
	for p := range r.records {
		out = append(out, p)
	}
	return out
}

// Active returns the number of peers not currently marked stale.
func (r *Registry) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, rec := range r.records {
		if !rec.Stale {
			n++
		}
	}
	return n
}

// EvictStale marks every peer whose LastSeen is older than now-staleAfter
// as stale and returns their replica ids. A peer never seen (zero
// LastSeen, e.g. inserted only via SetSyncStatus) is not evicted by this
// pass; it only becomes eligible once Touch has recorded contact.
func (r *Registry) EvictStale(now time.Time, staleAfter time.Duration) []id.ReplicaID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []id.ReplicaID
	for replica, rec := range r.records {
		if rec.LastSeen.IsZero() || rec.Stale {
			continue
		}
		if now.Sub(rec.LastSeen) >= staleAfter {
			rec.Stale = true
			rec.SyncStatus = StatusFailed
			evicted = append(evicted, replica)
		}
	}
	return evicted
}

// Remove deletes a peer from the registry entirely.
func (r *Registry) Remove(replica id.ReplicaID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, replica)
}
