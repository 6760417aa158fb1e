// Package id implements replica identity and the logical clock that
// produces totally-ordered positions (spec C1).
package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// ReplicaID is an opaque, totally ordered 128-bit replica identifier.
// It is stable for the lifetime of an installation and is suitable as a
// map key and a merge tiebreaker.
type ReplicaID [16]byte

// NewReplicaID generates a fresh random replica identifier.
func NewReplicaID() ReplicaID {
	return ReplicaID(uuid.New())
}

// ParseReplicaID parses a hex-encoded replica id, as produced by String.
func ParseReplicaID(s string) (ReplicaID, error) {
	var r ReplicaID
	b, err := hex.DecodeString(s)
	if err != nil {
		return r, err
	}
	if len(b) != len(r) {
		return r, errInvalidReplicaIDLength
	}
	copy(r[:], b)
	return r, nil
}

func (r ReplicaID) String() string {
	return hex.EncodeToString(r[:])
}

// MarshalText implements encoding.TextMarshaler so ReplicaID can be used
// as a JSON object key (e.g. the G-counter's per-replica map).
func (r ReplicaID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ReplicaID) UnmarshalText(text []byte) error {
	parsed, err := ParseReplicaID(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Compare returns -1, 0 or 1 as r is less than, equal to, or greater than
// other, giving a total order over replica ids.
func (r ReplicaID) Compare(other ReplicaID) int {
	for i := range r {
		if r[i] != other[i] {
			if r[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsZero reports whether r is the zero value.
func (r ReplicaID) IsZero() bool {
	return r == ReplicaID{}
}
