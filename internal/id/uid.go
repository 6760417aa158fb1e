package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// UID is a generic 128-bit identifier used for tree nodes and graph
// vertices — distinct from ReplicaID so a node/vertex id is never
// accidentally compared against a replica id, even though both share the
// same underlying shape.
type UID [16]byte

// NewUID generates a fresh random identifier.
func NewUID() UID {
	return UID(uuid.New())
}

// ParseUID parses a hex-encoded id, as produced by String.
func ParseUID(s string) (UID, error) {
	var u UID
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	if len(b) != len(u) {
		return u, errInvalidReplicaIDLength
	}
	copy(u[:], b)
	return u, nil
}

func (u UID) String() string { return hex.EncodeToString(u[:]) }

// Compare gives a total order over UIDs, used as a tiebreak.
func (u UID) Compare(other UID) int {
	for i := range u {
		if u[i] != other[i] {
			if u[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// IsZero reports whether u is the zero value.
func (u UID) IsZero() bool { return u == UID{} }

// MarshalText implements encoding.TextMarshaler.
func (u UID) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UID) UnmarshalText(text []byte) error {
	parsed, err := ParseUID(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
