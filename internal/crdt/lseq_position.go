package crdt

import (
	"encoding/binary"
	"math/rand"

	"github.com/replimesh/replimesh/internal/id"
)

// lseqPosition is a dense path identifier: a sequence of digits ordered
// lexicographically (missing trailing digits compare as the minimum
// digit, 0), with the owning replica id as the final tiebreak. Unlike
// the RGA's fixed-width PositionID, new identifiers can always be
// allocated strictly between any two existing ones by growing the path
// one level deeper whenever no integer gap remains at the current
// depth.
type lseqPosition struct {
	Digits  []uint32
	Replica id.ReplicaID
}

func digitAt(path []uint32, depth int, fallback uint32) uint32 {
	if depth < len(path) {
		return path[depth]
	}
	return fallback
}

// compareLSeq orders two positions: digit-by-digit (shorter paths read
// as zero-padded), then by replica id. The order is a pure function of
// the identifiers themselves, so it is stable across every replica that
// has observed both, independent of allocation order.
func compareLSeq(a, b lseqPosition) int {
	max := len(a.Digits)
	if len(b.Digits) > max {
		max = len(b.Digits)
	}
	for i := 0; i < max; i++ {
		da, db := digitAt(a.Digits, i, 0), digitAt(b.Digits, i, 0)
		if da != db {
			if da < db {
				return -1
			}
			return 1
		}
	}
	return a.Replica.Compare(b.Replica)
}

func lessLSeq(a, b lseqPosition) bool { return compareLSeq(a, b) < 0 }

// key returns a canonical, comparable encoding of the position, since a
// slice-bearing struct cannot itself be a Go map key.
func (p lseqPosition) key() string {
	buf := make([]byte, 0, 4*len(p.Digits)+len(p.Replica))
	var tmp [4]byte
	for _, d := range p.Digits {
		binary.BigEndian.PutUint32(tmp[:], d)
		buf = append(buf, tmp[:]...)
	}
	buf = append(buf, p.Replica[:]...)
	return string(buf)
}

const maxLSeqDigit = ^uint32(0)

// allocateBetween returns a path strictly between low and high (low may
// be nil, meaning "before everything"; high may be nil, meaning "after
// everything"), growing depth whenever the integer gap at the current
// level is exhausted.
func allocateBetween(low, high []uint32) []uint32 {
	var prefix []uint32
	for depth := 0; depth < 64; depth++ {
		lo := digitAt(low, depth, 0)
		hi := digitAt(high, depth, maxLSeqDigit)
		if hi > lo+1 {
			gap := hi - lo - 1
			mid := lo + 1
			if gap > 0 {
				mid += uint32(rand.Int63n(int64(gap)))
			}
			return append(append([]uint32{}, prefix...), mid)
		}
		// No integer room at this depth: descend sharing the low digit
		// as a common prefix and keep narrowing.
		prefix = append(prefix, lo)
	}
	// Pathological: 64 levels of contention at the identical prefix.
	// Extend one more level; uniqueness still holds via the replica
	// tiebreak even if two replicas pick the same digit here.
	return append(prefix, 0)
}
