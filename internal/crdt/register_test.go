package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replimesh/replimesh/internal/id"
)

// TestTwoReplicaLWWRegisterConvergence checks that merging a later write
// from a second replica replaces the first replica's earlier value.
func TestTwoReplicaLWWRegisterConvergence(t *testing.T) {
	r1, r2 := id.NewReplicaID(), id.NewReplicaID()
	reg1 := NewRegister(r1)
	reg2 := NewRegister(r2)

	reg1.Set([]byte("a"), 1)
	reg2.Set([]byte("b"), 2)

	require.NoError(t, reg1.Merge(reg2))

	value, _ := reg1.Value()
	assert.Equal(t, "b", string(value))
}

func TestRegisterMergeIsIdempotent(t *testing.T) {
	r1 := id.NewReplicaID()
	reg := NewRegister(r1)
	reg.Set([]byte("x"), 10)

	clone := NewRegister(r1)
	require.NoError(t, clone.Merge(reg))
	require.NoError(t, clone.Merge(reg))

	v1, t1 := reg.Value()
	v2, t2 := clone.Value()
	assert.Equal(t, v1, v2)
	assert.Equal(t, t1, t2)
}

func TestRegisterMergeIsCommutative(t *testing.T) {
	r1, r2 := id.NewReplicaID(), id.NewReplicaID()
	a := NewRegister(r1)
	a.Set([]byte("a"), 5)
	b := NewRegister(r2)
	b.Set([]byte("b"), 5) // equal timestamp forces the replica-id tiebreak

	ab := NewRegister(r1)
	require.NoError(t, ab.Merge(a))
	require.NoError(t, ab.Merge(b))

	ba := NewRegister(r1)
	require.NoError(t, ba.Merge(b))
	require.NoError(t, ba.Merge(a))

	v1, _ := ab.Value()
	v2, _ := ba.Value()
	assert.Equal(t, v1, v2)
}

func TestRegisterMergeIsAssociative(t *testing.T) {
	r1, r2, r3 := id.NewReplicaID(), id.NewReplicaID(), id.NewReplicaID()
	a := NewRegister(r1)
	a.Set([]byte("a"), 1)
	b := NewRegister(r2)
	b.Set([]byte("b"), 2)
	c := NewRegister(r3)
	c.Set([]byte("c"), 3)

	left := NewRegister(r1)
	require.NoError(t, left.Merge(a))
	require.NoError(t, left.Merge(b))
	require.NoError(t, left.Merge(c))

	right := NewRegister(r1)
	require.NoError(t, right.Merge(a))
	bc := NewRegister(r2)
	require.NoError(t, bc.Merge(b))
	require.NoError(t, bc.Merge(c))
	require.NoError(t, right.Merge(bc))

	lv, _ := left.Value()
	rv, _ := right.Value()
	assert.Equal(t, lv, rv)
}

func TestRegisterEqualTimestampBreaksByReplicaID(t *testing.T) {
	r1, r2 := id.NewReplicaID(), id.NewReplicaID()
	var lo, hi id.ReplicaID
	if r1.Compare(r2) < 0 {
		lo, hi = r1, r2
	} else {
		lo, hi = r2, r1
	}

	loReg := NewRegister(lo)
	loReg.Set([]byte("lo"), 7)
	hiReg := NewRegister(hi)
	hiReg.Set([]byte("hi"), 7)

	merged := NewRegister(lo)
	require.NoError(t, merged.Merge(loReg))
	require.NoError(t, merged.Merge(hiReg))

	v, _ := merged.Value()
	assert.Equal(t, "hi", string(v), "higher replica id wins on timestamp ties")
	assert.True(t, merged.HasConflict(loReg) || loReg.HasConflict(merged))
}

func TestRegisterStateRoundTrips(t *testing.T) {
	r := id.NewReplicaID()
	reg := NewRegister(r)
	reg.Set([]byte("payload"), 99)

	data, err := reg.MarshalState()
	require.NoError(t, err)

	restored := NewRegister(r)
	require.NoError(t, restored.UnmarshalState(data))

	v1, t1 := reg.Value()
	v2, t2 := restored.Value()
	assert.Equal(t, v1, v2)
	assert.Equal(t, t1, t2)
}
