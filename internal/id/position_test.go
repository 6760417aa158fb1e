package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionTotalOrderByCounter(t *testing.T) {
	r1, r2, r3 := NewReplicaID(), NewReplicaID(), NewReplicaID()
	p1 := PositionID{Counter: 1, Replica: r1}
	p2 := PositionID{Counter: 2, Replica: r2}
	p3 := PositionID{Counter: 2, Replica: r3}

	assert.True(t, p1.Less(p2))
	assert.True(t, p1.Less(p3))
	// equal counters break by disambiguator then replica id, never by
	// arrival order.
	if r2.Compare(r3) < 0 {
		assert.True(t, p2.Less(p3))
	} else {
		assert.True(t, p3.Less(p2))
	}
}

func TestPositionEqualCounterBreaksByDisambiguatorThenReplica(t *testing.T) {
	r1, r2 := NewReplicaID(), NewReplicaID()
	a := PositionID{Counter: 5, Disambiguator: 0, Replica: r1}
	b := PositionID{Counter: 5, Disambiguator: 1, Replica: r2}
	assert.True(t, a.Less(b))

	c := PositionID{Counter: 5, Disambiguator: 0, Replica: r1}
	d := PositionID{Counter: 5, Disambiguator: 0, Replica: r2}
	if r1.Compare(r2) < 0 {
		assert.True(t, c.Less(d))
	} else {
		assert.True(t, d.Less(c))
	}
}

func TestRootPositionIsSentinelBeforeEverything(t *testing.T) {
	r := RootPosition()
	assert.True(t, r.IsRoot())
	p := (&Clock{replica: NewReplicaID()}).Next()
	assert.True(t, r.Less(p))
}

func TestClockNextIsMonotonicPerReplica(t *testing.T) {
	c := NewClock(NewReplicaID())
	var prev PositionID
	for i := 0; i < 100; i++ {
		p := c.Next()
		assert.True(t, prev.Less(p))
		prev = p
	}
}

func TestClockNextBatchSharesCounterAndOrdersByDisambiguator(t *testing.T) {
	c := NewClock(NewReplicaID())
	positions := c.NextBatch(4)
	require.Len(t, positions, 4)
	for i := 1; i < len(positions); i++ {
		assert.Equal(t, positions[0].Counter, positions[i].Counter)
		assert.True(t, positions[i-1].Less(positions[i]))
	}
}

func TestClockObserveAdvancesPastExternalCounter(t *testing.T) {
	c := NewClock(NewReplicaID())
	c.Observe(41)
	p := c.Next()
	assert.Equal(t, int64(42), p.Counter)

	// Observing a lower counter never rewinds the clock.
	c.Observe(1)
	p2 := c.Next()
	assert.Equal(t, int64(43), p2.Counter)
}

func TestReplicaIDRoundTripsThroughString(t *testing.T) {
	r := NewReplicaID()
	parsed, err := ParseReplicaID(r.String())
	require.NoError(t, err)
	assert.Equal(t, r, parsed)

	_, err = ParseReplicaID("not-hex")
	assert.Error(t, err)
}
