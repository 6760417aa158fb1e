package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDAGCycleRejection checks that a local AddEdge closing a cycle is
// rejected outright, and that acyclicity otherwise yields a stable
// topological order.
func TestDAGCycleRejection(t *testing.T) {
	g := NewGraph()
	a := g.AddVertex([]byte("A"), 1)
	b := g.AddVertex([]byte("B"), 1)
	c := g.AddVertex([]byte("C"), 1)

	require.NoError(t, g.AddEdge(a, b, nil, 2))
	require.NoError(t, g.AddEdge(b, c, nil, 2))

	err := g.AddEdge(c, a, nil, 3)
	assert.ErrorIs(t, err, ErrCycleDetected)

	order := g.TopoSort()
	require.Len(t, order, 3)
	assert.Equal(t, a, order[0])
	assert.Equal(t, b, order[1])
	assert.Equal(t, c, order[2])
}

func TestGraphMergeMarksClosingEdgeNonLiveInsteadOfRejecting(t *testing.T) {
	g1 := NewGraph()
	a := g1.AddVertex([]byte("A"), 1)
	b := g1.AddVertex([]byte("B"), 1)
	c := g1.AddVertex([]byte("C"), 1)
	require.NoError(t, g1.AddEdge(a, b, nil, 2))
	require.NoError(t, g1.AddEdge(b, c, nil, 2))

	g2 := NewGraph()
	require.NoError(t, g2.Merge(g1))
	// g2 independently proposes the closing edge c->a; locally this
	// would be rejected, but we inject it directly to model "accepted
	// elsewhere then merged in".
	g2.edges[graphEdgeKey{c, a}] = &graphEdge{Src: c, Dst: a, CreatedAt: 3, Live: true}

	require.NoError(t, g1.Merge(g2))

	e, ok := g1.edges[graphEdgeKey{c, a}]
	require.True(t, ok, "the edge is admitted into the state")
	assert.False(t, e.Live, "but marked non-live to preserve acyclicity")
}

func TestGraphMergeIsIdempotentAndCommutative(t *testing.T) {
	g1 := NewGraph()
	a := g1.AddVertex([]byte("A"), 1)
	b := g1.AddVertex([]byte("B"), 1)
	require.NoError(t, g1.AddEdge(a, b, nil, 2))

	g2 := NewGraph()
	c := g2.AddVertex([]byte("C"), 1)
	_ = c

	ab := NewGraph()
	require.NoError(t, ab.Merge(g1))
	require.NoError(t, ab.Merge(g2))
	require.NoError(t, ab.Merge(g2)) // idempotent

	ba := NewGraph()
	require.NoError(t, ba.Merge(g2))
	require.NoError(t, ba.Merge(g1))

	assert.Equal(t, len(ab.vertices), len(ba.vertices))
	assert.Equal(t, len(ab.edges), len(ba.edges))
}

func TestGraphStateRoundTrips(t *testing.T) {
	g := NewGraph()
	a := g.AddVertex([]byte("A"), 1)
	b := g.AddVertex([]byte("B"), 1)
	require.NoError(t, g.AddEdge(a, b, nil, 2))

	data, err := g.MarshalState()
	require.NoError(t, err)

	restored := NewGraph()
	require.NoError(t, restored.UnmarshalState(data))
	assert.Len(t, restored.TopoSort(), 2)
}
