package crdt

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/replimesh/replimesh/internal/id"
)

type graphVertex struct {
	ID        id.UID
	Value     []byte
	CreatedAt int64
	Live      bool
}

type graphEdgeKey struct {
	Src, Dst id.UID
}

type graphEdge struct {
	Src, Dst  id.UID
	Weight    *float64
	CreatedAt int64
	Live      bool
}

// Graph is an acyclic directed graph CRDT. Edge addition validates by
// DFS from dst searching for src; on merge, edges whose closure would
// introduce a cycle among live elements are admitted but marked
// non-live, rather than silently accepted and left to corrupt
// traversal order.
type Graph struct {
	mu       sync.Mutex
	vertices map[id.UID]*graphVertex
	edges    map[graphEdgeKey]*graphEdge
}

// NewGraph constructs an empty graph.
func NewGraph() *Graph {
	return &Graph{vertices: make(map[id.UID]*graphVertex), edges: make(map[graphEdgeKey]*graphEdge)}
}

// AddVertex adds a new vertex and returns its id.
func (g *Graph) AddVertex(value []byte, timestamp int64) id.UID {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := id.NewUID()
	g.vertices[v] = &graphVertex{ID: v, Value: value, CreatedAt: timestamp, Live: true}
	return v
}

// AddEdge adds src->dst. If dst can already reach src through live
// edges, adding this edge would close a cycle and it is rejected with
// ErrCycleDetected; the graph is left unchanged.
func (g *Graph) AddEdge(src, dst id.UID, weight *float64, timestamp int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.vertices[src]; !ok {
		return ErrNotFound
	}
	if _, ok := g.vertices[dst]; !ok {
		return ErrNotFound
	}
	if g.reachesLocked(dst, src) {
		return ErrCycleDetected
	}
	g.edges[graphEdgeKey{src, dst}] = &graphEdge{Src: src, Dst: dst, Weight: weight, CreatedAt: timestamp, Live: true}
	return nil
}

// RemoveEdge flips the edge's live flag.
func (g *Graph) RemoveEdge(src, dst id.UID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[graphEdgeKey{src, dst}]
	if !ok {
		return ErrNotFound
	}
	e.Live = false
	return nil
}

// DeleteVertex flips the vertex's live flag; it does not remove incident
// edges, which simply become unreachable in the live projection.
func (g *Graph) DeleteVertex(v id.UID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	vertex, ok := g.vertices[v]
	if !ok {
		return ErrNotFound
	}
	vertex.Live = false
	return nil
}

// reachesLocked reports whether a live path exists from src to dst via
// DFS over live edges. Must be called with mu held.
func (g *Graph) reachesLocked(src, dst id.UID) bool {
	if src == dst {
		return true
	}
	visited := map[id.UID]bool{}
	var dfs func(id.UID) bool
	dfs = func(cur id.UID) bool {
		if visited[cur] {
			return false
		}
		visited[cur] = true
		for key, e := range g.edges {
			if key.Src != cur || !e.Live {
				continue
			}
			if key.Dst == dst {
				return true
			}
			if dfs(key.Dst) {
				return true
			}
		}
		return false
	}
	return dfs(src)
}

// TopoSort returns the live vertices in a topological order: DFS
// post-order then reverse, ties broken by vertex id so the ordering is
// stable across replicas.
func (g *Graph) TopoSort() []id.UID {
	g.mu.Lock()
	defer g.mu.Unlock()

	adjacency := make(map[id.UID][]id.UID)
	for key, e := range g.edges {
		if !e.Live {
			continue
		}
		adjacency[key.Src] = append(adjacency[key.Src], key.Dst)
	}
	for _, kids := range adjacency {
		sortUIDs(kids)
	}

	ordered := make([]id.UID, 0, len(g.vertices))
	for v := range g.vertices {
		ordered = append(ordered, v)
	}
	sortUIDs(ordered)

	visited := make(map[id.UID]bool)
	var post []id.UID
	var dfs func(id.UID)
	dfs = func(v id.UID) {
		if visited[v] {
			return
		}
		visited[v] = true
		for _, next := range adjacency[v] {
			dfs(next)
		}
		post = append(post, v)
	}
	for _, v := range ordered {
		if vx, ok := g.vertices[v]; ok && vx.Live {
			dfs(v)
		}
	}

	out := make([]id.UID, 0, len(post))
	for i := len(post) - 1; i >= 0; i-- {
		if vx, ok := g.vertices[post[i]]; ok && vx.Live {
			out = append(out, post[i])
		}
	}
	return out
}

// Merge unions vertices and edges by id. Edges whose closure would
// introduce a cycle among the merged live elements are admitted into the
// edge set but marked non-live, preserving acyclicity of the live
// projection without discarding the peer's data.
func (g *Graph) Merge(other *Graph) error {
	other.mu.Lock()
	vertices := make([]*graphVertex, 0, len(other.vertices))
	for _, v := range other.vertices {
		cp := *v
		vertices = append(vertices, &cp)
	}
	edges := make([]*graphEdge, 0, len(other.edges))
	for _, e := range other.edges {
		cp := *e
		edges = append(edges, &cp)
	}
	other.mu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, v := range vertices {
		existing, ok := g.vertices[v.ID]
		if !ok {
			g.vertices[v.ID] = v
			continue
		}
		existing.Live = existing.Live && v.Live
	}

	for _, e := range edges {
		key := graphEdgeKey{e.Src, e.Dst}
		existing, ok := g.edges[key]
		if !ok {
			g.edges[key] = e
			continue
		}
		existing.Live = existing.Live && e.Live
	}

	// Candidates are checked newest-first so that, within a cycle formed
	// purely by merging concurrent additions, the most recently created
	// edge is the one invalidated rather than whichever the host
	// language's map iteration happens to visit first.
	cutCandidates := make([]*graphEdge, 0, len(g.edges))
	for _, e := range g.edges {
		if e.Live {
			cutCandidates = append(cutCandidates, e)
		}
	}
	sort.Slice(cutCandidates, func(i, j int) bool {
		a, b := cutCandidates[i], cutCandidates[j]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		if a.Src != b.Src {
			return a.Src.String() < b.Src.String()
		}
		return a.Dst.String() < b.Dst.String()
	})
	for _, e := range cutCandidates {
		if !e.Live {
			continue
		}
		if g.reachesLocked(e.Dst, e.Src) {
			e.Live = false
		}
	}
	return nil
}

// HasConflict reports whether the two graphs disagree on the liveness
// of any shared vertex or edge — the only place a DAG merge has to pick
// a side rather than simply union.
func (g *Graph) HasConflict(other *Graph) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()
	for id_, v := range g.vertices {
		if ov, ok := other.vertices[id_]; ok && v.Live != ov.Live {
			return true
		}
	}
	for key, e := range g.edges {
		if oe, ok := other.edges[key]; ok && e.Live != oe.Live {
			return true
		}
	}
	return false
}

type graphWire struct {
	Vertices []graphVertex `json:"vertices"`
	Edges    []graphEdge   `json:"edges"`
}

// MarshalState implements Snapshot.
func (g *Graph) MarshalState() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	vertices := make([]graphVertex, 0, len(g.vertices))
	for _, v := range g.vertices {
		vertices = append(vertices, *v)
	}
	edges := make([]graphEdge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, *e)
	}
	return json.Marshal(graphWire{Vertices: vertices, Edges: edges})
}

// UnmarshalState implements Snapshot.
func (g *Graph) UnmarshalState(data []byte) error {
	var w graphWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vertices = make(map[id.UID]*graphVertex, len(w.Vertices))
	for i := range w.Vertices {
		v := w.Vertices[i]
		g.vertices[v.ID] = &v
	}
	g.edges = make(map[graphEdgeKey]*graphEdge, len(w.Edges))
	for i := range w.Edges {
		e := w.Edges[i]
		g.edges[graphEdgeKey{e.Src, e.Dst}] = &e
	}
	return nil
}
