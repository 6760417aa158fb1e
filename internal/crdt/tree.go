package crdt

import (
	"encoding/json"
	"sync"

	"github.com/replimesh/replimesh/internal/id"
)

// OrphanEvent is surfaced to the caller whenever a merge would otherwise
// create a cycle through live parents: the offending node is reparented
// to the root instead.
type OrphanEvent struct {
	Node id.UID
}

// treeNode is one node of the arena: parent/child links are ids, never
// direct pointers, so nodes can be serialized and merged without
// rewriting pointers.
type treeNode struct {
	ID         id.UID
	Value      []byte
	Parent     id.UID
	Live       bool
	ModifiedAt int64
	Writer     id.ReplicaID
}

// Tree is a movable tree CRDT. Nodes are held in a flat arena; moves
// only ever rewrite a node's Parent field. Deletion flips Live to false;
// the visible projection skips a node and (transitively) its descendants.
type Tree struct {
	mu      sync.Mutex
	replica id.ReplicaID
	root    id.UID
	hasRoot bool
	nodes   map[id.UID]*treeNode
}

// NewTree constructs an empty tree owned by replica.
func NewTree(replica id.ReplicaID) *Tree {
	return &Tree{replica: replica, nodes: make(map[id.UID]*treeNode)}
}

// AddRoot is legal only on an empty tree.
func (t *Tree) AddRoot(value []byte, timestamp int64) (id.UID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hasRoot {
		return id.UID{}, errTreeAlreadyHasRoot
	}
	n := id.NewUID()
	t.nodes[n] = &treeNode{ID: n, Value: value, Live: true, ModifiedAt: timestamp, Writer: t.replica}
	t.root = n
	t.hasRoot = true
	return n, nil
}

// AddChild adds a new node as a child of parent.
func (t *Tree) AddChild(parent id.UID, value []byte, timestamp int64) (id.UID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[parent]; !ok {
		return id.UID{}, ErrNotFound
	}
	n := id.NewUID()
	t.nodes[n] = &treeNode{ID: n, Value: value, Parent: parent, Live: true, ModifiedAt: timestamp, Writer: t.replica}
	return n, nil
}

// Move updates node's parent pointer.
func (t *Tree) Move(node, newParent id.UID, timestamp int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[node]
	if !ok {
		return ErrNotFound
	}
	if _, ok := t.nodes[newParent]; !ok {
		return ErrNotFound
	}
	n.Parent = newParent
	n.ModifiedAt = timestamp
	n.Writer = t.replica
	return nil
}

// Delete flips live to false; the visible projection skips node and its
// descendants, but the record is retained as a tombstone.
func (t *Tree) Delete(node id.UID, timestamp int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[node]
	if !ok {
		return ErrNotFound
	}
	n.Live = false
	n.ModifiedAt = timestamp
	n.Writer = t.replica
	return nil
}

// Projection walks root -> children -> ... skipping non-live nodes and
// any node whose nearest live ancestor chain is broken, returning ids in
// a stable, deterministic order (breadth-first, ties broken by id).
func (t *Tree) Projection() []id.UID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasRoot {
		return nil
	}

	childrenOf := make(map[id.UID][]id.UID)
	for _, n := range t.nodes {
		if n.ID == t.root {
			continue
		}
		childrenOf[n.Parent] = append(childrenOf[n.Parent], n.ID)
	}
	for _, kids := range childrenOf {
		sortUIDs(kids)
	}

	var out []id.UID
	queue := []id.UID{t.root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n, ok := t.nodes[cur]
		if !ok || !n.Live {
			continue
		}
		out = append(out, cur)
		queue = append(queue, childrenOf[cur]...)
	}
	return out
}

func sortUIDs(ids []id.UID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1].Compare(ids[j]) > 0; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// needsOrphanLocked reports whether node's current parent chain fails to
// reach the live root — either because it cycles back through node
// itself, or because it passes through a tombstoned node, which is what
// a move under a concurrent parent delete produces. Must be called with
// mu held.
func (t *Tree) needsOrphanLocked(node id.UID) bool {
	n0, ok := t.nodes[node]
	if !ok {
		return false
	}
	cur := n0.Parent
	seen := map[id.UID]bool{node: true}
	for {
		if cur == t.root {
			return false
		}
		n, ok := t.nodes[cur]
		if !ok || !n.Live || seen[cur] {
			return true
		}
		seen[cur] = true
		cur = n.Parent
	}
}

// Merge unions nodes by id; per node the record with the greater
// ModifiedAt wins, ties broken by replica id. If the winning record
// would create a cycle through live parents, the node is orphaned (live,
// reparented to root) and an OrphanEvent is returned for the caller.
func (t *Tree) Merge(other *Tree) ([]OrphanEvent, error) {
	other.mu.Lock()
	snapshot := make([]*treeNode, 0, len(other.nodes))
	for _, n := range other.nodes {
		cp := *n
		snapshot = append(snapshot, &cp)
	}
	otherRoot, otherHasRoot := other.root, other.hasRoot
	other.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasRoot && otherHasRoot {
		t.root, t.hasRoot = otherRoot, true
	}

	var events []OrphanEvent
	for _, incoming := range snapshot {
		existing, ok := t.nodes[incoming.ID]
		if !ok {
			t.nodes[incoming.ID] = incoming
			continue
		}
		if dominates(incoming.ModifiedAt, incoming.Writer, existing.ModifiedAt, existing.Writer) {
			merged := *incoming
			t.nodes[incoming.ID] = &merged
		}
	}

	if !t.hasRoot {
		return events, nil
	}
	for _, n := range t.nodes {
		if n.ID == t.root || !n.Live {
			continue
		}
		if t.needsOrphanLocked(n.ID) {
			n.Parent = t.root
			events = append(events, OrphanEvent{Node: n.ID})
		}
	}
	return events, nil
}

func dominates(ts int64, writer id.ReplicaID, otherTs int64, otherWriter id.ReplicaID) bool {
	if ts != otherTs {
		return ts > otherTs
	}
	return writer.Compare(otherWriter) >= 0
}

// HasConflict reports whether any shared node has equal ModifiedAt but a
// different writer — the case resolved only by the replica-id tiebreak.
func (t *Tree) HasConflict(other *Tree) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()
	for id_, n := range t.nodes {
		if on, ok := other.nodes[id_]; ok && n.ModifiedAt == on.ModifiedAt && n.Writer != on.Writer {
			return true
		}
	}
	return false
}

type treeWire struct {
	Root    id.UID     `json:"root"`
	HasRoot bool       `json:"hasRoot"`
	Nodes   []treeNode `json:"nodes"`
}

// MarshalState implements Snapshot.
func (t *Tree) MarshalState() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	nodes := make([]treeNode, 0, len(t.nodes))
	for _, n := range t.nodes {
		nodes = append(nodes, *n)
	}
	return json.Marshal(treeWire{Root: t.root, HasRoot: t.hasRoot, Nodes: nodes})
}

// UnmarshalState implements Snapshot.
func (t *Tree) UnmarshalState(data []byte) error {
	var w treeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root, t.hasRoot = w.Root, w.HasRoot
	t.nodes = make(map[id.UID]*treeNode, len(w.Nodes))
	for i := range w.Nodes {
		n := w.Nodes[i]
		t.nodes[n.ID] = &n
	}
	return nil
}
