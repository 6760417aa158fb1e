package crdt

import "errors"

// Error kinds surfaced by the core. Callers should use errors.Is
// against these sentinels; wrapped errors carry more context via
// fmt.Errorf("...: %w", ...).
var (
	ErrNotFound          = errors.New("crdt: element not found")
	ErrSerializationFailed = errors.New("crdt: serialization round-trip failed")
	ErrMergeConflict     = errors.New("crdt: structural corruption during merge")
	ErrCycleDetected     = errors.New("crdt: operation would introduce a cycle")

	errTreeAlreadyHasRoot = errors.New("crdt: tree already has a root")
)
