// Package sync implements the synchronization engine: the tick
// scheduler, peer-registry integration, and inbound message dispatch
// that drive a registry of named collections, each bound to one CRDT
// kind, toward convergence with its peers.
package sync

import (
	"fmt"

	"github.com/replimesh/replimesh/internal/codec"
	"github.com/replimesh/replimesh/internal/crdt"
	"github.com/replimesh/replimesh/internal/id"
)

// State is the uniform surface the engine merges deltas through,
// satisfied by a thin per-kind wrapper around each concrete CRDT in
// internal/crdt: those types are a generic Mergeable[T] family with one
// irregular signature (Tree.Merge also returns orphan events), so this
// adapter narrows all seven to one non-generic byte-oriented contract.
type State interface {
	crdt.Snapshot
	// MergeFrom decodes payload as this CRDT's wire state and folds it
	// into the receiver.
	MergeFrom(payload []byte) error
}

// NewState constructs an empty State of kind, owned by replica.
func NewState(kind codec.CRDTType, replica id.ReplicaID) (State, error) {
	switch kind {
	case codec.CRDTRegister:
		return &registerState{crdt.NewRegister(replica)}, nil
	case codec.CRDTMap:
		return &mapState{crdt.NewMap(replica)}, nil
	case codec.CRDTCounter:
		return &counterState{crdt.NewGCounter(replica)}, nil
	case codec.CRDTSequence:
		return &sequenceState{crdt.NewSequence(id.NewClock(replica))}, nil
	case codec.CRDTLSeq:
		return &lseqState{crdt.NewLSeq(replica)}, nil
	case codec.CRDTTree:
		return &treeState{crdt.NewTree(replica)}, nil
	case codec.CRDTGraph:
		return &graphState{crdt.NewGraph()}, nil
	default:
		return nil, fmt.Errorf("sync: unknown crdt kind %q", kind)
	}
}

type registerState struct{ *crdt.Register }

func (s *registerState) MergeFrom(payload []byte) error {
	other := &crdt.Register{}
	if err := other.UnmarshalState(payload); err != nil {
		return err
	}
	return s.Merge(other)
}

type mapState struct{ *crdt.Map }

func (s *mapState) MergeFrom(payload []byte) error {
	other := crdt.NewMap(id.ReplicaID{})
	if err := other.UnmarshalState(payload); err != nil {
		return err
	}
	return s.Merge(other)
}

type counterState struct{ *crdt.GCounter }

func (s *counterState) MergeFrom(payload []byte) error {
	other := crdt.NewGCounter(id.ReplicaID{})
	if err := other.UnmarshalState(payload); err != nil {
		return err
	}
	return s.Merge(other)
}

type sequenceState struct{ *crdt.Sequence }

func (s *sequenceState) MergeFrom(payload []byte) error {
	other := crdt.NewSequence(id.NewClock(id.ReplicaID{}))
	if err := other.UnmarshalState(payload); err != nil {
		return err
	}
	return s.Merge(other)
}

type lseqState struct{ *crdt.LSeq }

func (s *lseqState) MergeFrom(payload []byte) error {
	other := crdt.NewLSeq(id.ReplicaID{})
	if err := other.UnmarshalState(payload); err != nil {
		return err
	}
	return s.Merge(other)
}

type treeState struct{ *crdt.Tree }

func (s *treeState) MergeFrom(payload []byte) error {
	other := crdt.NewTree(id.ReplicaID{})
	if err := other.UnmarshalState(payload); err != nil {
		return err
	}
	_, err := s.Merge(other)
	return err
}

type graphState struct{ *crdt.Graph }

func (s *graphState) MergeFrom(payload []byte) error {
	other := crdt.NewGraph()
	if err := other.UnmarshalState(payload); err != nil {
		return err
	}
	return s.Merge(other)
}
