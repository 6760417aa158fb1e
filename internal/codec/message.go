// Package codec implements the wire protocol: a self-describing
// envelope carrying the tagged union of sync messages, as a closed set
// of variants rather than one flat message struct.
package codec

import "github.com/replimesh/replimesh/internal/id"

// Tag identifies which variant an Envelope carries.
type Tag string

const (
	TagDelta     Tag = "delta"
	TagHeartbeat Tag = "heartbeat"
	TagPeerJoin  Tag = "peer_join"
	TagPeerLeave Tag = "peer_leave"
	TagWelcome   Tag = "welcome"
	TagPresence  Tag = "presence"
	TagBinaryAck Tag = "binary_ack"
)

// CRDTType tags which concrete CRDT a Delta's bytes belong to.
type CRDTType string

const (
	CRDTRegister CRDTType = "register"
	CRDTMap      CRDTType = "map"
	CRDTCounter  CRDTType = "counter"
	CRDTSequence CRDTType = "sequence"
	CRDTLSeq     CRDTType = "lseq"
	CRDTTree     CRDTType = "tree"
	CRDTGraph    CRDTType = "graph"
)

// PresenceAction enumerates the Presence variant's action field.
type PresenceAction string

const (
	PresenceJoin   PresenceAction = "join"
	PresenceLeave  PresenceAction = "leave"
	PresenceUpdate PresenceAction = "update"
)

// Delta carries a serialized piece of CRDT state sufficient to converge
// a peer for one collection.
type Delta struct {
	CollectionID string       `json:"collectionId"`
	CRDTType     CRDTType     `json:"crdtType"`
	Payload      []byte       `json:"payload"`
	Timestamp    int64        `json:"timestamp"`
	Replica      id.ReplicaID `json:"replica"`
}

// Heartbeat announces that Replica is alive as of Timestamp.
type Heartbeat struct {
	Replica   id.ReplicaID `json:"replica"`
	Timestamp int64        `json:"timestamp"`
}

// UserDescriptor optionally accompanies a PeerJoin; Token carries a
// peer-join JWT when peer authentication is configured.
type UserDescriptor struct {
	Name  string `json:"name,omitempty"`
	Token string `json:"token,omitempty"`
}

// PeerJoin announces a new peer, optionally carrying a user descriptor.
type PeerJoin struct {
	Replica id.ReplicaID    `json:"replica"`
	User    *UserDescriptor `json:"user,omitempty"`
}

// PeerLeave announces a peer's departure.
type PeerLeave struct {
	Replica id.ReplicaID `json:"replica"`
}

// ServerDescriptor optionally accompanies a Welcome.
type ServerDescriptor struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Welcome is sent in response to a join, assigning a peer id.
type Welcome struct {
	AssignedPeer id.ReplicaID      `json:"assignedPeer"`
	Timestamp    int64             `json:"timestamp"`
	Server       *ServerDescriptor `json:"server,omitempty"`
}

// Presence reports a peer's join/leave/update transition.
type Presence struct {
	Peer      id.ReplicaID   `json:"peer"`
	Action    PresenceAction `json:"action"`
	Timestamp int64          `json:"timestamp"`
}

// BinaryAck acknowledges receipt of a binary payload of the given size.
type BinaryAck struct {
	Peer      id.ReplicaID `json:"peer"`
	Size      int64        `json:"size"`
	Timestamp int64        `json:"timestamp"`
}
