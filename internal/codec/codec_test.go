package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replimesh/replimesh/internal/id"
)

func roundTrip(t *testing.T, message any) Envelope {
	t.Helper()
	env, err := NewEnvelope(CurrentProtocolVersion, message)
	require.NoError(t, err)

	data, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode(data, CurrentProtocolVersion)
	require.NoError(t, err)
	assert.Equal(t, env.Version, decoded.Version)
	assert.Equal(t, env.Tag, decoded.Tag)
	assert.Equal(t, env.ID, decoded.ID)
	return decoded
}

func TestDeltaRoundTrips(t *testing.T) {
	replica := id.NewReplicaID()
	decoded := roundTrip(t, Delta{
		CollectionID: "notes",
		CRDTType:     CRDTRegister,
		Payload:      []byte("payload"),
		Timestamp:    42,
		Replica:      replica,
	})
	d := decoded.Message.(Delta)
	assert.Equal(t, "notes", d.CollectionID)
	assert.Equal(t, CRDTRegister, d.CRDTType)
	assert.Equal(t, []byte("payload"), d.Payload)
	assert.Equal(t, replica, d.Replica)
}

func TestHeartbeatRoundTrips(t *testing.T) {
	replica := id.NewReplicaID()
	decoded := roundTrip(t, Heartbeat{Replica: replica, Timestamp: 7})
	h := decoded.Message.(Heartbeat)
	assert.Equal(t, replica, h.Replica)
	assert.Equal(t, int64(7), h.Timestamp)
}

func TestPeerJoinWithUserDescriptorRoundTrips(t *testing.T) {
	decoded := roundTrip(t, PeerJoin{Replica: id.NewReplicaID(), User: &UserDescriptor{Name: "alice"}})
	pj := decoded.Message.(PeerJoin)
	require.NotNil(t, pj.User)
	assert.Equal(t, "alice", pj.User.Name)
}

func TestPeerLeaveRoundTrips(t *testing.T) {
	replica := id.NewReplicaID()
	decoded := roundTrip(t, PeerLeave{Replica: replica})
	pl := decoded.Message.(PeerLeave)
	assert.Equal(t, replica, pl.Replica)
}

func TestWelcomeRoundTrips(t *testing.T) {
	decoded := roundTrip(t, Welcome{AssignedPeer: id.NewReplicaID(), Timestamp: 1, Server: &ServerDescriptor{Name: "mesh"}})
	w := decoded.Message.(Welcome)
	require.NotNil(t, w.Server)
	assert.Equal(t, "mesh", w.Server.Name)
}

func TestPresenceRoundTrips(t *testing.T) {
	decoded := roundTrip(t, Presence{Peer: id.NewReplicaID(), Action: PresenceJoin, Timestamp: 1})
	p := decoded.Message.(Presence)
	assert.Equal(t, PresenceJoin, p.Action)
}

func TestBinaryAckRoundTrips(t *testing.T) {
	decoded := roundTrip(t, BinaryAck{Peer: id.NewReplicaID(), Size: 1024, Timestamp: 1})
	b := decoded.Message.(BinaryAck)
	assert.Equal(t, int64(1024), b.Size)
}

func TestDecodeRejectsUnsupportedProtocolVersion(t *testing.T) {
	env, err := NewEnvelope(2, Heartbeat{Replica: id.NewReplicaID(), Timestamp: 1})
	require.NoError(t, err)
	data, err := Encode(env)
	require.NoError(t, err)

	_, err = Decode(data, 1)
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
}

func TestDecodeAcceptsLowerProtocolVersion(t *testing.T) {
	env, err := NewEnvelope(1, Heartbeat{Replica: id.NewReplicaID(), Timestamp: 1})
	require.NoError(t, err)
	data, err := Encode(env)
	require.NoError(t, err)

	_, err = Decode(data, 2)
	assert.NoError(t, err)
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	data := []byte(`{"version":1,"tag":"not_a_real_tag","message":{}}`)
	_, err := Decode(data, CurrentProtocolVersion)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestNewEnvelopeRejectsUnrecognizedMessageType(t *testing.T) {
	_, err := NewEnvelope(CurrentProtocolVersion, struct{ X int }{X: 1})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
