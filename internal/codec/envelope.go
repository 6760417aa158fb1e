package codec

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CurrentProtocolVersion is the wire version asserted on outbound
// envelopes by default.
const CurrentProtocolVersion uint32 = 1

// Envelope is the self-describing wire unit: a protocol version, a
// tagged-union message, and an optional message id. JSON is used as
// the self-describing textual format.
type Envelope struct {
	Version uint32
	Tag     Tag
	Message any
	ID      string
}

// NewEnvelope builds an envelope for message, tagging it by its concrete
// type, and stamps a fresh message id via uuid.
func NewEnvelope(version uint32, message any) (Envelope, error) {
	tag, err := tagFor(message)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Version: version, Tag: tag, Message: message, ID: uuid.NewString()}, nil
}

func tagFor(message any) (Tag, error) {
	switch message.(type) {
	case Delta, *Delta:
		return TagDelta, nil
	case Heartbeat, *Heartbeat:
		return TagHeartbeat, nil
	case PeerJoin, *PeerJoin:
		return TagPeerJoin, nil
	case PeerLeave, *PeerLeave:
		return TagPeerLeave, nil
	case Welcome, *Welcome:
		return TagWelcome, nil
	case Presence, *Presence:
		return TagPresence, nil
	case BinaryAck, *BinaryAck:
		return TagBinaryAck, nil
	default:
		return "", fmt.Errorf("%w: unrecognized message type %T", ErrSerializationFailed, message)
	}
}

type wireEnvelope struct {
	Version uint32          `json:"version"`
	Tag     Tag             `json:"tag"`
	Message json.RawMessage `json:"message"`
	ID      string          `json:"id,omitempty"`
}

// Encode serializes e to its wire form.
func Encode(e Envelope) ([]byte, error) {
	payload, err := json.Marshal(e.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	data, err := json.Marshal(wireEnvelope{Version: e.Version, Tag: e.Tag, Message: payload, ID: e.ID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// Decode parses the wire form back into an Envelope. A protocol version
// higher than maxSupported yields ErrUnsupportedProtocol without
// attempting to decode the message; a version lower than maxSupported is
// accepted (no version shims are currently defined, so the message is
// decoded as-is). An unrecognized tag is a distinct error from a
// malformed payload.
func Decode(data []byte, maxSupported uint32) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	if w.Version > maxSupported {
		return Envelope{}, fmt.Errorf("%w: envelope version %d exceeds supported %d", ErrUnsupportedProtocol, w.Version, maxSupported)
	}

	message, err := decodeMessage(w.Tag, w.Message)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Version: w.Version, Tag: w.Tag, Message: message, ID: w.ID}, nil
}

func decodeMessage(tag Tag, raw json.RawMessage) (any, error) {
	switch tag {
	case TagDelta:
		var m Delta
		return decodeInto(&m, raw)
	case TagHeartbeat:
		var m Heartbeat
		return decodeInto(&m, raw)
	case TagPeerJoin:
		var m PeerJoin
		return decodeInto(&m, raw)
	case TagPeerLeave:
		var m PeerLeave
		return decodeInto(&m, raw)
	case TagWelcome:
		var m Welcome
		return decodeInto(&m, raw)
	case TagPresence:
		var m Presence
		return decodeInto(&m, raw)
	case TagBinaryAck:
		var m BinaryAck
		return decodeInto(&m, raw)
	default:
		return nil, fmt.Errorf("%w: unknown message tag %q", ErrUnknownTag, tag)
	}
}

func decodeInto[T any](dst *T, raw json.RawMessage) (T, error) {
	if err := json.Unmarshal(raw, dst); err != nil {
		return *dst, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return *dst, nil
}
