package codec

import "errors"

var (
	ErrSerializationFailed = errors.New("codec: serialization round-trip failed")
	ErrUnsupportedProtocol = errors.New("codec: envelope protocol version is unsupported")
	ErrUnknownTag          = errors.New("codec: unrecognized message tag")
)
