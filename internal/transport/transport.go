// Package transport implements a pluggable transport contract — a
// five-method Connect/Disconnect/Send/Receive/IsConnected interface — plus a
// fallback composition that tries several transports in order.
package transport

import "context"

// Transport is a pluggable point-to-point channel. Send is best-effort —
// success means "queued", not "received". Receive drains zero or more
// messages available since the last call and must not block.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Send(data []byte) error
	Receive() ([][]byte, error)
	IsConnected() bool
}
