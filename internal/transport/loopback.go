package transport

import (
	"context"
	"errors"
	"sync"
)

// ErrNotConnected is returned by Send/Receive when the transport has not
// been connected (or has been disconnected).
var ErrNotConnected = errors.New("transport: not connected")

// LoopbackTransport is an in-memory test double: messages Send to one end
// are drained by Receive on the paired end.
type LoopbackTransport struct {
	mu        sync.Mutex
	connected bool
	outbox    *[][]byte // shared with the paired end's inbox
	inbox     *[][]byte
}

// NewLoopbackPair returns two transports wired to each other: a's Send
// feeds b's Receive, and vice versa.
func NewLoopbackPair() (a, b *LoopbackTransport) {
	var toA, toB [][]byte
	a = &LoopbackTransport{outbox: &toB, inbox: &toA}
	b = &LoopbackTransport{outbox: &toA, inbox: &toB}
	return a, b
}

func (l *LoopbackTransport) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = true
	return nil
}

func (l *LoopbackTransport) Disconnect() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	return nil
}

func (l *LoopbackTransport) Send(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return ErrNotConnected
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	*l.outbox = append(*l.outbox, cp)
	return nil
}

func (l *LoopbackTransport) Receive() ([][]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return nil, ErrNotConnected
	}
	drained := *l.inbox
	*l.inbox = nil
	return drained, nil
}

func (l *LoopbackTransport) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}
