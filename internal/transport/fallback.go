package transport

import "context"

// FallbackTransport composes an ordered list of transports into one. It
// never synchronizes the underlying transports' state with each other;
// it is strictly an OR of independent channels:
//
//   - Connect attempts every member in order, accumulating connect
//     errors; it succeeds as long as at least one member connects.
//   - Send tries members in order and returns on the first success.
//   - Receive drains every currently connected member and concatenates
//     the results.
//   - IsConnected is the disjunction of every member's liveness.
type FallbackTransport struct {
	members []Transport
}

// NewFallbackTransport builds a FallbackTransport trying members in order.
func NewFallbackTransport(members ...Transport) *FallbackTransport {
	return &FallbackTransport{members: members}
}

func (f *FallbackTransport) Connect(ctx context.Context) error {
	var lastErr error
	connected := false
	for _, m := range f.members {
		if err := m.Connect(ctx); err != nil {
			lastErr = err
			continue
		}
		connected = true
	}
	if !connected {
		if lastErr == nil {
			lastErr = ErrNotConnected
		}
		return lastErr
	}
	return nil
}

func (f *FallbackTransport) Disconnect() error {
	var lastErr error
	for _, m := range f.members {
		if !m.IsConnected() {
			continue
		}
		if err := m.Disconnect(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Send attempts the primary first, falling through to each subsequent
// member on error, and returns the last error if every member fails.
func (f *FallbackTransport) Send(data []byte) error {
	var lastErr error
	attempted := false
	for _, m := range f.members {
		if !m.IsConnected() {
			continue
		}
		attempted = true
		if err := m.Send(data); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if !attempted {
		return ErrNotConnected
	}
	return lastErr
}

// Receive drains every connected member and concatenates what each
// returns, in member order.
func (f *FallbackTransport) Receive() ([][]byte, error) {
	var out [][]byte
	var lastErr error
	attempted := false
	for _, m := range f.members {
		if !m.IsConnected() {
			continue
		}
		attempted = true
		msgs, err := m.Receive()
		if err != nil {
			lastErr = err
			continue
		}
		out = append(out, msgs...)
	}
	if !attempted {
		return nil, ErrNotConnected
	}
	if lastErr != nil && len(out) == 0 {
		return nil, lastErr
	}
	return out, nil
}

// IsConnected reports whether any member is currently connected.
func (f *FallbackTransport) IsConnected() bool {
	for _, m := range f.members {
		if m.IsConnected() {
			return true
		}
	}
	return false
}
