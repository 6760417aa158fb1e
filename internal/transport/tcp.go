package transport

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"sync"
)

// handshakePrefix is the wire identity line exchanged on connect.
const handshakePrefix = "REPLIMESH:"

// TCPTransport is a line-delimited TCP transport: each Send writes one
// base64-framed line, and a background reader goroutine appends decoded
// lines to an inbound queue drained by Receive.
type TCPTransport struct {
	localID string

	mu       sync.Mutex
	conn     net.Conn
	listener net.Listener
	inbound  [][]byte
	connErr  error

	dialAddr string
	listenOn string
}

// NewTCPDialer builds a TCPTransport that connects outward to addr on
// Connect, performing the handshake as the dialing side.
func NewTCPDialer(localID, addr string) *TCPTransport {
	return &TCPTransport{localID: localID, dialAddr: addr}
}

// NewTCPListener builds a TCPTransport that accepts a single inbound
// connection on listenOn, performing the handshake as the accepting side.
func NewTCPListener(localID, listenOn string) *TCPTransport {
	return &TCPTransport{localID: localID, listenOn: listenOn}
}

func (t *TCPTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return nil
	}

	if t.dialAddr != "" {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", t.dialAddr)
		if err != nil {
			return fmt.Errorf("transport: dial %s: %w", t.dialAddr, err)
		}
		if err := t.handshakeOutbound(conn); err != nil {
			conn.Close()
			return err
		}
		t.conn = conn
		go t.readLoop(conn)
		return nil
	}

	ln, err := net.Listen("tcp", t.listenOn)
	if err != nil {
		return fmt.Errorf("transport: listen on %s: %w", t.listenOn, err)
	}
	t.listener = ln
	conn, err := ln.Accept()
	if err != nil {
		ln.Close()
		return fmt.Errorf("transport: accept: %w", err)
	}
	if err := t.handshakeInbound(conn); err != nil {
		conn.Close()
		return err
	}
	t.conn = conn
	go t.readLoop(conn)
	return nil
}

func (t *TCPTransport) handshakeOutbound(conn net.Conn) error {
	if _, err := fmt.Fprintf(conn, "%s%s\n", handshakePrefix, t.localID); err != nil {
		return fmt.Errorf("transport: send handshake: %w", err)
	}
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return fmt.Errorf("transport: handshake closed before reply")
	}
	return nil
}

func (t *TCPTransport) handshakeInbound(conn net.Conn) error {
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return fmt.Errorf("transport: handshake closed before greeting")
	}
	if _, err := fmt.Fprintf(conn, "%s%s\n", handshakePrefix, t.localID); err != nil {
		return fmt.Errorf("transport: send handshake reply: %w", err)
	}
	return nil
}

func (t *TCPTransport) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		decoded, err := base64.StdEncoding.DecodeString(scanner.Text())
		if err != nil {
			continue
		}
		t.mu.Lock()
		t.inbound = append(t.inbound, decoded)
		t.mu.Unlock()
	}
	t.mu.Lock()
	if t.conn == conn {
		t.connErr = fmt.Errorf("transport: connection closed")
		t.conn = nil
	}
	t.mu.Unlock()
}

func (t *TCPTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var err error
	if t.conn != nil {
		err = t.conn.Close()
		t.conn = nil
	}
	if t.listener != nil {
		t.listener.Close()
		t.listener = nil
	}
	t.connErr = nil
	return err
}

func (t *TCPTransport) Send(data []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	if _, err := fmt.Fprintf(conn, "%s\n", encoded); err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

func (t *TCPTransport) Receive() ([][]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil && t.connErr == nil {
		return nil, ErrNotConnected
	}
	drained := t.inbound
	t.inbound = nil
	return drained, nil
}

func (t *TCPTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}
