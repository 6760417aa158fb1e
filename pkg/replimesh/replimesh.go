// Package replimesh is the public facade over the CRDT sync engine: a
// thin Options/New/Shutdown wrapper that hides the internal engine,
// storage, and transport wiring from callers.
package replimesh

import (
	"context"
	"fmt"

	"github.com/replimesh/replimesh/internal/codec"
	"github.com/replimesh/replimesh/internal/id"
	"github.com/replimesh/replimesh/internal/logging"
	"github.com/replimesh/replimesh/internal/peer"
	"github.com/replimesh/replimesh/internal/storage"
	"github.com/replimesh/replimesh/internal/sync"
	"github.com/replimesh/replimesh/internal/transport"
)

// Options configures a Mesh.
type Options struct {
	// DataDir is where collection state and collection metadata are
	// persisted. Required.
	DataDir string
	// Replica identifies this installation. A fresh id is generated if
	// left zero.
	Replica id.ReplicaID
	// Transport is the pluggable channel used to reach peers. Required.
	Transport transport.Transport
	// Config overrides the engine's tick cadence, timeouts, and ambient
	// hooks. The zero value is replaced with sync.DefaultConfig().
	Config sync.Config
	// LogLevel is a zap level string ("debug", "info", "warn", "error").
	// Defaults to "info".
	LogLevel string
}

// Mesh is a running sync engine bound to one storage directory and one
// transport.
type Mesh struct {
	engine *sync.Engine
}

// New builds a Mesh and starts its sync engine.
func New(ctx context.Context, opts Options) (*Mesh, error) {
	if opts.DataDir == "" {
		return nil, fmt.Errorf("replimesh: DataDir cannot be empty")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("replimesh: Transport cannot be nil")
	}

	replica := opts.Replica
	if replica.IsZero() {
		replica = id.NewReplicaID()
	}

	cfg := opts.Config
	if cfg.SyncInterval == 0 {
		cfg = sync.DefaultConfig()
	}

	level := opts.LogLevel
	if level == "" {
		level = "info"
	}
	logger, err := logging.NewLogger(level, "json")
	if err != nil {
		return nil, fmt.Errorf("replimesh: build logger: %w", err)
	}

	store, err := storage.NewFileStorage(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("replimesh: open storage: %w", err)
	}

	engine := sync.New(replica, cfg, opts.Transport, store, logger)
	if err := engine.Start(ctx); err != nil {
		return nil, fmt.Errorf("replimesh: start engine: %w", err)
	}

	return &Mesh{engine: engine}, nil
}

// Collection returns the named collection, registering a fresh CRDT of
// kind if it has not been seen before (locally or from a peer).
func (m *Mesh) Collection(name string, kind codec.CRDTType) (*sync.Collection, error) {
	if col, ok := m.engine.Collection(name); ok {
		return col, nil
	}
	state, err := sync.NewState(kind, m.engine.Replica())
	if err != nil {
		return nil, fmt.Errorf("replimesh: create collection %q: %w", name, err)
	}
	col := sync.NewCollection(name, kind, state)
	m.engine.Register(col)
	return col, nil
}

// Replica returns this mesh's replica id.
func (m *Mesh) Replica() id.ReplicaID {
	return m.engine.Replica()
}

// Peers exposes the engine's peer registry.
func (m *Mesh) Peers() *peer.Registry {
	return m.engine.Peers()
}

// Shutdown stops the sync engine, waiting up to the configured drain
// timeout for in-flight work to quiesce.
func (m *Mesh) Shutdown() error {
	return m.engine.Stop()
}
