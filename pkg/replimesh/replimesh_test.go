package replimesh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replimesh/replimesh/internal/codec"
	"github.com/replimesh/replimesh/internal/sync"
	"github.com/replimesh/replimesh/internal/transport"
)

func TestNewRequiresDataDirAndTransport(t *testing.T) {
	a, _ := transport.NewLoopbackPair()

	_, err := New(context.Background(), Options{Transport: a})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{DataDir: t.TempDir()})
	assert.Error(t, err)
}

func TestNewStartsEngineAndShutdownStopsIt(t *testing.T) {
	a, _ := transport.NewLoopbackPair()
	cfg := sync.DefaultConfig()
	cfg.SyncInterval = 20 * time.Millisecond
	cfg.HeartbeatInterval = 30 * time.Millisecond

	mesh, err := New(context.Background(), Options{
		DataDir:   t.TempDir(),
		Transport: a,
		Config:    cfg,
	})
	require.NoError(t, err)

	assert.False(t, mesh.Replica().IsZero())
	require.NoError(t, mesh.Shutdown())
}

func TestCollectionRegistersAndReturnsSameInstance(t *testing.T) {
	a, _ := transport.NewLoopbackPair()
	cfg := sync.DefaultConfig()
	cfg.SyncInterval = 20 * time.Millisecond
	cfg.HeartbeatInterval = 30 * time.Millisecond

	mesh, err := New(context.Background(), Options{DataDir: t.TempDir(), Transport: a, Config: cfg})
	require.NoError(t, err)
	defer func() { require.NoError(t, mesh.Shutdown()) }()

	col1, err := mesh.Collection("notes", codec.CRDTMap)
	require.NoError(t, err)

	col2, err := mesh.Collection("notes", codec.CRDTMap)
	require.NoError(t, err)

	assert.Same(t, col1, col2)
}
