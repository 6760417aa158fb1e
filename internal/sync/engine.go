package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/replimesh/replimesh/internal/auth"
	"github.com/replimesh/replimesh/internal/codec"
	"github.com/replimesh/replimesh/internal/id"
	"github.com/replimesh/replimesh/internal/logging"
	"github.com/replimesh/replimesh/internal/monitoring"
	"github.com/replimesh/replimesh/internal/peer"
	"github.com/replimesh/replimesh/internal/storage"
	"github.com/replimesh/replimesh/internal/tracing"
	"github.com/replimesh/replimesh/internal/transport"
)

// Status is the engine's lifecycle state.
type Status int

const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusReconnecting
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusReconnecting:
		return "reconnecting"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Engine drives the sync tick / heartbeat tick / inbound drain loop over
// one transport, persisting to one storage backend and merging into a
// registry of named collections.
type Engine struct {
	replica   id.ReplicaID
	cfg       Config
	transport transport.Transport
	store     storage.Storage
	peers     *peer.Registry
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	tokenMgr  *auth.TokenManager

	mu          sync.Mutex
	status      Status
	collections map[string]*Collection

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs an Engine in the Stopped state.
func New(replica id.ReplicaID, cfg Config, tp transport.Transport, store storage.Storage, logger *logging.Logger) *Engine {
	e := &Engine{
		replica:     replica,
		cfg:         cfg,
		transport:   tp,
		store:       store,
		peers:       peer.NewRegistry(),
		logger:      logger,
		collections: make(map[string]*Collection),
		status:      StatusStopped,
	}
	if cfg.MetricsEnabled {
		e.metrics = monitoring.NewMetrics(prometheus.DefaultRegisterer)
	}
	if len(cfg.PeerTokenVerificationKey) > 0 {
		e.tokenMgr = auth.NewTokenManager(string(cfg.PeerTokenVerificationKey))
	}
	return e
}

// Status reports the engine's current lifecycle state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Register adds a collection to the engine's sync set. Nothing is written
// to storage here; the collection's state and metadata records are
// written when it is first sent or merged into.
func (e *Engine) Register(col *Collection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collections[col.ID] = col
}

// Collection returns a registered collection by id.
func (e *Engine) Collection(collectionID string) (*Collection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.collections[collectionID]
	return c, ok
}

// Peers exposes the engine's peer registry.
func (e *Engine) Peers() *peer.Registry {
	return e.peers
}

// Replica returns the engine's own replica id.
func (e *Engine) Replica() id.ReplicaID {
	return e.replica
}

// Start connects the transport and launches the tick scheduler. Safe to
// call again after Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.status == StatusRunning || e.status == StatusStarting {
		e.mu.Unlock()
		return fmt.Errorf("sync: engine already %s", e.status)
	}
	e.status = StatusStarting
	e.mu.Unlock()

	if err := e.transport.Connect(ctx); err != nil {
		e.mu.Lock()
		e.status = StatusStopped
		e.mu.Unlock()
		return fmt.Errorf("sync: connect transport: %w", err)
	}

	e.mu.Lock()
	e.status = StatusRunning
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	go e.run(ctx)
	return nil
}

// Stop signals the scheduler and waits up to cfg.DrainTimeout for the
// inbound loop to quiesce before disconnecting the transport.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.status != StatusRunning && e.status != StatusReconnecting {
		e.mu.Unlock()
		return nil
	}
	e.status = StatusStopping
	stopCh, doneCh := e.stopCh, e.doneCh
	e.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
	case <-time.After(e.cfg.DrainTimeout):
		e.logger.Sugar().Warn("sync: drain timeout exceeded during stop")
	}

	err := e.transport.Disconnect()

	e.mu.Lock()
	e.status = StatusStopped
	e.mu.Unlock()
	return err
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.doneCh)

	poll := time.NewTicker(e.cfg.pollInterval())
	defer poll.Stop()

	nextSync := time.Now().Add(e.cfg.SyncInterval)
	nextHeartbeat := time.Now().Add(e.cfg.HeartbeatInterval)

	for {
		select {
		case <-e.stopCh:
			return
		case now := <-poll.C:
			e.drainInbound(ctx, now)
			if !now.Before(nextSync) {
				e.syncTick(ctx, now)
				nextSync = now.Add(e.cfg.SyncInterval)
			}
			if !now.Before(nextHeartbeat) {
				e.heartbeatTick(ctx, now)
				nextHeartbeat = now.Add(e.cfg.HeartbeatInterval)
			}
		}
	}
}

func (e *Engine) syncTick(ctx context.Context, now time.Time) {
	ctx, span := e.startSpan(ctx, "sync_tick")
	defer span.End()

	if e.metrics != nil {
		e.metrics.SyncTicks.Inc()
		timer := prometheus.NewTimer(e.metrics.SyncTickDuration)
		defer timer.ObserveDuration()
	}

	e.mu.Lock()
	cols := make([]*Collection, 0, len(e.collections))
	for _, c := range e.collections {
		cols = append(cols, c)
	}
	e.mu.Unlock()

	for _, col := range cols {
		payload, sum, isDirty, err := col.dirty()
		if err != nil {
			e.logStorageError(col.ID, err)
			continue
		}
		if !isDirty {
			continue
		}

		if e.cfg.EncryptionHook != nil {
			encrypted, err := e.cfg.EncryptionHook.Encrypt(payload)
			if err != nil {
				e.logger.Sugar().Errorw("sync: encrypt delta payload", "collection", col.ID, "error", err)
				continue
			}
			payload = encrypted
		}

		delta := codec.Delta{
			CollectionID: col.ID,
			CRDTType:     col.Kind,
			Payload:      payload,
			Timestamp:    now.UnixMilli(),
			Replica:      e.replica,
		}
		if err := e.send(delta); err != nil {
			e.logger.Sugar().Errorw("sync: send delta", "collection", col.ID, "error", err)
			if e.metrics != nil {
				e.metrics.TransportSendErrors.Inc()
			}
			continue
		}

		col.markSent(sum)
		if err := e.persistCollection(col, payload); err != nil {
			e.logStorageError(col.ID, err)
		}
		if e.metrics != nil {
			e.metrics.DeltasSent.Inc()
		}
		for _, p := range e.peers.Peers() {
			e.peers.SetSyncStatus(p, peer.StatusInProgress, now)
		}
	}
	_ = ctx
}

func (e *Engine) heartbeatTick(ctx context.Context, now time.Time) {
	ctx, span := e.startSpan(ctx, "heartbeat_tick")
	defer span.End()
	_ = ctx

	hb := codec.Heartbeat{Replica: e.replica, Timestamp: now.UnixMilli()}
	if err := e.send(hb); err != nil {
		e.logger.Sugar().Errorw("sync: send heartbeat", "error", err)
		if e.metrics != nil {
			e.metrics.TransportSendErrors.Inc()
		}
	} else if e.metrics != nil {
		e.metrics.HeartbeatsSent.Inc()
	}

	evicted := e.peers.EvictStale(now, e.cfg.staleWindow())
	for _, p := range evicted {
		e.logger.Sugar().Warnw("sync: peer marked stale", "peer", p.String())
	}
	if e.metrics != nil {
		if len(evicted) > 0 {
			e.metrics.StalePeersEvicted.Add(float64(len(evicted)))
		}
		e.metrics.ActivePeers.Set(float64(e.peers.Active()))
	}
}

func (e *Engine) drainInbound(ctx context.Context, now time.Time) {
	raw, err := e.transport.Receive()
	if err != nil {
		e.handleTransportError(ctx, err)
		return
	}
	for _, frame := range raw {
		env, err := codec.Decode(frame, e.cfg.ProtocolVersion)
		if err != nil {
			e.logger.Sugar().Warnw("sync: dropping unreadable message", "error", err)
			continue
		}
		e.dispatch(ctx, env, now)
	}
}

func (e *Engine) dispatch(ctx context.Context, env codec.Envelope, now time.Time) {
	switch msg := env.Message.(type) {
	case codec.Delta:
		e.handleDelta(ctx, msg, now)
	case codec.Heartbeat:
		e.peers.Touch(msg.Replica, now)
	case codec.PeerJoin:
		e.handlePeerJoin(msg, now)
	case codec.Welcome:
		e.peers.Touch(msg.AssignedPeer, now)
	case codec.Presence:
		e.peers.Touch(msg.Peer, now)
	case codec.PeerLeave:
		e.peers.MarkOffline(msg.Replica)
	default:
		e.logger.Sugar().Warnw("sync: dropping message with unhandled tag", "tag", env.Tag)
	}
}

func (e *Engine) handlePeerJoin(msg codec.PeerJoin, now time.Time) {
	if e.tokenMgr != nil {
		if msg.User == nil || msg.User.Token == "" {
			e.logger.Sugar().Warnw("sync: dropping peer_join without required token", "peer", msg.Replica.String())
			return
		}
		if _, err := e.tokenMgr.ValidateToken(msg.User.Token); err != nil {
			e.logger.Sugar().Warnw("sync: dropping peer_join with invalid token", "peer", msg.Replica.String(), "error", err)
			return
		}
	}
	e.peers.Touch(msg.Replica, now)
}

func (e *Engine) handleDelta(ctx context.Context, msg codec.Delta, now time.Time) {
	_, span := e.startSpan(ctx, "merge_delta")
	defer span.End()

	var timer *prometheus.Timer
	if e.metrics != nil {
		e.metrics.DeltasReceived.Inc()
		timer = prometheus.NewTimer(e.metrics.MergeDuration)
	}

	payload := msg.Payload
	if e.cfg.EncryptionHook != nil {
		decrypted, err := e.cfg.EncryptionHook.Decrypt(payload)
		if err != nil {
			e.logger.Sugar().Errorw("sync: decrypt delta payload", "collection", msg.CollectionID, "error", err)
			e.peers.SetSyncStatus(msg.Replica, peer.StatusFailed, now)
			return
		}
		payload = decrypted
	}

	e.mu.Lock()
	col, ok := e.collections[msg.CollectionID]
	if !ok {
		state, err := NewState(msg.CRDTType, e.replica)
		if err != nil {
			e.mu.Unlock()
			e.logger.Sugar().Errorw("sync: unknown crdt kind in delta", "collection", msg.CollectionID, "kind", msg.CRDTType, "error", err)
			return
		}
		col = NewCollection(msg.CollectionID, msg.CRDTType, state)
		e.collections[msg.CollectionID] = col
	}
	e.mu.Unlock()

	if err := col.State.MergeFrom(payload); err != nil {
		e.logger.Sugar().Errorw("sync: merge delta", "collection", msg.CollectionID, "error", err)
		e.peers.SetSyncStatus(msg.Replica, peer.StatusFailed, now)
		if timer != nil {
			timer.ObserveDuration()
		}
		return
	}
	if timer != nil {
		timer.ObserveDuration()
	}

	col.bumpVersion()
	merged, err := col.State.MarshalState()
	if err != nil {
		e.logStorageError(col.ID, err)
		return
	}
	if err := e.persistCollection(col, merged); err != nil {
		e.logStorageError(col.ID, err)
	}

	e.peers.Touch(msg.Replica, now)
	e.peers.SetSyncStatus(msg.Replica, peer.StatusSynced, now)
}

// collectionMeta is the meta/<collection_id> storage record.
type collectionMeta struct {
	ID        string         `json:"id"`
	CRDTType  codec.CRDTType `json:"crdt_type"`
	Version   int64          `json:"version"`
	LastSync  int64          `json:"last_sync"`
	PeerCount int            `json:"replica_count"`
}

func (e *Engine) persistCollection(col *Collection, payload []byte) error {
	if err := e.store.Set(storage.CollectionKey(col.ID), payload); err != nil {
		return err
	}
	meta := collectionMeta{
		ID:        col.ID,
		CRDTType:  col.Kind,
		Version:   col.Version(),
		LastSync:  time.Now().UnixMilli(),
		PeerCount: len(e.peers.Peers()),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := e.store.Set(storage.MetaKey(col.ID), metaBytes); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.CollectionSize.Set(float64(len(payload)))
	}
	return nil
}

func (e *Engine) send(message any) error {
	env, err := codec.NewEnvelope(e.cfg.ProtocolVersion, message)
	if err != nil {
		return err
	}
	data, err := codec.Encode(env)
	if err != nil {
		return err
	}
	return e.transport.Send(data)
}

// handleTransportError moves the engine to Reconnecting on a failed
// receive and attempts to reconnect in the background; the scheduler loop
// keeps running so sync/heartbeat ticks are retried once reconnected.
func (e *Engine) handleTransportError(ctx context.Context, err error) {
	e.mu.Lock()
	alreadyReconnecting := e.status == StatusReconnecting
	if e.status == StatusRunning {
		e.status = StatusReconnecting
	}
	e.mu.Unlock()
	if alreadyReconnecting {
		return
	}

	e.logger.Sugar().Warnw("sync: transport error, attempting reconnect", "error", err)
	if connErr := e.transport.Connect(ctx); connErr != nil {
		e.logger.Sugar().Errorw("sync: reconnect failed", "error", connErr)
		return
	}
	e.mu.Lock()
	if e.status == StatusReconnecting {
		e.status = StatusRunning
	}
	e.mu.Unlock()
}

func (e *Engine) logStorageError(collectionID string, err error) {
	e.logger.Sugar().Errorw("sync: storage operation failed", "collection", collectionID, "error", err)
	if e.metrics != nil {
		e.metrics.StorageErrors.Inc()
	}
}

// startSpan starts a real span when tracing is enabled, otherwise returns
// the no-op span otel's trace package hands back for a context carrying
// none — avoids a parallel disabled/enabled code path in callers.
func (e *Engine) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !e.cfg.TracingEnabled {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracing.StartSpan(ctx, name)
}
