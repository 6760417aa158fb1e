package sync

import (
	"time"

	"github.com/replimesh/replimesh/internal/crypto/pqc"
)

// Config controls the sync engine's tick cadence, timeouts, retention,
// and its ambient-stack hooks (metrics, tracing, encryption, peer
// authentication).
type Config struct {
	SyncInterval      time.Duration
	HeartbeatInterval time.Duration
	PeerStaleFactor   int
	SendTimeout       time.Duration
	DrainTimeout      time.Duration
	DeltaRetention    time.Duration
	ProtocolVersion   uint32

	// MetricsEnabled registers the engine's Prometheus collectors.
	MetricsEnabled bool
	// TracingEnabled wraps each tick and merge in a span.
	TracingEnabled  bool
	TracingEndpoint string

	// EncryptionHook, if set, encrypts outbound delta payloads before
	// they are encoded, and decrypts inbound ones after decoding, before
	// they are merged.
	EncryptionHook pqc.EncryptionHook
	// PeerTokenVerificationKey, if set, requires PeerJoin messages to
	// carry a token verifiable against this HS256 key.
	PeerTokenVerificationKey []byte
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		SyncInterval:      2 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		PeerStaleFactor:   3,
		SendTimeout:       5 * time.Second,
		DrainTimeout:      10 * time.Second,
		DeltaRetention:    time.Hour,
		ProtocolVersion:   1,
	}
}

// staleWindow is the duration of silence after which a peer is marked
// stale.
func (c Config) staleWindow() time.Duration {
	return time.Duration(c.PeerStaleFactor) * c.HeartbeatInterval
}

// pollInterval is how often the run loop wakes to drain inbound messages
// and check whether a sync or heartbeat tick is due. It is derived from
// the other intervals rather than separately configured.
func (c Config) pollInterval() time.Duration {
	shortest := c.SyncInterval
	if c.HeartbeatInterval < shortest {
		shortest = c.HeartbeatInterval
	}
	p := shortest / 10
	if p < 10*time.Millisecond {
		p = 10 * time.Millisecond
	}
	return p
}
