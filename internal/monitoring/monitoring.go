// Package monitoring exposes the sync engine's Prometheus collectors: a
// struct of counters and gauges for sync ticks, merges, and transport
// activity, registered against a caller-supplied Registerer.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SyncTicks           prometheus.Counter
	SyncTickDuration    prometheus.Histogram
	DeltasSent          prometheus.Counter
	DeltasReceived      prometheus.Counter
	MergeConflicts      prometheus.Counter
	MergeDuration       prometheus.Histogram
	ActivePeers         prometheus.Gauge
	StalePeersEvicted   prometheus.Counter
	HeartbeatsSent      prometheus.Counter
	TransportSendErrors prometheus.Counter
	StorageErrors       prometheus.Counter
	CollectionSize      prometheus.Gauge
}

// NewMetrics registers the sync engine's collectors against reg. Callers
// running multiple engines in the same process (or in tests) should pass a
// fresh prometheus.NewRegistry() each time to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "replimesh_sync_ticks_total",
			Help: "Total number of sync engine ticks executed",
		}),
		SyncTickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "replimesh_sync_tick_duration_seconds",
			Help:    "Time taken to execute one sync tick",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		DeltasSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "replimesh_deltas_sent_total",
			Help: "Total number of deltas sent to peers",
		}),
		DeltasReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "replimesh_deltas_received_total",
			Help: "Total number of deltas received from peers",
		}),
		MergeConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "replimesh_merge_conflicts_total",
			Help: "Total number of CRDT merges that resolved a conflicting write",
		}),
		MergeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "replimesh_merge_duration_seconds",
			Help:    "Time taken to merge a received delta into local state",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 10),
		}),
		ActivePeers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "replimesh_active_peers",
			Help: "Number of peers currently considered live",
		}),
		StalePeersEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "replimesh_stale_peers_evicted_total",
			Help: "Total number of peers evicted for exceeding the staleness window",
		}),
		HeartbeatsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "replimesh_heartbeats_sent_total",
			Help: "Total number of heartbeat messages sent",
		}),
		TransportSendErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "replimesh_transport_send_errors_total",
			Help: "Total number of transport send failures",
		}),
		StorageErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "replimesh_storage_errors_total",
			Help: "Total number of storage operation failures",
		}),
		CollectionSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "replimesh_collection_size_bytes",
			Help: "Serialized size of a collection's current state",
		}),
	}
}
