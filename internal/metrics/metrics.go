// Package metrics exposes queue and stream activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/Sendspin/sendspin-queue/pkg/queue"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueueMetrics implements queue.Observer and the stream server's counters
type QueueMetrics struct {
	registry *prometheus.Registry

	appendsTotal     prometheus.Counter
	transitionsTotal *prometheus.CounterVec
	pending          prometheus.Gauge

	chunksSentTotal    prometheus.Counter
	chunksDroppedTotal prometheus.Counter
	clients            prometheus.Gauge
}

var _ queue.Observer = (*QueueMetrics)(nil)

// NewQueueMetrics creates and registers the metrics on registry
func NewQueueMetrics(registry *prometheus.Registry) (*QueueMetrics, error) {
	m := &QueueMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *QueueMetrics) initMetrics() {
	m.appendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queue_appends_total",
		Help: "Total number of sources appended to the queue",
	})
	m.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_transitions_total",
			Help: "Total number of queue transitions by kind",
		},
		[]string{"kind"}, // next, silence, exhausted
	)
	m.pending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "queue_pending_sources",
		Help: "Sources waiting behind the one currently playing",
	})

	m.chunksSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_chunks_sent_total",
		Help: "Audio chunks handed to client connections",
	})
	m.chunksDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stream_chunks_dropped_total",
		Help: "Audio chunks dropped because a client fell behind",
	})
	m.clients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stream_clients",
		Help: "Connected stream clients",
	})
}

// Describe implements prometheus.Collector
func (m *QueueMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.appendsTotal.Describe(ch)
	m.transitionsTotal.Describe(ch)
	m.pending.Describe(ch)
	m.chunksSentTotal.Describe(ch)
	m.chunksDroppedTotal.Describe(ch)
	m.clients.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *QueueMetrics) Collect(ch chan<- prometheus.Metric) {
	m.appendsTotal.Collect(ch)
	m.transitionsTotal.Collect(ch)
	m.pending.Collect(ch)
	m.chunksSentTotal.Collect(ch)
	m.chunksDroppedTotal.Collect(ch)
	m.clients.Collect(ch)
}

// Appended records an append
func (m *QueueMetrics) Appended(pending int) {
	m.appendsTotal.Inc()
	m.pending.Set(float64(pending))
}

// Transitioned records a queue transition
func (m *QueueMetrics) Transitioned(kind queue.Transition, pending int) {
	m.transitionsTotal.WithLabelValues(kind.String()).Inc()
	m.pending.Set(float64(pending))
}

// ChunkSent records a chunk queued to a client
func (m *QueueMetrics) ChunkSent() {
	m.chunksSentTotal.Inc()
}

// ChunkDropped records a chunk skipped for a slow client
func (m *QueueMetrics) ChunkDropped() {
	m.chunksDroppedTotal.Inc()
}

// ClientConnected adjusts the connected client gauge
func (m *QueueMetrics) ClientConnected(delta int) {
	m.clients.Add(float64(delta))
}

// Handler serves the registry in the Prometheus exposition format
func (m *QueueMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
