package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the producer and consumer collectors.
type Metrics struct {
	producedTotal  *prometheus.CounterVec
	producedBytes  *prometheus.CounterVec
	publishLatency *prometheus.HistogramVec
	consumedTotal  *prometheus.CounterVec
	handleLatency  *prometheus.HistogramVec
	queueDepth     *prometheus.GaugeVec
	deadLettered   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		producedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kolstats", Subsystem: "kafka", Name: "produced_messages_total",
			Help: "Messages published to Kafka by result.",
		}, []string{"topic", "result"}),
		producedBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kolstats", Subsystem: "kafka", Name: "produced_bytes_total",
			Help: "Payload bytes published to Kafka.",
		}, []string{"topic"}),
		publishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kolstats", Subsystem: "kafka", Name: "publish_seconds",
			Help: "Publish latency.", Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		consumedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kolstats", Subsystem: "kafka", Name: "consumed_messages_total",
			Help: "Messages handled by result.",
		}, []string{"topic", "result"}),
		handleLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kolstats", Subsystem: "kafka", Name: "handle_seconds",
			Help: "Handling time per message, retries included.", Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kolstats", Subsystem: "kafka", Name: "consumer_queue_depth",
			Help: "Messages waiting for a worker.",
		}, []string{"topic"}),
		deadLettered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kolstats", Subsystem: "kafka", Name: "dead_lettered_total",
			Help: "Messages written to the dead-letter topic.",
		}, []string{"topic"}),
	}
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// DefaultMetrics registers on the default registerer once.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() { defaultMetrics = NewMetrics(prometheus.DefaultRegisterer) })
	return defaultMetrics
}

func (m *Metrics) observePublish(topic string, bytes, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.producedTotal.WithLabelValues(topic, result).Add(float64(count))
	m.producedBytes.WithLabelValues(topic).Add(float64(bytes))
	m.publishLatency.WithLabelValues(topic).Observe(dur.Seconds())
}

func (m *Metrics) observeHandle(topic string, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.consumedTotal.WithLabelValues(topic, result).Inc()
	m.handleLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
