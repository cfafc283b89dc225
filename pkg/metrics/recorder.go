package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kolstats"

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	resolutions  *prometheus.CounterVec
	fallbacks    prometheus.Counter
	cacheResults *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	apiLatency   *prometheus.HistogramVec
	apiErrors    *prometheus.CounterVec
	subscribers  prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Partition resolutions by outcome (ok or no_data).",
		}, []string{"partition", "outcome"}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "timeframe_fallback_total",
			Help:      "Timeframe selectors that fell back to the default timeframe.",
		}),
		cacheResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "cache_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors encountered, by type.",
		}, []string{"type"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of API endpoints.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		apiErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by API endpoint.",
		}, []string{"endpoint"}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "subscribers",
			Help:      "Open live-view connections.",
		}),
	}
}

func (r *Recorder) RecordResolution(partition, outcome string) {
	r.resolutions.WithLabelValues(partition, outcome).Inc()
}

func (r *Recorder) RecordTimeframeFallback() { r.fallbacks.Inc() }

// RecordCacheResult counts a snapshot lookup: hit, miss or error.
func (r *Recorder) RecordCacheResult(result string) {
	r.cacheResults.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordError(kind string) { r.errorsTotal.WithLabelValues(kind).Inc() }

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// ObserveAPI records one API call; failed calls are also counted as errors.
func (r *Recorder) ObserveAPI(endpoint string, seconds float64, failed bool) {
	r.apiLatency.WithLabelValues(endpoint).Observe(seconds)
	if failed {
		r.apiErrors.WithLabelValues(endpoint).Inc()
	}
}

func (r *Recorder) SubscriberAdded()   { r.subscribers.Inc() }
func (r *Recorder) SubscriberRemoved() { r.subscribers.Dec() }
