// Package metrics exposes Prometheus instrumentation for conversions and
// the HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "audioconv"

// Outcome labels for ConversionsTotal.
const (
	OutcomeOK           = "ok"
	OutcomeRejected     = "rejected"
	OutcomeDecodeFailed = "decode_failed"
	OutcomeEncodeFailed = "encode_failed"
	OutcomeTrimFailed   = "trim_failed"
	OutcomeCanceled     = "canceled"
)

// Metrics contains all Prometheus metrics for audioconv.
// All Record methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Conversion metrics
	ConversionsTotal   *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	InputSize          prometheus.Histogram
	OutputSize         *prometheus.HistogramVec
	MediaDuration      prometheus.Histogram
	ConversionsRunning prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all metrics on a private registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ConversionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Total number of conversion requests by target format and outcome",
		}, []string{"format", "outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
		InputSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "input_size_bytes",
			Help:      "Size of uploaded audio",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),
		OutputSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "output_size_bytes",
			Help:      "Size of encoded downloads",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}, []string{"kind"}),
		MediaDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "media_duration_seconds",
			Help:      "Playback length of decoded inputs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),
		ConversionsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conversions_running",
			Help:      "Current number of conversions in progress",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Registry returns the registry holding every metric.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ConversionStarted increments the running gauge.
func (m *Metrics) ConversionStarted() {
	if m == nil {
		return
	}
	m.ConversionsRunning.Inc()
}

// ConversionFinished decrements the running gauge and counts the outcome.
func (m *Metrics) ConversionFinished(format, outcome string) {
	if m == nil {
		return
	}
	m.ConversionsRunning.Dec()
	m.ConversionsTotal.WithLabelValues(format, outcome).Inc()
}

// RecordStage records the time spent in one stage (decode, encode, trim).
func (m *Metrics) RecordStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(seconds)
}

// RecordInput records the size and decoded length of an input.
func (m *Metrics) RecordInput(sizeBytes int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.InputSize.Observe(float64(sizeBytes))
	m.MediaDuration.Observe(durationSeconds)
}

// RecordOutput records the size of an encoded download ("converted", "cut").
func (m *Metrics) RecordOutput(kind string, sizeBytes int64) {
	if m == nil {
		return
	}
	m.OutputSize.WithLabelValues(kind).Observe(float64(sizeBytes))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
