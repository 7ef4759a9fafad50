// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentinel_whisper"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"route"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "engine_inference_seconds",
		Help:      "Time spent inside the transcription engine.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"backend", "result"})

	InferenceQueueWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "engine_queue_wait_seconds",
		Help:      "Time requests wait for the engine to become free.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
	})

	EngineInitializations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "engine_initializations_total",
		Help:      "Successful engine initializations.",
	})

	TranscodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transcode_seconds",
		Help:      "Time spent converting uploads to 16 kHz mono WAV.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"transcoder", "result"})

	ScratchCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scratch_cleanup_failures_total",
		Help:      "Scratch files that could not be removed.",
	})
)

// Result is the label value for an outcome.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
