package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeStreamed      = "streamed"
	OutcomeUpstreamError = "upstream_error"
	OutcomeBadRequest    = "bad_request"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tutor_relay_build_info",
			Help: "Build information",
		},
		[]string{"version"},
	)

	chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_relay_chat_requests_total",
			Help: "Chat requests by outcome",
		},
		[]string{"model", "outcome"},
	)

	fragmentsForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_relay_fragments_forwarded_total",
			Help: "Text fragments forwarded to clients",
		},
		[]string{"model"},
	)

	chunksSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_relay_chunks_skipped_total",
			Help: "Upstream chunks without a text delta",
		},
		[]string{"model"},
	)

	streamsInterrupted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_relay_streams_interrupted_total",
			Help: "Streams that ended early because of an upstream failure or a client disconnect",
		},
		[]string{"model", "reason"},
	)

	streamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutor_relay_stream_duration_seconds",
			Help:    "Time from request to end of stream",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, chatRequests, fragmentsForwarded, chunksSkipped, streamsInterrupted, streamDuration)
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// RecordChatRequest increments the chat request counter.
func RecordChatRequest(model, outcome string) {
	chatRequests.WithLabelValues(model, outcome).Inc()
}

func RecordFragment(model string) {
	fragmentsForwarded.WithLabelValues(model).Inc()
}

func RecordSkippedChunk(model string) {
	chunksSkipped.WithLabelValues(model).Inc()
}

// RecordInterrupted counts a stream that did not reach upstream EOF.
func RecordInterrupted(model, reason string) {
	streamsInterrupted.WithLabelValues(model, reason).Inc()
}

// ObserveStreamDuration records the duration of a stream.
func ObserveStreamDuration(model string, d time.Duration) {
	streamDuration.WithLabelValues(model).Observe(d.Seconds())
}
