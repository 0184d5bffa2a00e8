package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "turns_total",
			Help:      "Total number of submitted turns",
		},
		[]string{"model", "status"},
	)

	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn generation duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	ToolInvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "tool_invocations_total",
			Help:      "Total tool invocations through the gateway",
		},
		[]string{"tool_name", "status"},
	)

	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "tool_duration_seconds",
			Help:      "Tool execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"tool_name"},
	)

	StreamAttachesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "stream_attaches_total",
			Help:      "Stream attach attempts by resume mode",
		},
		[]string{"mode"},
	)

	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "active_streams",
			Help:      "Number of currently active generation streams",
		},
	)

	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "api",
			Name:      "quota_rejections_total",
			Help:      "Turns rejected by the quota guard",
		},
		[]string{"user_class"},
	)
)

// RecordTurn records a completed turn and its duration.
func RecordTurn(model, status string, durationSec float64) {
	TurnsTotal.WithLabelValues(model, status).Inc()
	TurnDuration.WithLabelValues(model).Observe(durationSec)
}

// RecordToolInvocation records one gateway invocation.
func RecordToolInvocation(toolName, status string, durationSec float64) {
	ToolInvocationsTotal.WithLabelValues(toolName, status).Inc()
	ToolDuration.WithLabelValues(toolName).Observe(durationSec)
}

// RecordStreamAttach records a resume/attach attempt by mode
// (live, snapshot, empty, disabled).
func RecordStreamAttach(mode string) {
	StreamAttachesTotal.WithLabelValues(mode).Inc()
}

// RecordQuotaRejection records a RateLimited admission decision.
func RecordQuotaRejection(userClass string) {
	QuotaRejectionsTotal.WithLabelValues(userClass).Inc()
}
