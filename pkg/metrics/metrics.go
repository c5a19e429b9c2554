// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// GatewayMessagesTotal counts outbound sends by message kind and outcome.
	GatewayMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_messages_total",
			Help: "Outbound gateway sends by kind and status",
		},
		[]string{"kind", "status"},
	)

	// GatewaySendDuration tracks the wall time of a whole send, parts and pauses included.
	GatewaySendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_send_duration_seconds",
			Help:    "Outbound gateway send duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20},
		},
		[]string{"kind"},
	)

	// GatewayMessageParts counts individual text parts posted to the gateway.
	GatewayMessageParts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_message_parts_total",
			Help: "Text parts posted to the gateway",
		},
	)

	// RateLimitRejections counts sends refused by the outbound budget.
	RateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_rejections_total",
			Help: "Outbound sends rejected by the rate limiter",
		},
		[]string{"class"},
	)

	// KnowledgeLookups counts knowledge lookups by the stage that produced the answer.
	KnowledgeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "knowledge_lookups_total",
			Help: "Knowledge lookups by resolving stage",
		},
		[]string{"stage"},
	)

	// QuickReplyDecisions counts quick-reply strategy decisions.
	QuickReplyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickreply_decisions_total",
			Help: "Quick-reply strategy decisions",
		},
		[]string{"strategy", "reason"},
	)

	// QuickReplySelections counts quick-reply options tapped by users.
	QuickReplySelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickreply_selections_total",
			Help: "Quick-reply options selected by users",
		},
		[]string{"strategy", "category"},
	)

	// DeferredTasks counts deferred tasks by outcome.
	DeferredTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deferred_tasks_total",
			Help: "Deferred tasks by name and status",
		},
		[]string{"task", "status"},
	)

	// DeliveryLogFailures counts delivery records that could not be written.
	DeliveryLogFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_log_failures_total",
			Help: "Delivery log writes that failed",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordSend records the outcome of one outbound send.
func RecordSend(kind, status string, duration float64) {
	GatewayMessagesTotal.WithLabelValues(kind, status).Inc()
	GatewaySendDuration.WithLabelValues(kind).Observe(duration)
}
