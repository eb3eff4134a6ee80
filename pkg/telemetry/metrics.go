package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Metrics = struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	Orchestrations    *prometheus.CounterVec
	ToolExecutions    *prometheus.CounterVec
	ToolDuration      *prometheus.HistogramVec
	SessionsCreated   prometheus.Counter
	SessionsEnded     prometheus.Counter
	ActiveSessions    prometheus.Gauge
	ActiveConnections prometheus.Gauge
	NotificationsSent *prometheus.CounterVec
	SummarizerCalls   *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
}{
	RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetingmcp",
		Name:      "requests_total",
		Help:      "Total number of gateway requests by route and status.",
	}, []string{"route", "status"}),

	RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meetingmcp",
		Name:      "request_duration_seconds",
		Help:      "Gateway request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"}),

	Orchestrations: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetingmcp",
		Name:      "orchestrations_total",
		Help:      "Total orchestrations by detected intent.",
	}, []string{"intent"}),

	ToolExecutions: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetingmcp",
		Name:      "tool_executions_total",
		Help:      "Total tool executions by tool id and result status.",
	}, []string{"tool", "status"}),

	ToolDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meetingmcp",
		Name:      "tool_duration_seconds",
		Help:      "Tool execution duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"tool"}),

	SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meetingmcp",
		Name:      "sessions_created_total",
		Help:      "Total sessions created by the host.",
	}),

	SessionsEnded: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meetingmcp",
		Name:      "sessions_ended_total",
		Help:      "Total sessions ended (first end only; repeat ends are no-ops).",
	}),

	ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "meetingmcp",
		Name:      "active_sessions",
		Help:      "Number of currently active sessions.",
	}),

	ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "meetingmcp",
		Name:      "active_websocket_connections",
		Help:      "Number of active event-stream connections.",
	}),

	NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetingmcp",
		Name:      "notifications_sent_total",
		Help:      "Total notification deliveries by sink and status.",
	}, []string{"sink", "status"}),

	SummarizerCalls: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetingmcp",
		Name:      "summarizer_calls_total",
		Help:      "Total summarizer invocations by provider (or fallback).",
	}, []string{"provider"}),

	ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetingmcp",
		Name:      "errors_total",
		Help:      "Total errors by component.",
	}, []string{"component"}),
}
