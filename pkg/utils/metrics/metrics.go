package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultStale    = "stale"
	ResultError    = "error"
	ResultSkipped  = "skipped"
)

// Prometheus metrics for the approval workflow
var (
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaflow",
			Name:      "deliverable_transitions_total",
			Help:      "Total number of deliverable transitions by kind and result",
		},
		[]string{"kind", "result"},
	)

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaflow",
			Name:      "approval_decisions_total",
			Help:      "Total number of approval decisions by channel and result",
		},
		[]string{"method", "result"},
	)

	RuleExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaflow",
			Name:      "rule_executions_total",
			Help:      "Total number of automation rule executions by outcome",
		},
		[]string{"outcome"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexaflow",
			Name:      "notification_deliveries_total",
			Help:      "Total number of notification deliveries by channel and result",
		},
		[]string{"channel", "result"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexaflow",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics. Calling it more than once is a no-op.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(TransitionsTotal)
		prometheus.MustRegister(DecisionsTotal)
		prometheus.MustRegister(RuleExecutionsTotal)
		prometheus.MustRegister(NotificationsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
	})
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
