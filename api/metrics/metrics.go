package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Probe metrics
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_checks_total",
			Help: "Total number of monitor checks by result",
		},
		[]string{"result"}, // up, down
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_probe_duration_seconds",
			Help:    "Wall-clock latency of monitor probes",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	CheckErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_check_errors_total",
			Help: "Total number of check pipeline failures by stage",
		},
		[]string{"stage"}, // record, evaluate, panic
	)

	// Alert metrics
	AlertsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_alerts_created_total",
			Help: "Total number of alerts opened",
		},
	)

	AlertsResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_alerts_resolved_total",
			Help: "Total number of alerts resolved",
		},
	)

	AlertsSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_alerts_suppressed_total",
			Help: "Total number of alerts suppressed by the cooldown window",
		},
	)

	NotifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_notify_failures_total",
			Help: "Total number of failed notification deliveries by sender",
		},
		[]string{"sender"}, // email, webhook
	)

	// Resource sampling
	ResourceSamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_resource_samples_total",
			Help: "Total number of host resource samples by status",
		},
		[]string{"status"}, // ok, error
	)

	// Retention
	RetentionDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_retention_deleted_rows_total",
			Help: "Total number of rows removed by the retention sweep",
		},
		[]string{"table"}, // metrics, system_metrics
	)
)
