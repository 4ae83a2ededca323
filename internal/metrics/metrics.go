package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Relay traffic metrics
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Total messages processed by direction, type and outcome",
		},
		[]string{"direction", "message_type", "status"},
	)

	// Guard metrics
	GuardRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_guard_rejections_total",
			Help: "Total messages rejected at the trust boundary",
		},
		[]string{"guard", "reason"},
	)

	DuplicateDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_duplicate_deliveries_total",
			Help: "Inbound messages suppressed as vendor redeliveries",
		},
	)

	// Vendor forwarding metrics
	VendorForwardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_vendor_forward_duration_seconds",
			Help:    "Duration of outbound vendor API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	VendorForwardErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_vendor_forward_errors_total",
			Help: "Failed outbound vendor API calls by kind",
		},
		[]string{"kind"},
	)

	// Audit sink metrics
	AuditWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_audit_write_errors_total",
			Help: "Total failed audit sink writes",
		},
	)
)
