package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	conflictChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homestay",
			Name:      "conflict_checks_total",
			Help:      "Count of stay conflict checks by result.",
		},
		[]string{"result"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homestay",
			Name:      "bookings_created_total",
			Help:      "Count of bookings created by status.",
		},
		[]string{"status"},
	)

	bookingRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homestay",
			Name:      "bookings_rejected_total",
			Help:      "Count of booking requests rejected by reason.",
		},
		[]string{"reason"},
	)

	bookingStatusChanged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homestay",
			Name:      "booking_status_changes_total",
			Help:      "Count of booking status transitions by target status.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "homestay",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(conflictChecks, bookingCreated, bookingRejected, bookingStatusChanged, httpRequests)
	})
}

func IncConflictCheck(conflict bool) {
	result := "free"
	if conflict {
		result = "conflict"
	}
	conflictChecks.WithLabelValues(result).Inc()
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejected.WithLabelValues(reason).Inc()
}

func IncStatusChanged(status string) {
	bookingStatusChanged.WithLabelValues(status).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
