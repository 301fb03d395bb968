package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "rejected"
	OutcomeTokenMissing = "token_missing"
	OutcomeError        = "error"
)

var (
	BookingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hkulib_booking_attempts_total",
			Help: "Booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hkulib_booking_step_duration_seconds",
			Help:    "Duration of each step of the booking postback sequence.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	RecordsFetched = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hkulib_records_fetched",
			Help: "Number of booking records returned by the last fetch, per user.",
		},
		[]string{"user"},
	)

	LoginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hkulib_login_failures_total",
		Help: "Failed portal logins.",
	})
)
