package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reservation outcomes.
const (
	OutcomeReserved   = "reserved"
	OutcomeOutOfStock = "out_of_stock"
	OutcomeError      = "error"
)

// ReservationMetrics tracks reserve attempts and expiry sweeps per backend.
type ReservationMetrics struct {
	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	purged   *prometheus.CounterVec
}

// NewReservationMetrics registers the reservation metrics on the provided registerer.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_attempts_total",
		Help: "Reserve calls partitioned by backend and outcome.",
	}, []string{"backend", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservation_operation_seconds",
		Help:    "Latency of reservation store operations.",
		Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"backend", "operation"})
	purged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_purged_total",
		Help: "Expired reservations removed by the sweep.",
	}, []string{"backend"})
	reg.MustRegister(attempts, latency, purged)
	return &ReservationMetrics{
		attempts: attempts,
		latency:  latency,
		purged:   purged,
	}
}

// IncAttempt counts a reserve call with its outcome.
func (m *ReservationMetrics) IncAttempt(backend, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(backend), normalizeLabel(outcome)).Inc()
}

// ObserveOperation records how long a store call took.
func (m *ReservationMetrics) ObserveOperation(backend, operation string, duration time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.WithLabelValues(normalizeLabel(backend), normalizeLabel(operation)).Observe(duration.Seconds())
}

// AddPurged counts reservations removed by a sweep.
func (m *ReservationMetrics) AddPurged(backend string, n int) {
	if m == nil || m.purged == nil || n <= 0 {
		return
	}
	m.purged.WithLabelValues(normalizeLabel(backend)).Add(float64(n))
}
