package metrics

import "github.com/prometheus/client_golang/prometheus"

// CartMetrics counts cart reconciliation effects.
type CartMetrics struct {
	removed *prometheus.CounterVec
	clamped prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	removed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_items_removed_total",
		Help: "Cart items dropped during reconciliation, by reason.",
	}, []string{"reason"})
	clamped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_items_clamped_total",
		Help: "Cart items whose quantity was reduced to the reserved amount.",
	})
	reg.MustRegister(removed, clamped)
	return &CartMetrics{removed: removed, clamped: clamped}
}

// IncRemoved counts one dropped item.
func (m *CartMetrics) IncRemoved(reason string) {
	if m == nil || m.removed == nil {
		return
	}
	m.removed.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncClamped counts one clamped item.
func (m *CartMetrics) IncClamped() {
	if m == nil || m.clamped == nil {
		return
	}
	m.clamped.Inc()
}
