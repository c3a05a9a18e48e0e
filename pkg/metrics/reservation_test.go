package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReservationMetrics(reg)

	m.IncAttempt("redis", OutcomeReserved)
	m.IncAttempt("redis", OutcomeReserved)
	m.IncAttempt("redis", OutcomeOutOfStock)
	m.ObserveOperation("redis", "reserve", 3*time.Millisecond)
	m.AddPurged("sql", 4)
	m.AddPurged("sql", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("redis", OutcomeReserved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("redis", OutcomeOutOfStock)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.purged.WithLabelValues("sql")))

	count, err := testutil.GatherAndCount(reg, "reservation_operation_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	hist := histogramFor(t, reg, "reservation_operation_seconds")
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 0.003, hist.GetSampleSum(), 1e-9)
}

func histogramFor(t *testing.T, gatherer prometheus.Gatherer, name string) *dto.Histogram {
	t.Helper()
	families, err := gatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		require.Equal(t, dto.MetricType_HISTOGRAM, family.GetType())
		require.Len(t, family.GetMetric(), 1)
		return family.GetMetric()[0].GetHistogram()
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func TestCartMetrics(t *testing.T) {
	m := NewCartMetrics(prometheus.NewRegistry())
	m.IncRemoved("RESERVATION_EXPIRED")
	m.IncClamped()
	m.IncClamped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.removed.WithLabelValues("RESERVATION_EXPIRED")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.clamped))
}

func TestNilRegistererIsNoop(t *testing.T) {
	r := NewReservationMetrics(nil)
	r.IncAttempt("redis", OutcomeError)
	r.ObserveOperation("redis", "reserve", time.Millisecond)
	r.AddPurged("redis", 1)

	var c *CartMetrics
	c.IncRemoved("x")
	c.IncClamped()
}
