package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
)

type fakePurger struct {
	purged int
	err    error
	calls  int
}

func (f *fakePurger) PurgeExpired(context.Context) (int, error) {
	f.calls++
	return f.purged, f.err
}

func TestReservationPurgeJob(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})

	purger := &fakePurger{purged: 3}
	job, err := NewReservationPurgeJob(logg, purger)
	require.NoError(t, err)
	assert.Equal(t, "reservation-purge", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, purger.calls)

	failing, err := NewReservationPurgeJob(logg, &fakePurger{err: errors.New("redis down")})
	require.NoError(t, err)
	assert.Error(t, failing.Run(context.Background()))

	_, err = NewReservationPurgeJob(logg, nil)
	assert.Error(t, err)
}

type fakeCanceller struct {
	batches []int
	err     error
	cutoffs []time.Time
	limits  []int
}

func (f *fakeCanceller) CancelStalePending(_ context.Context, cutoff time.Time, limit int) (int, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if len(f.batches) == 0 {
		return 0, f.err
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func newStaleOrderJob(t *testing.T, orders staleOrderCanceller, now time.Time) *staleOrderJob {
	t.Helper()
	job, err := NewStaleOrderJob(StaleOrderJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Orders:  orders,
		Timeout: time.Hour,
	})
	require.NoError(t, err)
	typed := job.(*staleOrderJob)
	typed.now = func() time.Time { return now }
	return typed
}

func TestStaleOrderJobDrainsFullBatches(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orders := &fakeCanceller{batches: []int{staleOrderBatchSize, staleOrderBatchSize, 4}}
	job := newStaleOrderJob(t, orders, now)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, orders.cutoffs, 3)
	for _, cutoff := range orders.cutoffs {
		assert.True(t, cutoff.Equal(now.Add(-time.Hour)))
	}
	assert.Equal(t, staleOrderBatchSize, orders.limits[0])
}

func TestStaleOrderJobStopsOnError(t *testing.T) {
	orders := &fakeCanceller{err: errors.New("db gone")}
	job := newStaleOrderJob(t, orders, time.Now())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, orders.cutoffs, 1)
}

func TestNewStaleOrderJobValidates(t *testing.T) {
	_, err := NewStaleOrderJob(StaleOrderJobParams{
		Logger: logger.New(logger.Options{}),
		Orders: &fakeCanceller{},
	})
	assert.Error(t, err)
}
