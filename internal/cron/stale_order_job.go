package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
)

const (
	staleOrderBatchSize  = 100
	staleOrderMaxBatches = 20
)

type staleOrderCanceller interface {
	CancelStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// StaleOrderJobParams configure the pending order timeout job.
type StaleOrderJobParams struct {
	Logger  *logger.Logger
	Orders  staleOrderCanceller
	Timeout time.Duration
}

// NewStaleOrderJob cancels PENDING orders older than Timeout, restoring their stock.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	if params.Timeout <= 0 {
		return nil, fmt.Errorf("pending order timeout must be positive")
	}
	return &staleOrderJob{
		logg:    params.Logger,
		orders:  params.Orders,
		timeout: params.Timeout,
		now:     time.Now,
	}, nil
}

type staleOrderJob struct {
	logg    *logger.Logger
	orders  staleOrderCanceller
	timeout time.Duration
	now     func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale-order-cancel" }

func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.timeout)

	var (
		total int
		errs  error
	)
	for batch := 0; batch < staleOrderMaxBatches; batch++ {
		n, err := j.orders.CancelStalePending(ctx, cutoff, staleOrderBatchSize)
		total += n
		if err != nil {
			// Failed orders stay PENDING and would be fetched again by the next batch.
			errs = multierr.Append(errs, err)
			break
		}
		if n < staleOrderBatchSize {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"cancelled": total,
	})
	j.logg.Info(logCtx, "stale pending orders cancelled")
	return errs
}
