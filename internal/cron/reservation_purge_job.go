package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
)

type reservationPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// NewReservationPurgeJob sweeps expired holds out of the reservation store. Reads already
// ignore expired holds; the sweep only reclaims space.
func NewReservationPurgeJob(logg *logger.Logger, store reservationPurger) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("reservation store required")
	}
	return &reservationPurgeJob{logg: logg, store: store}, nil
}

type reservationPurgeJob struct {
	logg  *logger.Logger
	store reservationPurger
}

func (j *reservationPurgeJob) Name() string { return "reservation-purge" }

func (j *reservationPurgeJob) Run(ctx context.Context) error {
	purged, err := j.store.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge reservations: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "purged", purged), "expired reservations purged")
	return nil
}
