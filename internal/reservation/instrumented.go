package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	"github.com/angelmondragon/shopeazy-backend/pkg/metrics"
)

// instrumentedStore records outcomes and latency around any backend.
type instrumentedStore struct {
	next    Store
	backend string
	metrics *metrics.ReservationMetrics
	logg    *logger.Logger
}

// Instrument wraps store with metrics and failure logging.
func Instrument(store Store, backend string, m *metrics.ReservationMetrics, logg *logger.Logger) Store {
	return &instrumentedStore{next: store, backend: backend, metrics: m, logg: logg}
}

// WithTx keeps instrumentation around the transaction-scoped backend.
func (s *instrumentedStore) WithTx(tx *gorm.DB) Store {
	return &instrumentedStore{next: InTx(s.next, tx), backend: s.backend, metrics: s.metrics, logg: s.logg}
}

func (s *instrumentedStore) observe(op string, start time.Time) {
	s.metrics.ObserveOperation(s.backend, op, time.Since(start))
}

func (s *instrumentedStore) logFailure(ctx context.Context, msg string, err error) {
	if s.logg == nil || err == nil || !pkgerrors.IsRetryable(err) {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "reservation_backend", s.backend), msg, err)
}

func (s *instrumentedStore) Reserve(ctx context.Context, userID, productID uuid.UUID, quantity int, ttl time.Duration) (*Reservation, error) {
	defer s.observe("reserve", time.Now())
	res, err := s.next.Reserve(ctx, userID, productID, quantity, ttl)
	switch {
	case err == nil:
		s.metrics.IncAttempt(s.backend, metrics.OutcomeReserved)
	case pkgerrors.Is(err, pkgerrors.CodeOutOfStock):
		s.metrics.IncAttempt(s.backend, metrics.OutcomeOutOfStock)
	default:
		s.metrics.IncAttempt(s.backend, metrics.OutcomeError)
		s.logFailure(ctx, "reserve failed", err)
	}
	return res, err
}

func (s *instrumentedStore) Release(ctx context.Context, userID, productID uuid.UUID) error {
	defer s.observe("release", time.Now())
	err := s.next.Release(ctx, userID, productID)
	s.logFailure(ctx, "release failed", err)
	return err
}

func (s *instrumentedStore) ReleaseAll(ctx context.Context, userID uuid.UUID) (int, error) {
	defer s.observe("release_all", time.Now())
	n, err := s.next.ReleaseAll(ctx, userID)
	s.logFailure(ctx, "release all failed", err)
	return n, err
}

func (s *instrumentedStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]Reservation, error) {
	defer s.observe("find_by_user", time.Now())
	return s.next.FindByUser(ctx, userID)
}

func (s *instrumentedStore) FindByProduct(ctx context.Context, productID uuid.UUID) ([]Reservation, error) {
	defer s.observe("find_by_product", time.Now())
	return s.next.FindByProduct(ctx, productID)
}

func (s *instrumentedStore) FindOne(ctx context.Context, userID, productID uuid.UUID) (*Reservation, error) {
	defer s.observe("find_one", time.Now())
	return s.next.FindOne(ctx, userID, productID)
}

func (s *instrumentedStore) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	defer s.observe("available", time.Now())
	return s.next.Available(ctx, productID)
}

func (s *instrumentedStore) PurgeExpired(ctx context.Context) (int, error) {
	defer s.observe("purge", time.Now())
	n, err := s.next.PurgeExpired(ctx)
	s.metrics.AddPurged(s.backend, n)
	s.logFailure(ctx, "purge failed", err)
	return n, err
}
