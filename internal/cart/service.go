package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/internal/products"
	"github.com/angelmondragon/shopeazy-backend/internal/reservation"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	"github.com/angelmondragon/shopeazy-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the cart surface. Every read reconciles against live reservations.
type Service interface {
	AddOrUpdate(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	Get(ctx context.Context, userID uuid.UUID) (*UpdatedCartInfo, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
}

// ServiceParams wires the cart service. Now should share the reservation store's clock.
type ServiceParams struct {
	Repo         *Repository
	Tx           txRunner
	Products     *products.Repository
	Reservations reservation.Store
	TTL          time.Duration
	Metrics      *metrics.CartMetrics
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	repo         *Repository
	tx           txRunner
	products     *products.Repository
	reservations reservation.Store
	ttl          time.Duration
	metrics      *metrics.CartMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation store required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("reservation ttl must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		products:     params.Products,
		reservations: params.Reservations,
		ttl:          params.TTL,
		metrics:      params.Metrics,
		logg:         params.Logger,
		now:          now,
	}, nil
}

// AddOrUpdate reserves quantity units and writes the line with a fresh product snapshot
// under the cart row lock. A zero quantity removes the line.
func (s *service) AddOrUpdate(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if quantity == 0 {
		return s.Remove(ctx, userID, productID)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Status.IsPurchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidStatus, "product is not available for purchase").
			WithDetails(map[string]any{"product_id": productID.String(), "status": product.Status})
	}

	held, err := s.reservations.Reserve(ctx, userID, productID, quantity, s.ttl)
	if err != nil {
		return nil, err
	}

	var view *CartDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		record, err := txRepo.LockOrCreate(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		line := snapshot(product, held.Quantity)
		replaced := false
		for i := range record.Items {
			if record.Items[i].ProductID == productID {
				record.Items[i] = line
				replaced = true
				break
			}
		}
		if !replaced {
			record.Items = append(record.Items, line)
		}

		if err := txRepo.ReplaceItems(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
		}
		view = FromModel(record)
		return nil
	})
	if err != nil {
		s.warn(ctx, userID, "cart save failed after reserve; hold expires with its ttl")
		return nil, err
	}
	return view, nil
}

// Remove drops the line and releases its reservation. Removing an absent line is a no-op.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	var view *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		record, err := txRepo.FindForUpdate(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := reservation.InTx(s.reservations, tx).Release(ctx, userID, productID); err != nil {
			return err
		}
		if record == nil {
			view = emptyCart(userID)
			return nil
		}

		kept := record.Items[:0]
		for _, item := range record.Items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		if len(kept) != len(record.Items) {
			record.Items = kept
			if err := txRepo.ReplaceItems(ctx, record); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
			}
		}
		view = FromModel(record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Get returns the reconciled cart.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*UpdatedCartInfo, error) {
	return s.reconcile(ctx, userID)
}

// Clear empties the cart and releases every reservation the user holds.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	var view *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		record, err := txRepo.FindForUpdate(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if _, err := reservation.InTx(s.reservations, tx).ReleaseAll(ctx, userID); err != nil {
			return err
		}
		if record == nil {
			view = emptyCart(userID)
			return nil
		}
		if len(record.Items) > 0 {
			if err := txRepo.ClearItems(ctx, record.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
			}
			record.Items = nil
		}
		view = FromModel(record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func snapshot(product *models.Product, quantity int) models.CartItem {
	return models.CartItem{
		ProductID:          product.ID,
		ProductName:        product.Name,
		ProductDescription: product.Description,
		OriginalPrice:      product.Price,
		Discount:           product.Discount,
		DiscountedPrice:    products.DiscountedPrice(product.Price, product.Discount),
		Quantity:           quantity,
	}
}

func (s *service) warn(ctx context.Context, userID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithUserID(ctx, userID.String()), msg)
}
