package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/internal/inventory"
	"github.com/angelmondragon/shopeazy-backend/internal/reservation"
	"github.com/angelmondragon/shopeazy-backend/internal/sequence"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox/payloads"
)

const maxNameLength = 200

// Service exposes catalog management and availability reads.
type Service interface {
	CreateProduct(ctx context.Context, userID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListSellerProducts(ctx context.Context, sellerID uuid.UUID) ([]ProductDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status enums.ProductStatus) (*ProductDTO, error)
	SetStock(ctx context.Context, actor Actor, id uuid.UUID, stock int) (*ProductDTO, error)
	Availability(ctx context.Context, id uuid.UUID) (*AvailabilityDTO, error)
}

type sellerLookup interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Seller, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the product service.
type ServiceParams struct {
	Repo         *Repository
	Sellers      sellerLookup
	Tx           txRunner
	Issuer       sequence.Issuer
	Ledger       *inventory.Ledger
	Reservations reservation.Store
	Outbox       eventEmitter
}

type service struct {
	repo         *Repository
	sellers      sellerLookup
	tx           txRunner
	issuer       sequence.Issuer
	ledger       *inventory.Ledger
	reservations reservation.Store
	outbox       eventEmitter
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Sellers == nil:
		return nil, fmt.Errorf("seller lookup required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Issuer == nil:
		return nil, fmt.Errorf("sequence issuer required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.Reservations == nil:
		return nil, fmt.Errorf("reservation store required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:         params.Repo,
		sellers:      params.Sellers,
		tx:           params.Tx,
		issuer:       params.Issuer,
		ledger:       params.Ledger,
		reservations: params.Reservations,
		outbox:       params.Outbox,
	}, nil
}

// CreateProduct lists a product under the caller's seller profile. The product number is
// issued inside the insert transaction.
func (s *service) CreateProduct(ctx context.Context, userID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreate(&input); err != nil {
		return nil, err
	}

	seller, err := s.sellers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "a seller profile is required to list products")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup seller")
	}

	var created *models.Product
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.issuer.Next(ctx, tx, enums.SequenceProduct)
		if err != nil {
			return err
		}
		product := &models.Product{
			SellerID:      seller.ID,
			ProductNumber: number,
			Name:          input.Name,
			Description:   input.Description,
			Price:         input.Price,
			Discount:      input.Discount,
			StockCount:    input.StockCount,
			Status:        enums.ProductStatusActive,
		}
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		created = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(created), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) ListSellerProducts(ctx context.Context, sellerID uuid.UUID) ([]ProductDTO, error) {
	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// UpdateStatus changes the product status and queues a product_status_changed event in the
// same transaction. Sellers may toggle their own products between ACTIVE and INACTIVE;
// only admins block or unblock.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status enums.ProductStatus) (*ProductDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}

	sellerID, err := s.actingSeller(ctx, actor)
	if err != nil {
		return nil, err
	}

	var updated *models.Product
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.ledger.LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, sellerID, product); err != nil {
			return err
		}
		if !actor.isAdmin() && (status == enums.ProductStatusBlocked || product.Status == enums.ProductStatusBlocked) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only admins can block or unblock products")
		}
		if product.Status == status {
			updated = product
			return nil
		}

		previous := product.Status
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, id, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product status")
		}
		product.Status = status

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductStatusSet,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()},
			Data: payloads.ProductStatusChangedEvent{
				ProductID:     product.ID,
				ProductNumber: product.ProductNumber,
				From:          previous,
				To:            status,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue product status event")
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// SetStock overwrites the stock ledger. Existing reservations are left alone; checkout
// catches any shortfall.
func (s *service) SetStock(ctx context.Context, actor Actor, id uuid.UUID, stock int) (*ProductDTO, error) {
	if stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}

	sellerID, err := s.actingSeller(ctx, actor)
	if err != nil {
		return nil, err
	}

	var updated *models.Product
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.ledger.LockForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, sellerID, product); err != nil {
			return err
		}
		if err := s.ledger.Set(ctx, tx, id, stock); err != nil {
			return err
		}
		product.StockCount = stock
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Availability reports stock minus the quantity held by live reservations, floored at zero.
func (s *service) Availability(ctx context.Context, id uuid.UUID) (*AvailabilityDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	holds, err := s.reservations.FindByProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	reserved := 0
	for _, hold := range holds {
		reserved += hold.Quantity
	}
	available := product.StockCount - reserved
	if available < 0 {
		available = 0
	}
	return &AvailabilityDTO{
		ProductID:  product.ID,
		Status:     product.Status,
		StockCount: product.StockCount,
		Reserved:   reserved,
		Available:  available,
	}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// actingSeller resolves the caller's seller profile before any row lock is taken. Admins
// and users without a profile resolve to uuid.Nil.
func (s *service) actingSeller(ctx context.Context, actor Actor) (uuid.UUID, error) {
	if actor.isAdmin() {
		return uuid.Nil, nil
	}
	seller, err := s.sellers.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup seller")
	}
	return seller.ID, nil
}

func authorize(actor Actor, sellerID uuid.UUID, product *models.Product) error {
	if actor.isAdmin() {
		return nil
	}
	if sellerID == uuid.Nil || sellerID != product.SellerID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return nil
}

func validateCreate(input *CreateProductInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Name == "" || len(input.Name) > maxNameLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required and must be at most 200 characters")
	}
	if !input.Price.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Discount.IsNegative() || input.Discount.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount must be between 0 and 100")
	}
	if input.StockCount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}
	input.Price = input.Price.Round(2)
	input.Discount = input.Discount.Round(2)
	return nil
}
