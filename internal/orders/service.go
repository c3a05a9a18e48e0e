package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/internal/cart"
	"github.com/angelmondragon/shopeazy-backend/internal/inventory"
	"github.com/angelmondragon/shopeazy-backend/internal/reservation"
	"github.com/angelmondragon/shopeazy-backend/internal/sequence"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/shopeazy-backend/pkg/pagination"
	"github.com/angelmondragon/shopeazy-backend/pkg/types"
)

const pendingTimeoutReason = "pending order timed out"

// Service exposes checkout and the order lifecycle.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID uuid.UUID, params ListParams) (*pagination.Page[OrderDTO], error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*OrderDTO, error)
	CancelStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.UpdatedCartInfo, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo         *Repository
	Tx           txRunner
	Cart         cartReader
	CartRepo     *cart.Repository
	Issuer       sequence.Issuer
	Ledger       *inventory.Ledger
	Reservations reservation.Store
	Outbox       eventEmitter
	Logger       *logger.Logger
	Now          func() time.Time
}

type service struct {
	repo         *Repository
	tx           txRunner
	cart         cartReader
	cartRepo     *cart.Repository
	issuer       sequence.Issuer
	ledger       *inventory.Ledger
	reservations reservation.Store
	outbox       eventEmitter
	logg         *logger.Logger
	now          func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("order repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Cart == nil || params.CartRepo == nil:
		return nil, fmt.Errorf("cart service and repository required")
	case params.Issuer == nil:
		return nil, fmt.Errorf("sequence issuer required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.Reservations == nil:
		return nil, fmt.Errorf("reservation store required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:         params.Repo,
		tx:           params.Tx,
		cart:         params.Cart,
		cartRepo:     params.CartRepo,
		issuer:       params.Issuer,
		ledger:       params.Ledger,
		reservations: params.Reservations,
		outbox:       params.Outbox,
		logg:         params.Logger,
		now:          now,
	}, nil
}

// PlaceOrder converts the reconciled cart into an order. Every line's hold is re-checked
// under the transaction, then the order number, the stock decrements, the order rows, the
// outbox event, the cart clear and the hold releases commit together. A shortfall, a hold
// that lapsed mid-checkout or a failed release rolls all of it back, so sold units are
// never counted as both decremented stock and a live hold.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*OrderDTO, error) {
	var address *types.Address
	if input.ShippingAddress != nil {
		normalized := input.ShippingAddress.Normalize()
		if err := normalized.Validate(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
		}
		address = &normalized
	}

	info, err := s.cart.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if info.Changed() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed since it was last viewed; review it and retry").
			WithDetails(map[string]any{
				"removed_products":  info.RemovedProducts,
				"adjusted_products": info.AdjustedProducts,
			})
	}
	if len(info.Cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	order := buildOrder(userID, info.Cart, address, trimmed(input.Notes), s.now().UTC())

	released := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := lockUnchangedCart(ctx, s.cartRepo.WithTx(tx), userID, info.Cart); err != nil {
			return err
		}
		holds := reservation.InTx(s.reservations, tx)

		number, err := s.issuer.Next(ctx, tx, enums.SequenceOrder)
		if err != nil {
			return err
		}
		order.OrderNumber = number

		for _, item := range order.Items {
			if err := checkHold(ctx, holds, userID, item); err != nil {
				return err
			}
			if err := s.ledger.Decrement(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.UserRoleCustomer.String()},
			OccurredAt:    order.CreatedAt,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      userID,
				Currency:    order.Currency,
				Subtotal:    order.Subtotal.StringFixed(2),
				Discount:    order.DiscountTotal.StringFixed(2),
				Total:       order.Total.StringFixed(2),
				Lines:       eventLines(order.Items),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order created event")
		}

		if err := s.cartRepo.WithTx(tx).ClearItems(ctx, info.Cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}

		for _, item := range order.Items {
			if err := holds.Release(ctx, userID, item.ProductID); err != nil {
				return err
			}
			released = true
		}
		return nil
	})
	if err != nil {
		if released {
			s.warn(ctx, order, "checkout rolled back after holds were released; shopper must reserve again", err)
		}
		return nil, err
	}
	return FromModel(order), nil
}

// lockUnchangedCart takes the cart row lock and confirms the lines still match the
// reconciled view the order is built from.
func lockUnchangedCart(ctx context.Context, repo *cart.Repository, userID uuid.UUID, view *cart.CartDTO) error {
	changed := pkgerrors.New(pkgerrors.CodeStateConflict, "cart changed during checkout; review it and retry")
	record, err := repo.FindForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return changed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	if len(record.Items) != len(view.Items) {
		return changed
	}
	for i, item := range record.Items {
		if item.ProductID != view.Items[i].ProductID || item.Quantity != view.Items[i].Quantity {
			return changed
		}
	}
	return nil
}

// checkHold confirms the shopper still holds at least the ordered quantity.
func checkHold(ctx context.Context, holds reservation.Store, userID uuid.UUID, item models.OrderItem) error {
	hold, err := holds.FindOne(ctx, userID, item.ProductID)
	if err != nil {
		return err
	}
	if hold == nil || hold.Quantity < item.Quantity {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation expired during checkout; review the cart and retry").
			WithDetails(map[string]any{"product_id": item.ProductID.String()})
	}
	return nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if !actor.isAdmin() && order.UserID != actor.UserID {
		return nil, pkgerrors.NotFound("order")
	}
	return FromModel(order), nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params ListParams) (*pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, cursor, params.Limit, params.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	page := pagination.Build(dtos, params.Limit, func(o OrderDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return &page, nil
}

// UpdateStatus moves the order forward along the lifecycle. Cancellation goes through
// Cancel so stock is restored.
func (s *service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if status == enums.OrderStatusCancelled {
		return s.Cancel(ctx, actor, id, "")
	}
	if !actor.isAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can advance orders")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		order, err := txRepo.FindForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		if !order.Status.CanTransitionTo(status) {
			return invalidTransition(order.Status, status)
		}

		now := s.now().UTC()
		updates := map[string]any{"status": status}
		if status == enums.OrderStatusConfirmed {
			updates["confirmed_at"] = now
			order.ConfirmedAt = &now
		}
		if err := s.applyStatus(ctx, txRepo, order, updates); err != nil {
			return err
		}

		previous := order.Status
		order.Status = status
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        previous,
				To:          status,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue status event")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

// Cancel cancels the order and returns its units to stock. Shoppers may cancel their own
// orders until processing starts.
func (s *service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*OrderDTO, error) {
	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.cancelTx(ctx, tx, actor, id, strings.TrimSpace(reason))
		cancelled = order
		return err
	})
	if err != nil {
		return nil, err
	}
	return FromModel(cancelled), nil
}

func (s *service) cancelTx(ctx context.Context, tx *gorm.DB, actor Actor, id uuid.UUID, reason string) (*models.Order, error) {
	txRepo := s.repo.WithTx(tx)
	order, err := txRepo.FindForUpdate(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	if !actor.isAdmin() {
		if order.UserID != actor.UserID {
			return nil, pkgerrors.NotFound("order")
		}
		if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order can no longer be cancelled by the customer")
		}
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
		return nil, invalidTransition(order.Status, enums.OrderStatusCancelled)
	}

	for _, item := range order.Items {
		if err := s.ledger.Restore(ctx, tx, item.ProductID, item.Quantity); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
	}

	now := s.now().UTC()
	updates := map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	}
	if reason != "" {
		updates["cancellation_reason"] = reason
		order.CancellationReason = &reason
	}
	if err := s.applyStatus(ctx, txRepo, order, updates); err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		OccurredAt:    now,
		Data: payloads.OrderCancelledEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			PreviousState: previous,
			Reason:        reason,
			RestoredLines: eventLines(order.Items),
		},
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue cancel event")
	}
	return order, nil
}

// CancelStalePending cancels PENDING orders created before cutoff. Each order commits on
// its own; an order that moved on meanwhile is skipped.
func (s *service) CancelStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.repo.FindPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}

	var (
		cancelled int
		errs      error
	)
	for _, order := range stale {
		_, err := s.Cancel(ctx, SystemActor, order.ID, pendingTimeoutReason)
		switch {
		case err == nil:
			cancelled++
		case pkgerrors.Is(err, pkgerrors.CodeInvalidStatus), pkgerrors.Is(err, pkgerrors.CodeStateConflict):
		default:
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
		}
	}
	return cancelled, errs
}

func (s *service) applyStatus(ctx context.Context, repo *Repository, order *models.Order, updates map[string]any) error {
	ok, err := repo.UpdateStatus(ctx, order.ID, order.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	return nil
}

func (s *service) warn(ctx context.Context, order *models.Order, msg string, err error) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"user_id":  order.UserID.String(),
		"error":    err.Error(),
	})
	s.logg.Warn(logCtx, msg)
}

func buildOrder(userID uuid.UUID, view *cart.CartDTO, address *types.Address, notes *string, now time.Time) *models.Order {
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		Currency:        enums.DefaultCurrency,
		Subtotal:        decimal.Zero,
		DiscountTotal:   decimal.Zero,
		Total:           decimal.Zero,
		ShippingAddress: address,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range view.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		line := item.DiscountedPrice.Mul(qty).Round(2)
		order.Items = append(order.Items, models.OrderItem{
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.DiscountedPrice,
			Discount:    item.Discount,
			Quantity:    item.Quantity,
			LineTotal:   line,
		})
		order.Subtotal = order.Subtotal.Add(item.OriginalPrice.Mul(qty))
		order.Total = order.Total.Add(line)
	}
	order.Subtotal = order.Subtotal.Round(2)
	order.DiscountTotal = order.Subtotal.Sub(order.Total)
	return order
}

func eventLines(items []models.OrderItem) []payloads.OrderLine {
	lines := make([]payloads.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal.StringFixed(2),
		})
	}
	return lines
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidStatus, fmt.Sprintf("cannot move order from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from, "to": to})
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound("order")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
