package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/internal/cart"
	"github.com/angelmondragon/shopeazy-backend/internal/inventory"
	"github.com/angelmondragon/shopeazy-backend/internal/products"
	"github.com/angelmondragon/shopeazy-backend/internal/reservation"
	"github.com/angelmondragon/shopeazy-backend/internal/reservation/reservationtest"
	"github.com/angelmondragon/shopeazy-backend/internal/sequence"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/outbox"
	"github.com/angelmondragon/shopeazy-backend/pkg/pagination"
	"github.com/angelmondragon/shopeazy-backend/pkg/types"
)

const holdTTL = 15 * time.Minute

type fixture struct {
	svc    Service
	cart   cart.Service
	conn   *gorm.DB
	ledger *inventory.Ledger
	issuer sequence.Issuer
	env    *reservationtest.Env
	holds  reservation.Store
}

type fixtureOptions struct {
	sqlHolds bool
	wrap     func(reservation.Store) reservation.Store
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, fixtureOptions{})
}

func newFixtureWith(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.Wrap(conn)
	ledger, err := inventory.NewLedger(conn)
	require.NoError(t, err)
	issuer, err := sequence.NewIssuer(conn)
	require.NoError(t, err)
	env := reservationtest.Redis(t, ledger)

	var holds reservation.Store = env.Store
	if opts.sqlHolds {
		holds, err = reservation.NewSQLStore(reservation.SQLStoreParams{DB: conn, Tx: client, Locker: ledger, Clock: env.Clock.Now})
		require.NoError(t, err)
	}
	orderHolds := holds
	if opts.wrap != nil {
		orderHolds = opts.wrap(holds)
	}

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:         cartRepo,
		Tx:           client,
		Products:     products.NewRepository(conn),
		Reservations: holds,
		TTL:          holdTTL,
		Now:          env.Clock.Now,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:         NewRepository(conn),
		Tx:           client,
		Cart:         cartSvc,
		CartRepo:     cartRepo,
		Issuer:       issuer,
		Ledger:       ledger,
		Reservations: orderHolds,
		Outbox:       outbox.NewService(outbox.NewRepository(conn), nil),
		Now:          env.Clock.Now,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, cart: cartSvc, conn: conn, ledger: ledger, issuer: issuer, env: env, holds: holds}
}

// failingRelease refuses every release.
type failingRelease struct {
	reservation.Store
}

func (failingRelease) Release(context.Context, uuid.UUID, uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeDependency, "reservation backend unavailable")
}

// lapsedHolds reports every hold as gone on a point lookup.
type lapsedHolds struct {
	reservation.Store
}

func (lapsedHolds) FindOne(context.Context, uuid.UUID, uuid.UUID) (*reservation.Reservation, error) {
	return nil, nil
}

func (f *fixture) add(t *testing.T, user, product uuid.UUID, qty int) {
	t.Helper()
	_, err := f.cart.AddOrUpdate(context.Background(), user, product, qty)
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, product uuid.UUID) int {
	t.Helper()
	count, err := f.ledger.StockCount(context.Background(), product)
	require.NoError(t, err)
	return count
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Count(&n).Error)
	return n
}

func TestPlaceOrderConvertsReservationsIntoStockDecrement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	shoe := dbtest.SeedProduct(t, f.conn, 5, dbtest.WithPrice("100.00", "10"))
	sock := dbtest.SeedProduct(t, f.conn, 10, dbtest.WithPrice("5.50", "0"))
	f.add(t, user, shoe.ID, 2)
	f.add(t, user, sock.ID, 3)

	order, err := f.svc.PlaceOrder(ctx, user, PlaceOrderInput{
		ShippingAddress: &types.Address{Line1: " 1 Main St ", City: "Springfield", State: "IL", PostalCode: "62701"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ORD-000001", order.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 2)
	assert.True(t, order.Subtotal.Equal(decimal.RequireFromString("216.50")), "subtotal %s", order.Subtotal)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("196.50")), "total %s", order.Total)
	assert.True(t, order.DiscountTotal.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, "1 Main St", order.ShippingAddress.Line1)

	assert.Equal(t, 3, f.stock(t, shoe.ID))
	assert.Equal(t, 7, f.stock(t, sock.ID))

	holds, err := f.env.Store.FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, holds, "purchased holds are released")

	info, err := f.cart.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, info.Cart.Items)
	assert.NotEqual(t, uuid.Nil, info.Cart.ID)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("aggregate_id = ?", order.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCreated, events[0].EventType)
}

func TestPlaceOrderRejectsEmptyOrChangedCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	product := dbtest.SeedProduct(t, f.conn, 5)
	f.add(t, user, product.ID, 1)
	f.env.Advance(holdTTL + time.Minute)

	_, err = f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 5, f.stock(t, product.ID))

	_, err = f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "the pruned cart is now empty")

	_, err = f.svc.PlaceOrder(ctx, user, PlaceOrderInput{ShippingAddress: &types.Address{City: "x"}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestPlaceOrderCatchesExternalStockReduction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	first := dbtest.SeedProduct(t, f.conn, 5)
	second := dbtest.SeedProduct(t, f.conn, 5)
	f.add(t, user, first.ID, 2)
	f.add(t, user, second.ID, 3)
	require.NoError(t, f.ledger.Set(ctx, nil, second.ID, 1))

	info, err := f.cart.Get(ctx, user)
	require.NoError(t, err)
	assert.False(t, info.Changed(), "reconcile trusts the reservation")

	_, err = f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeOutOfStock))

	assert.Equal(t, 5, f.stock(t, first.ID), "earlier decrements roll back")
	assert.Equal(t, 1, f.stock(t, second.ID))
	assert.Zero(t, f.countRows(t, &models.Order{}))
	assert.Zero(t, f.countRows(t, &models.OutboxEvent{}))

	current, err := f.issuer.Current(ctx, enums.SequenceOrder)
	require.NoError(t, err)
	assert.Zero(t, current, "the order number rolls back with the order")

	info, err = f.cart.Get(ctx, user)
	require.NoError(t, err)
	assert.Len(t, info.Cart.Items, 2, "the cart survives a failed checkout")
}

func TestPlaceOrderRollsBackWhenReleaseFails(t *testing.T) {
	f := newFixtureWith(t, fixtureOptions{wrap: func(store reservation.Store) reservation.Store {
		return failingRelease{Store: store}
	}})
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	product := dbtest.SeedProduct(t, f.conn, 3)
	f.add(t, alice, product.ID, 1)

	_, err := f.svc.PlaceOrder(ctx, alice, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))

	assert.Equal(t, 3, f.stock(t, product.ID), "the decrement rolls back with the failed release")
	assert.Zero(t, f.countRows(t, &models.Order{}))
	assert.Zero(t, f.countRows(t, &models.OutboxEvent{}))

	available, err := f.holds.Available(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, available, "sold units are never counted twice")

	f.add(t, bob, product.ID, 2)

	info, err := f.cart.Get(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, info.Cart.Items, 1, "the cart survives a failed checkout")
}

func TestPlaceOrderRejectsHoldLapsedDuringCheckout(t *testing.T) {
	f := newFixtureWith(t, fixtureOptions{wrap: func(store reservation.Store) reservation.Store {
		return lapsedHolds{Store: store}
	}})
	ctx := context.Background()
	user := uuid.New()
	product := dbtest.SeedProduct(t, f.conn, 4)
	f.add(t, user, product.ID, 2)

	_, err := f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 4, f.stock(t, product.ID))
	assert.Zero(t, f.countRows(t, &models.Order{}))
}

func TestPlaceOrderWithDatabaseHolds(t *testing.T) {
	f := newFixtureWith(t, fixtureOptions{sqlHolds: true})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	user := uuid.New()
	product := dbtest.SeedProduct(t, f.conn, 5)
	f.add(t, user, product.ID, 2)

	order, err := f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)

	assert.Equal(t, 3, f.stock(t, product.ID))
	assert.Zero(t, f.countRows(t, &models.InventoryReservation{}), "holds are released in the order transaction")

	available, err := f.holds.Available(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, available)
}

func TestOrderLifecycleTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	customer := Actor{UserID: user, Role: enums.UserRoleCustomer}
	product := dbtest.SeedProduct(t, f.conn, 5)
	f.add(t, user, product.ID, 1)

	order, err := f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, customer, order.ID, enums.OrderStatusConfirmed)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatusShipped)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidStatus))

	path := []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
		enums.OrderStatusCompleted,
	}
	for _, next := range path {
		updated, err := f.svc.UpdateStatus(ctx, admin, order.ID, next)
		require.NoError(t, err, "transition to %s", next)
		assert.Equal(t, next, updated.Status)
	}

	loaded, err := f.svc.GetOrder(ctx, customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, loaded.Status)
	assert.NotNil(t, loaded.ConfirmedAt)

	_, err = f.svc.Cancel(ctx, admin, order.ID, "too late")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidStatus))

	var changes int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderStatusChanged).
		Count(&changes).Error)
	assert.Equal(t, int64(len(path)), changes)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	customer := Actor{UserID: user, Role: enums.UserRoleCustomer}
	stranger := Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	product := dbtest.SeedProduct(t, f.conn, 5)
	f.add(t, user, product.ID, 2)

	order, err := f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t, product.ID))

	_, err = f.svc.Cancel(ctx, stranger, order.ID, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = f.svc.GetOrder(ctx, stranger, order.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	cancelled, err := f.svc.Cancel(ctx, customer, order.ID, " changed my mind ")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "changed my mind", *cancelled.CancellationReason)
	assert.Equal(t, 5, f.stock(t, product.ID))

	_, err = f.svc.Cancel(ctx, customer, order.ID, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidStatus), "cancel is not repeatable")
	assert.Equal(t, 5, f.stock(t, product.ID))
}

func TestCustomerCannotCancelOnceProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	product := dbtest.SeedProduct(t, f.conn, 5)
	f.add(t, user, product.ID, 1)

	order, err := f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, Actor{UserID: user, Role: enums.UserRoleCustomer}, order.ID, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = f.svc.UpdateStatus(ctx, admin, order.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, product.ID))
}

func TestCancelStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	product := dbtest.SeedProduct(t, f.conn, 10)

	staleUser, confirmedUser, freshUser := uuid.New(), uuid.New(), uuid.New()
	f.add(t, staleUser, product.ID, 2)
	stale, err := f.svc.PlaceOrder(ctx, staleUser, PlaceOrderInput{})
	require.NoError(t, err)

	f.add(t, confirmedUser, product.ID, 1)
	confirmed, err := f.svc.PlaceOrder(ctx, confirmedUser, PlaceOrderInput{})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, admin, confirmed.ID, enums.OrderStatusConfirmed)
	require.NoError(t, err)

	f.env.Advance(2 * time.Hour)
	f.add(t, freshUser, product.ID, 1)
	_, err = f.svc.PlaceOrder(ctx, freshUser, PlaceOrderInput{})
	require.NoError(t, err)
	require.Equal(t, 6, f.stock(t, product.ID))

	cutoff := f.env.Clock.Now().Add(-time.Hour)
	n, err := f.svc.CancelStalePending(ctx, cutoff, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 8, f.stock(t, product.ID))

	reloaded, err := f.svc.GetOrder(ctx, admin, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)

	n, err = f.svc.CancelStalePending(ctx, cutoff, 50)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListOrdersPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := uuid.New()
	product := dbtest.SeedProduct(t, f.conn, 10)

	var placed []uuid.UUID
	for i := 0; i < 3; i++ {
		f.add(t, user, product.ID, 1)
		order, err := f.svc.PlaceOrder(ctx, user, PlaceOrderInput{})
		require.NoError(t, err)
		placed = append(placed, order.ID)
		f.env.Advance(time.Minute)
	}

	page, err := f.svc.ListOrders(ctx, user, ListParams{Params: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, placed[2], page.Items[0].ID)
	assert.Equal(t, placed[1], page.Items[1].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := f.svc.ListOrders(ctx, user, ListParams{Params: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, placed[0], next.Items[0].ID)
	assert.Empty(t, next.NextCursor)

	other, err := f.svc.ListOrders(ctx, uuid.New(), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, other.Items)

	_, err = f.svc.ListOrders(ctx, user, ListParams{Params: pagination.Params{Cursor: "!!"}})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
