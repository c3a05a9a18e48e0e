package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

// productLocker serializes reserve calls per product.
type productLocker interface {
	LockForUpdate(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SQLStore keeps reservations in the inventory_reservations table. The product row lock
// is the mutual exclusion scope for the stock check; expired rows are filtered on every
// read and deleted lazily.
type SQLStore struct {
	db     *gorm.DB
	tx     txRunner
	locker productLocker
	now    Clock
}

// SQLStoreParams wires a SQLStore.
type SQLStoreParams struct {
	DB     *gorm.DB
	Tx     txRunner
	Locker productLocker
	Clock  Clock
}

// NewSQLStore validates params and builds the store.
func NewSQLStore(params SQLStoreParams) (*SQLStore, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("product locker required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SQLStore{db: params.DB, tx: params.Tx, locker: params.Locker, now: clock}, nil
}

// WithTx scopes the store to an open transaction.
func (s *SQLStore) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return s
	}
	return &SQLStore{db: tx, tx: joinedTx{tx: tx}, locker: s.locker, now: s.now}
}

func (s *SQLStore) Reserve(ctx context.Context, userID, productID uuid.UUID, quantity int, ttl time.Duration) (*Reservation, error) {
	if err := validateReserve(userID, productID, quantity, ttl); err != nil {
		return nil, err
	}

	var out *Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.locker.LockForUpdate(ctx, tx, productID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if err := tx.Where("product_id = ? AND expires_at <= ?", productID, now).
			Delete(&models.InventoryReservation{}).Error; err != nil {
			return err
		}

		var held int64
		if err := tx.Model(&models.InventoryReservation{}).
			Select("COALESCE(SUM(quantity), 0)").
			Where("product_id = ? AND user_id <> ? AND expires_at > ?", productID, userID, now).
			Scan(&held).Error; err != nil {
			return err
		}

		available := product.StockCount - int(held)
		if available < 0 {
			available = 0
		}
		if quantity > available {
			return outOfStock(productID, quantity, available)
		}

		row := models.InventoryReservation{
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "created_at", "expires_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}

		out = toReservation(row)
		return nil
	})
	if err != nil {
		return nil, storeUnavailable(err, "reserve inventory")
	}
	return out, nil
}

func (s *SQLStore) Release(ctx context.Context, userID, productID uuid.UUID) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.InventoryReservation{}).Error
	if err != nil {
		return storeUnavailable(err, "release reservation")
	}
	return nil
}

func (s *SQLStore) ReleaseAll(ctx context.Context, userID uuid.UUID) (int, error) {
	var live int64
	if err := s.db.WithContext(ctx).
		Model(&models.InventoryReservation{}).
		Where("user_id = ? AND expires_at > ?", userID, s.now().UTC()).
		Count(&live).Error; err != nil {
		return 0, storeUnavailable(err, "count user reservations")
	}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.InventoryReservation{}).Error; err != nil {
		return 0, storeUnavailable(err, "release user reservations")
	}
	return int(live), nil
}

func (s *SQLStore) FindOne(ctx context.Context, userID, productID uuid.UUID) (*Reservation, error) {
	var rows []models.InventoryReservation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND expires_at > ?", userID, productID, s.now().UTC()).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, storeUnavailable(err, "load reservation")
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return toReservation(rows[0]), nil
}

func (s *SQLStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]Reservation, error) {
	return s.list(ctx, "user_id = ?", userID)
}

func (s *SQLStore) FindByProduct(ctx context.Context, productID uuid.UUID) ([]Reservation, error) {
	return s.list(ctx, "product_id = ?", productID)
}

func (s *SQLStore) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Select("id", "stock_count").Where("id = ?", productID).First(&product).Error; err != nil {
		return 0, storeUnavailable(notFoundOr(err), "read stock")
	}

	var held int64
	if err := s.db.WithContext(ctx).
		Model(&models.InventoryReservation{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ? AND expires_at > ?", productID, s.now().UTC()).
		Scan(&held).Error; err != nil {
		return 0, storeUnavailable(err, "sum reservations")
	}

	if available := product.StockCount - int(held); available > 0 {
		return available, nil
	}
	return 0, nil
}

func (s *SQLStore) PurgeExpired(ctx context.Context) (int, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now().UTC()).
		Delete(&models.InventoryReservation{})
	if res.Error != nil {
		return 0, storeUnavailable(res.Error, "purge reservations")
	}
	return int(res.RowsAffected), nil
}

func (s *SQLStore) list(ctx context.Context, cond string, id uuid.UUID) ([]Reservation, error) {
	var rows []models.InventoryReservation
	err := s.db.WithContext(ctx).
		Where(cond, id).
		Where("expires_at > ?", s.now().UTC()).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, storeUnavailable(err, "list reservations")
	}
	out := make([]Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, *toReservation(row))
	}
	return out, nil
}

func toReservation(row models.InventoryReservation) *Reservation {
	return &Reservation{
		UserID:    row.UserID,
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
		CreatedAt: row.CreatedAt.UTC(),
		ExpiresAt: row.ExpiresAt.UTC(),
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound("product")
	}
	return err
}
