// Package inventory owns the authoritative stock count on products.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

// Ledger mutates products.stock_count with conditional updates only.
type Ledger struct {
	db *gorm.DB
}

// NewLedger builds a ledger bound to the provided DB.
func NewLedger(db *gorm.DB) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return l.db.WithContext(ctx)
}

// StockCount returns the current stock for a product.
func (l *Ledger) StockCount(ctx context.Context, productID uuid.UUID) (int, error) {
	var product models.Product
	err := l.db.WithContext(ctx).
		Select("id", "stock_count").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.NotFound("product")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock count")
	}
	return product.StockCount, nil
}

// Decrement removes qty units only when enough stock remains. The guard lives in the
// UPDATE itself so concurrent checkouts can never drive the count negative.
func (l *Ledger) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.conn(ctx, tx).
		Model(&models.Product{}).
		Where("id = ? AND stock_count >= ?", productID, qty).
		UpdateColumn("stock_count", gorm.Expr("stock_count - ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	exists, err := l.exists(ctx, tx, productID)
	if err != nil {
		return err
	}
	if !exists {
		return pkgerrors.NotFound("product")
	}
	return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
		WithDetails(map[string]any{"product_id": productID.String(), "requested": qty})
}

// Restore puts qty units back, used when an order is cancelled.
func (l *Ledger) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	res := l.conn(ctx, tx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_count", gorm.Expr("stock_count + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.NotFound("product")
	}
	return nil
}

// Set overwrites the stock count. Catalog updates come through here.
func (l *Ledger) Set(ctx context.Context, tx *gorm.DB, productID uuid.UUID, stock int) error {
	if stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock count cannot be negative")
	}

	res := l.conn(ctx, tx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_count", stock)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "set stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.NotFound("product")
	}
	return nil
}

// LockForUpdate loads the product row with a row lock held until tx ends. SQLite has no
// row locks; its single writer gives the same serialization.
func (l *Ledger) LockForUpdate(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}

	var product models.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
	}
	return &product, nil
}

func (l *Ledger) exists(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (bool, error) {
	var count int64
	if err := l.conn(ctx, tx).Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	return count > 0, nil
}
