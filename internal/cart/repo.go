package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
)

// Repository persists the per-user cart aggregate. Items are always written as a whole.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByUser loads the user's cart with items in display order.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	return r.find(r.db.WithContext(ctx), userID)
}

// FindForUpdate loads the cart like FindByUser and holds its row lock until the transaction
// ends. Callers run it inside a transaction.
func (r *Repository) FindForUpdate(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

// LockOrCreate returns the locked cart, creating the empty shell on first use.
func (r *Repository) LockOrCreate(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	record, err := r.FindForUpdate(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	shell := &models.CartRecord{UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(shell).Error; err != nil {
		return nil, err
	}
	return r.FindForUpdate(ctx, userID)
}

func (r *Repository) find(conn *gorm.DB, userID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := conn.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("user_id = ?", userID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ReplaceItems rewrites the item list and touches updated_at. Callers run it inside a
// transaction.
func (r *Repository) ReplaceItems(ctx context.Context, record *models.CartRecord) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("cart_id = ?", record.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	for i := range record.Items {
		record.Items[i].ID = uuid.Nil
		record.Items[i].CartID = record.ID
		record.Items[i].Position = i
	}
	if len(record.Items) > 0 {
		if err := conn.Create(&record.Items).Error; err != nil {
			return err
		}
	}
	record.UpdatedAt = time.Now().UTC()
	return conn.Model(&models.CartRecord{}).
		Where("id = ?", record.ID).
		UpdateColumn("updated_at", record.UpdatedAt).Error
}

// ClearItems empties the cart but keeps the shell.
func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return conn.Model(&models.CartRecord{}).
		Where("id = ?", cartID).
		UpdateColumn("updated_at", time.Now().UTC()).Error
}
