package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryReservation is the relational form of a cart hold, one row per (user, product).
type InventoryReservation struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey;index"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
}

func (InventoryReservation) TableName() string {
	return "inventory_reservations"
}
