package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartItem persists the product snapshot taken when the line was reserved.
type CartItem struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index"`
	Position           int             `gorm:"column:position;not null"`
	ProductID          uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName        string          `gorm:"column:product_name;not null"`
	ProductDescription string          `gorm:"column:product_description;not null;default:''"`
	OriginalPrice      decimal.Decimal `gorm:"column:original_price;type:numeric(12,2);not null"`
	Discount           decimal.Decimal `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	DiscountedPrice    decimal.Decimal `gorm:"column:discounted_price;type:numeric(12,2);not null"`
	Quantity           int             `gorm:"column:quantity;not null"`
}

func (c *CartItem) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
