package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
)

// Product is the catalog entry; StockCount is the authoritative stock ledger field.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SellerID      uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductNumber string              `gorm:"column:product_number;type:text;not null;uniqueIndex"`
	Name          string              `gorm:"column:name;not null"`
	Description   string              `gorm:"column:description;not null;default:''"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null"`
	Discount      decimal.Decimal     `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	StockCount    int                 `gorm:"column:stock_count;not null;default:0;check:stock_count >= 0"`
	Status        enums.ProductStatus `gorm:"column:status;type:text;not null;default:'ACTIVE'"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
