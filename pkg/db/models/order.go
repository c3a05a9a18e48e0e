package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	"github.com/angelmondragon/shopeazy-backend/pkg/types"
)

// Order is a placed checkout; stock for its items was decremented when it was created.
type Order struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber        string            `gorm:"column:order_number;type:text;not null;uniqueIndex"`
	UserID             uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status             enums.OrderStatus `gorm:"column:status;type:text;not null;index"`
	Currency           enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	Subtotal           decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal      decimal.Decimal   `gorm:"column:discount_total;type:numeric(12,2);not null"`
	Total              decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingAddress    *types.Address    `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Notes              *string           `gorm:"column:notes"`
	CancellationReason *string           `gorm:"column:cancellation_reason"`
	ConfirmedAt        *time.Time        `gorm:"column:confirmed_at"`
	CancelledAt        *time.Time        `gorm:"column:cancelled_at"`
	Items              []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is an immutable purchased line.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Discount    decimal.Decimal `gorm:"column:discount;type:numeric(5,2);not null;default:0"`
	Quantity    int             `gorm:"column:quantity;not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
