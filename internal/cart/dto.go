package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
)

// CartItemDTO is a cart line with its product snapshot.
type CartItemDTO struct {
	ProductID          uuid.UUID       `json:"product_id"`
	ProductName        string          `json:"product_name"`
	ProductDescription string          `json:"product_description"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	Discount           decimal.Decimal `json:"discount"`
	DiscountedPrice    decimal.Decimal `json:"discounted_price"`
	Quantity           int             `json:"quantity"`
	LineTotal          decimal.Decimal `json:"line_total"`
}

// CartDTO is the cart view returned by every cart operation.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Items     []CartItemDTO   `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// RemovedProduct reports a line dropped by reconciliation.
type RemovedProduct struct {
	ProductID   uuid.UUID               `json:"product_id"`
	ProductName string                  `json:"product_name"`
	Quantity    int                     `json:"quantity"`
	Reason      enums.CartRemovalReason `json:"reason"`
}

// AdjustedProduct reports a line clamped down to its reserved quantity.
type AdjustedProduct struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	From        int       `json:"from"`
	To          int       `json:"to"`
}

// UpdatedCartInfo is the reconciled cart plus what reconciliation changed.
type UpdatedCartInfo struct {
	Cart             *CartDTO          `json:"cart"`
	RemovedProducts  []RemovedProduct  `json:"removed_products"`
	AdjustedProducts []AdjustedProduct `json:"adjusted_products"`
}

// Changed reports whether reconciliation dropped or clamped anything.
func (u *UpdatedCartInfo) Changed() bool {
	return len(u.RemovedProducts) > 0 || len(u.AdjustedProducts) > 0
}

// FromModel maps a cart record and computes its totals.
func FromModel(record *models.CartRecord) *CartDTO {
	if record == nil {
		return nil
	}
	out := &CartDTO{
		ID:        record.ID,
		UserID:    record.UserID,
		Items:     make([]CartItemDTO, 0, len(record.Items)),
		Subtotal:  decimal.Zero,
		Total:     decimal.Zero,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	for _, item := range record.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		line := item.DiscountedPrice.Mul(qty)
		out.Items = append(out.Items, CartItemDTO{
			ProductID:          item.ProductID,
			ProductName:        item.ProductName,
			ProductDescription: item.ProductDescription,
			OriginalPrice:      item.OriginalPrice,
			Discount:           item.Discount,
			DiscountedPrice:    item.DiscountedPrice,
			Quantity:           item.Quantity,
			LineTotal:          line,
		})
		out.ItemCount += item.Quantity
		out.Subtotal = out.Subtotal.Add(item.OriginalPrice.Mul(qty))
		out.Total = out.Total.Add(line)
	}
	out.Discount = out.Subtotal.Sub(out.Total)
	return out
}

func emptyCart(userID uuid.UUID) *CartDTO {
	return &CartDTO{
		UserID:   userID,
		Items:    []CartItemDTO{},
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}
}
