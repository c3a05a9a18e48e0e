package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	"github.com/angelmondragon/shopeazy-backend/pkg/pagination"
	"github.com/angelmondragon/shopeazy-backend/pkg/types"
)

// OrderItemDTO is one purchased line.
type OrderItemDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID                 uuid.UUID         `json:"id"`
	OrderNumber        string            `json:"order_number"`
	UserID             uuid.UUID         `json:"user_id"`
	Status             enums.OrderStatus `json:"status"`
	Currency           enums.Currency    `json:"currency"`
	Subtotal           decimal.Decimal   `json:"subtotal"`
	DiscountTotal      decimal.Decimal   `json:"discount_total"`
	Total              decimal.Decimal   `json:"total"`
	ShippingAddress    *types.Address    `json:"shipping_address,omitempty"`
	Notes              *string           `json:"notes,omitempty"`
	CancellationReason *string           `json:"cancellation_reason,omitempty"`
	ConfirmedAt        *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	Items              []OrderItemDTO    `json:"items"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// PlaceOrderInput carries the optional checkout details.
type PlaceOrderInput struct {
	ShippingAddress *types.Address
	Notes           *string
}

// ListParams filters a user's order history.
type ListParams struct {
	pagination.Params
	Status *enums.OrderStatus
}

// Actor is the authenticated caller acting on an order.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// SystemActor performs scheduled transitions.
var SystemActor = Actor{Role: enums.UserRoleAdmin}

func (a Actor) isAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	out := &OrderDTO{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		UserID:             o.UserID,
		Status:             o.Status,
		Currency:           o.Currency,
		Subtotal:           o.Subtotal,
		DiscountTotal:      o.DiscountTotal,
		Total:              o.Total,
		ShippingAddress:    o.ShippingAddress,
		Notes:              o.Notes,
		CancellationReason: o.CancellationReason,
		ConfirmedAt:        o.ConfirmedAt,
		CancelledAt:        o.CancelledAt,
		Items:              make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal,
		})
	}
	return out
}
