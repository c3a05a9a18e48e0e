package payloads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
)

// OrderLine is the purchased-line summary carried by order events.
type OrderLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
}

// OrderCreatedEvent is emitted when checkout commits an order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID      `json:"order_id"`
	OrderNumber string         `json:"order_number"`
	UserID      uuid.UUID      `json:"user_id"`
	Currency    enums.Currency `json:"currency"`
	Subtotal    string         `json:"subtotal"`
	Discount    string         `json:"discount"`
	Total       string         `json:"total"`
	Lines       []OrderLine    `json:"lines"`
}

// OrderStatusChangedEvent is emitted on every forward status transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

// OrderCancelledEvent is emitted when an order is cancelled and its stock restored.
type OrderCancelledEvent struct {
	OrderID       uuid.UUID         `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	PreviousState enums.OrderStatus `json:"previous_state"`
	Reason        string            `json:"reason,omitempty"`
	RestoredLines []OrderLine       `json:"restored_lines"`
}

// ProductStatusChangedEvent is emitted when a product is blocked, deactivated or reactivated.
type ProductStatusChangedEvent struct {
	ProductID     uuid.UUID           `json:"product_id"`
	ProductNumber string              `json:"product_number"`
	From          enums.ProductStatus `json:"from"`
	To            enums.ProductStatus `json:"to"`
}
