package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
)

// ProductDTO represents the product payload returned to clients.
type ProductDTO struct {
	ID              uuid.UUID           `json:"id"`
	SellerID        uuid.UUID           `json:"seller_id"`
	ProductNumber   string              `json:"product_number"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Price           decimal.Decimal     `json:"price"`
	Discount        decimal.Decimal     `json:"discount"`
	DiscountedPrice decimal.Decimal     `json:"discounted_price"`
	StockCount      int                 `json:"stock_count"`
	Status          enums.ProductStatus `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// AvailabilityDTO reports how much of the stock is held by live reservations.
type AvailabilityDTO struct {
	ProductID  uuid.UUID           `json:"product_id"`
	Status     enums.ProductStatus `json:"status"`
	StockCount int                 `json:"stock_count"`
	Reserved   int                 `json:"reserved"`
	Available  int                 `json:"available"`
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	StockCount  int
}

// Actor is the authenticated caller performing a product mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (a Actor) isAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// FromModel maps the persisted product to its transport shape.
func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}
	return &ProductDTO{
		ID:              p.ID,
		SellerID:        p.SellerID,
		ProductNumber:   p.ProductNumber,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		Discount:        p.Discount,
		DiscountedPrice: DiscountedPrice(p.Price, p.Discount),
		StockCount:      p.StockCount,
		Status:          p.Status,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
