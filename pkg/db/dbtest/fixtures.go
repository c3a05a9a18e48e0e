package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
)

// ProductOption tweaks a seeded product.
type ProductOption func(*models.Product)

// WithPrice sets price and discount percent.
func WithPrice(price, discount string) ProductOption {
	return func(p *models.Product) {
		p.Price = decimal.RequireFromString(price)
		p.Discount = decimal.RequireFromString(discount)
	}
}

// WithStatus overrides the ACTIVE default.
func WithStatus(status enums.ProductStatus) ProductOption {
	return func(p *models.Product) {
		p.Status = status
	}
}

// SeedProduct inserts an ACTIVE product with the given stock.
func SeedProduct(t testing.TB, conn *gorm.DB, stock int, opts ...ProductOption) *models.Product {
	t.Helper()

	product := &models.Product{
		SellerID:      uuid.New(),
		ProductNumber: uuid.NewString()[:8],
		Name:          "Trail Runner",
		Description:   "lightweight shoe",
		Price:         decimal.RequireFromString("100.00"),
		Discount:      decimal.Zero,
		StockCount:    stock,
		Status:        enums.ProductStatusActive,
	}
	for _, opt := range opts {
		opt(product)
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}
