package products

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountedPrice applies a percent discount and rounds half-up to cents.
func DiscountedPrice(price, discountPercent decimal.Decimal) decimal.Decimal {
	if discountPercent.IsZero() {
		return price.Round(2)
	}
	off := price.Mul(discountPercent).Div(hundred)
	return price.Sub(off).Round(2)
}
