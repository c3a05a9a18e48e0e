package enums

import (
	"fmt"
	"strings"
)

// ProductStatus controls whether a product can be reserved and purchased.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusBlocked  ProductStatus = "BLOCKED"
	ProductStatusInactive ProductStatus = "INACTIVE"
)

var validProductStatuses = []ProductStatus{
	ProductStatusActive,
	ProductStatusBlocked,
	ProductStatusInactive,
}

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ProductStatus.
func (s ProductStatus) IsValid() bool {
	for _, candidate := range validProductStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPurchasable reports whether carts may hold the product.
func (s ProductStatus) IsPurchasable() bool {
	return s == ProductStatusActive
}

// ParseProductStatus converts raw input into a ProductStatus. Matching is case-insensitive.
func ParseProductStatus(value string) (ProductStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validProductStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product status %q", value)
}
