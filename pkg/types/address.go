package types

import (
	"fmt"
	"strings"
)

// Address is the shipping destination stored on an order.
type Address struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country"`
}

// Normalize trims every field and defaults the country to US.
func (a Address) Normalize() Address {
	out := Address{
		Line1:      strings.TrimSpace(a.Line1),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if a.Line2 != nil {
		if line2 := strings.TrimSpace(*a.Line2); line2 != "" {
			out.Line2 = &line2
		}
	}
	if out.Country == "" {
		out.Country = "US"
	}
	return out
}

// Validate reports the first missing required field.
func (a Address) Validate() error {
	switch {
	case a.Line1 == "":
		return fmt.Errorf("address: missing line1")
	case a.City == "":
		return fmt.Errorf("address: missing city")
	case a.State == "":
		return fmt.Errorf("address: missing state")
	case a.PostalCode == "":
		return fmt.Errorf("address: missing postal_code")
	}
	return nil
}
