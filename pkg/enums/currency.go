package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code. Every supported currency uses two minor units.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// DefaultCurrency is stamped on orders whose line items carry no currency of their own.
const DefaultCurrency = CurrencyUSD

var currencySymbols = map[Currency]string{
	CurrencyUSD: "$",
	CurrencyEUR: "€",
	CurrencyGBP: "£",
}

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool {
	_, ok := currencySymbols[c]
	return ok
}

// Symbol returns the display prefix, or the code itself for unknown currencies.
func (c Currency) Symbol() string {
	if symbol, ok := currencySymbols[c]; ok {
		return symbol
	}
	return string(c)
}

// ParseCurrency accepts codes in any case.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency %q", value)
	}
	return c, nil
}
