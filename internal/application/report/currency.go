package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Converter converts amounts into the base currency using static rates.
// Rates are units of base currency per one unit of the keyed currency.
type Converter struct {
	base  string
	rates map[string]decimal.Decimal
}

// NewConverter creates a converter for the base currency
func NewConverter(base string, rates map[string]decimal.Decimal) *Converter {
	normalized := make(map[string]decimal.Decimal, len(rates))
	for code, rate := range rates {
		if rate.IsPositive() {
			normalized[strings.ToUpper(code)] = rate
		}
	}
	return &Converter{base: strings.ToUpper(base), rates: normalized}
}

// Base returns the reporting currency
func (c *Converter) Base() string {
	return c.base
}

// Convert returns the amount in the base currency. ok is false when no
// rate is known for the currency.
func (c *Converter) Convert(amount decimal.Decimal, currency string) (decimal.Decimal, bool) {
	currency = strings.ToUpper(currency)
	if currency == c.base {
		return amount, true
	}
	rate, ok := c.rates[currency]
	if !ok {
		return decimal.Zero, false
	}
	return amount.Mul(rate), true
}
