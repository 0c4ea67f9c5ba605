package crm

import (
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// DefaultCurrency is used when a record does not name one
const DefaultCurrency = "USD"

// NormalizeCurrency canonicalizes a known ISO 4217 code, defaulting when empty
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", shared.NewDomainError("INVALID_CURRENCY", "Currency must be a known ISO 4217 code")
	}
	return unit.String(), nil
}

// RoundMoney rounds an amount to cents
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func validateNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", field+" cannot be negative")
	}
	return nil
}

func validateRequired(code, field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return shared.NewDomainError(code, field+" cannot be empty")
	}
	if len(value) > max {
		return shared.NewDomainError(code, field+" is too long")
	}
	return nil
}
