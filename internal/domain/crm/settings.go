package crm

import (
	"strings"

	"github.com/crm/backend/internal/domain/shared"
)

// BusinessSettings holds the company profile printed on documents
type BusinessSettings struct {
	shared.BaseEntity
	CompanyName     string
	Address         string
	Email           string
	Phone           string
	TaxID           string
	BaseCurrency    string
	InvoicePrefix   string
	QuotationPrefix string
}

// DefaultBusinessSettings returns the settings used before an admin saved any
func DefaultBusinessSettings() *BusinessSettings {
	return &BusinessSettings{
		BaseEntity:      shared.NewBaseEntity(),
		CompanyName:     "My Company",
		BaseCurrency:    DefaultCurrency,
		InvoicePrefix:   "INV-",
		QuotationPrefix: "QUO-",
	}
}

// Update validates and applies new settings
func (s *BusinessSettings) Update(companyName, address, email, phone, taxID, baseCurrency, invoicePrefix, quotationPrefix string) error {
	if err := validateRequired("INVALID_COMPANY_NAME", "Company name", companyName, 200); err != nil {
		return err
	}
	code, err := NormalizeCurrency(baseCurrency)
	if err != nil {
		return err
	}
	if len(invoicePrefix) > 10 || len(quotationPrefix) > 10 {
		return shared.NewDomainError("INVALID_PREFIX", "Document prefixes cannot exceed 10 characters")
	}
	s.CompanyName = strings.TrimSpace(companyName)
	s.Address = strings.TrimSpace(address)
	s.Email = strings.ToLower(strings.TrimSpace(email))
	s.Phone = strings.TrimSpace(phone)
	s.TaxID = strings.TrimSpace(taxID)
	s.BaseCurrency = code
	s.InvoicePrefix = strings.TrimSpace(invoicePrefix)
	s.QuotationPrefix = strings.TrimSpace(quotationPrefix)
	s.Touch()
	return nil
}
