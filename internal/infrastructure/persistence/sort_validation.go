package persistence

import (
	"errors"
	"strings"

	"github.com/crm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// UserSortFields contains allowed sort fields for users
var UserSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"username":      true,
	"email":         true,
	"display_name":  true,
	"status":        true,
	"last_login_at": true,
}

// RoleSortFields contains allowed sort fields for roles
var RoleSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"tier":       true,
}

// LeadSortFields contains allowed sort fields for leads
var LeadSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"name":            true,
	"company":         true,
	"status":          true,
	"source":          true,
	"estimated_value": true,
}

// DealSortFields contains allowed sort fields for deals
var DealSortFields = map[string]bool{
	"id":                  true,
	"created_at":          true,
	"updated_at":          true,
	"title":               true,
	"stage":               true,
	"value":               true,
	"expected_close_date": true,
	"closed_at":           true,
}

// TaskSortFields contains allowed sort fields for tasks
var TaskSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"due_at":     true,
	"priority":   true,
	"status":     true,
}

// ExpenseSortFields contains allowed sort fields for expenses
var ExpenseSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"title":       true,
	"category":    true,
	"amount":      true,
	"incurred_on": true,
	"status":      true,
}

// DocumentSortFields contains allowed sort fields for invoices and quotations
var DocumentSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"number":        true,
	"customer_name": true,
	"issue_date":    true,
	"total":         true,
	"status":        true,
}

// NoteSortFields contains allowed sort fields for notes and notifications
var NoteSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// paginate applies whitelisted ordering and paging. The order column is
// qualified with the table name so joined queries stay unambiguous.
func paginate(query *gorm.DB, table string, filter shared.Filter, allowed map[string]bool) *gorm.DB {
	filter = filter.Normalize()
	field := ValidateSortField(filter.OrderBy, allowed, "created_at")
	return query.
		Order(table + "." + field + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
}

// searchPattern returns a lower-cased LIKE pattern for a keyword
func searchPattern(keyword string) string {
	return "%" + strings.ToLower(strings.TrimSpace(keyword)) + "%"
}

// escapeLike escapes the LIKE wildcards of s for use with ESCAPE '\'
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// translateError maps GORM's not-found and duplicate-key errors to domain errors
func translateError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return err
}
