// Package datascope turns an access scope into row-level predicates on GORM queries.
//
// Each entity declares its Ownership: the columns that hold a user ID directly
// and the link columns whose target row carries the owner. For a restricted
// scope S, Apply adds one grouped clause
//
//	(t.col1 IN S OR t.col2 IN S OR t.link_id IN (SELECT id FROM other WHERE owner IN S))
//
// and leaves the query untouched for an unrestricted scope.
//
// Usage:
//
//	query := datascope.Apply(db.Model(&models.TaskModel{}), scope, datascope.Tasks)
//	query.Find(&tasks)
package datascope

import (
	"fmt"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Link is an ownership path through a foreign key
type Link struct {
	Column      string // Foreign key column on the scoped table
	Table       string // Referenced table
	OwnerColumn string // Owner column on the referenced table
}

// Ownership describes which columns make a row visible
type Ownership struct {
	Table   string
	Columns []string
	Links   []Link
}

// Ownership maps of the CRM tables
var (
	Users = Ownership{Table: "users", Columns: []string{"id"}}

	Leads = Ownership{Table: "leads", Columns: []string{"assigned_to", "created_by"}}

	Deals = Ownership{Table: "deals", Columns: []string{"assigned_to", "created_by"}}

	Tasks = Ownership{
		Table:   "tasks",
		Columns: []string{"assigned_to", "created_by"},
		Links: []Link{
			{Column: "lead_id", Table: "leads", OwnerColumn: "assigned_to"},
			{Column: "deal_id", Table: "deals", OwnerColumn: "assigned_to"},
		},
	}

	Expenses = Ownership{Table: "expenses", Columns: []string{"submitted_by"}}

	Invoices = Ownership{
		Table:   "invoices",
		Columns: []string{"created_by"},
		Links:   []Link{{Column: "deal_id", Table: "deals", OwnerColumn: "assigned_to"}},
	}

	Quotations = Ownership{
		Table:   "quotations",
		Columns: []string{"created_by"},
		Links:   []Link{{Column: "deal_id", Table: "deals", OwnerColumn: "assigned_to"}},
	}

	Notes = Ownership{
		Table:   "notes",
		Columns: []string{"created_by"},
		Links:   []Link{{Column: "lead_id", Table: "leads", OwnerColumn: "assigned_to"}},
	}
)

// Apply restricts the query to rows visible within the scope
func Apply(db *gorm.DB, scope identity.AccessScope, o Ownership) *gorm.DB {
	if scope.IsUnrestricted() {
		return db
	}
	ids := scope.UserIDs()
	if len(ids) == 0 {
		return db.Where("1 = 0")
	}

	exprs := o.predicates(ids)
	if len(exprs) == 0 {
		return db.Where("1 = 0")
	}
	// A single-element OR group would be joined with OR to the preceding conditions
	if len(exprs) == 1 {
		return db.Where(exprs[0])
	}
	return db.Where(clause.Or(exprs...))
}

// Scope returns Apply as a GORM scope function for db.Scopes
func Scope(scope identity.AccessScope, o Ownership) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Apply(db, scope, o)
	}
}

// CanSee reports whether a record owned by any of the given users is visible.
// Nil owners are ignored.
func CanSee(scope identity.AccessScope, owners ...uuid.UUID) bool {
	if scope.IsUnrestricted() {
		return true
	}
	for _, owner := range owners {
		if owner != uuid.Nil && scope.Contains(owner) {
			return true
		}
	}
	return false
}

func (o Ownership) predicates(ids []uuid.UUID) []clause.Expression {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	exprs := make([]clause.Expression, 0, len(o.Columns)+len(o.Links))
	for _, col := range o.Columns {
		exprs = append(exprs, clause.IN{
			Column: clause.Column{Table: o.Table, Name: col},
			Values: values,
		})
	}
	for _, link := range o.Links {
		exprs = append(exprs, clause.Expr{
			SQL: fmt.Sprintf("%s.%s IN (SELECT id FROM %s WHERE %s IN ? AND deleted_at IS NULL)",
				o.Table, link.Column, link.Table, link.OwnerColumn),
			Vars: []any{ids},
		})
	}
	return exprs
}
