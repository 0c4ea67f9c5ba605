package persistence

import (
	"errors"
	"testing"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestValidateSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", ValidateSortOrder(" asc "))
	assert.Equal(t, "ASC", ValidateSortOrder("ASC"))
	assert.Equal(t, "DESC", ValidateSortOrder(""))
	assert.Equal(t, "DESC", ValidateSortOrder("desc"))
	assert.Equal(t, "DESC", ValidateSortOrder("ASC; DROP TABLE leads;--"))
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "created_at"},
		{"estimated_value", "estimated_value"},
		{"  company  ", "company"},
		{"COMPANY", "created_at"},
		{"assigned_to", "created_at"},
		{"name; DROP TABLE leads;--", "created_at"},
		{"name, (SELECT password_hash FROM users)", "created_at"},
		{"CASE WHEN 1=1 THEN name ELSE company END", "created_at"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, LeadSortFields, "created_at"))
		})
	}
}

func TestSortFieldsAreColumns(t *testing.T) {
	// every whitelisted column must exist, or ORDER BY fails at runtime
	db := setupTestDB(t)
	tables := map[string]struct {
		model  any
		fields map[string]bool
	}{
		"users":      {&models.UserModel{}, UserSortFields},
		"roles":      {&models.RoleModel{}, RoleSortFields},
		"leads":      {&models.LeadModel{}, LeadSortFields},
		"deals":      {&models.DealModel{}, DealSortFields},
		"tasks":      {&models.TaskModel{}, TaskSortFields},
		"expenses":   {&models.ExpenseModel{}, ExpenseSortFields},
		"invoices":   {&models.InvoiceModel{}, DocumentSortFields},
		"notes":      {&models.NoteModel{}, NoteSortFields},
		"quotations": {&models.QuotationModel{}, DocumentSortFields},
	}
	for name, tt := range tables {
		for field := range tt.fields {
			assert.True(t, db.Migrator().HasColumn(tt.model, field), "%s.%s", name, field)
		}
	}
}

func TestPaginate(t *testing.T) {
	db := setupTestDB(t)
	dry := db.Session(&gorm.Session{DryRun: true})

	stmt := paginate(dry.Table("leads"), "leads", shared.Filter{
		Page: 2, PageSize: 10, OrderBy: "company", OrderDir: "asc",
	}, LeadSortFields).Find(&[]models.LeadModel{}).Statement
	assert.Contains(t, stmt.SQL.String(), "ORDER BY leads.company ASC")

	stmt = paginate(dry.Table("leads"), "leads", shared.Filter{
		OrderBy: "password_hash", OrderDir: "sideways",
	}, LeadSortFields).Find(&[]models.LeadModel{}).Statement
	assert.Contains(t, stmt.SQL.String(), "ORDER BY leads.created_at DESC")
}

func TestTranslateError(t *testing.T) {
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound), shared.ErrNotFound)
	other := errors.New("connection reset")
	assert.Equal(t, other, translateError(other))
	assert.Equal(t, "%acme%", searchPattern("  ACME "))
	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey), shared.ErrAlreadyExists)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "INV-", escapeLike("INV-"))
	assert.Equal(t, `A\_1\%`, escapeLike("A_1%"))
	assert.Equal(t, `C:\\`, escapeLike(`C:\`))
}
