package crm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadService_ImportCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate emails reject the file", func(t *testing.T) {
		f := newLeadFixture(t)
		file := "name,email\nA,a@acme.test\nB,A@acme.test\n"
		result, err := f.service.ImportCSV(ctx, f.repActor(), strings.NewReader(file), false)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Imported)
		assert.Equal(t, 1, result.ValidRows)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "email", result.Errors[0].Column)
		assert.Empty(t, f.leads.all(f.repActor().Scope))
	})

	t.Run("unknown currency", func(t *testing.T) {
		f := newLeadFixture(t)
		result, err := f.service.ImportCSV(ctx, f.repActor(), strings.NewReader("name,currency\nA,QQQ\n"), false)
		require.NoError(t, err)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "currency", result.Errors[0].Column)
	})

	t.Run("row limit", func(t *testing.T) {
		f := newLeadFixture(t)
		file := "name\n" + strings.Repeat("Lead\n", maxImportRows+1)
		_, err := f.service.ImportCSV(ctx, f.repActor(), strings.NewReader(file), true)
		assertDomainCode(t, err, "IMPORT_TOO_LARGE")
	})

	t.Run("header only", func(t *testing.T) {
		f := newLeadFixture(t)
		_, err := f.service.ImportCSV(ctx, f.repActor(), strings.NewReader("name\n"), false)
		assertDomainCode(t, err, "INVALID_IMPORT_FILE")
	})

	t.Run("creates leads with normalized values", func(t *testing.T) {
		f := newLeadFixture(t)
		file := "name,company,estimated_value,currency\nJane,Acme,99.999,eur\n"
		result, err := f.service.ImportCSV(ctx, f.repActor(), strings.NewReader(file), false)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)

		leads := f.leads.all(f.repActor().Scope)
		require.Len(t, leads, 1)
		assert.Equal(t, "EUR", leads[0].Currency)
		assert.Equal(t, "100", leads[0].EstimatedValue.String())
		assert.Equal(t, f.rep.ID, leads[0].CreatedBy)
	})

	t.Run("storage failure writes nothing", func(t *testing.T) {
		f := newLeadFixture(t)
		f.leads.failBatchAt = 2
		_, err := f.service.ImportCSV(ctx, f.repActor(), strings.NewReader("name\nA\nB\nC\nD\n"), false)
		assertDomainCode(t, err, "INTERNAL_ERROR")
		assert.Empty(t, f.leads.all(f.repActor().Scope))
	})
}
