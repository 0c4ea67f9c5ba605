package crm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/csvimport"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxImportRows   = 1000
	maxImportErrors = 100
)

// leadImportRules match the limits enforced by the lead aggregate
var leadImportRules = []csvimport.FieldRule{
	csvimport.Field("name").Required().MaxLength(200).Build(),
	csvimport.Field("company").MaxLength(200).Build(),
	csvimport.Field("email").Email().MaxLength(255).Unique().Build(),
	csvimport.Field("phone").MaxLength(50).Build(),
	csvimport.Field("source").MaxLength(100).Build(),
	csvimport.Field("estimated_value").Decimal().Min(decimal.Zero).Build(),
	csvimport.Field("currency").Custom(func(v string) error {
		_, err := crm.NormalizeCurrency(v)
		return err
	}).Build(),
}

// ImportCSV creates one lead per row, owned by the actor. The whole file is
// validated first; nothing is written when any row is rejected or dryRun is set.
func (s *LeadService) ImportCSV(ctx context.Context, actor identity.Actor, r io.Reader, dryRun bool) (*LeadImportResultDTO, error) {
	parser, err := csvimport.NewParser(r)
	if err != nil {
		return nil, importFileError(err)
	}
	if missing := parser.MissingHeaders("name"); len(missing) > 0 {
		return nil, shared.NewDomainError("INVALID_IMPORT_FILE", "Missing required columns: "+strings.Join(missing, ", "))
	}

	validator := csvimport.NewValidator(leadImportRules, maxImportErrors)
	var leads []*crm.Lead
	total := 0
	for {
		row, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, shared.NewDomainError("INVALID_IMPORT_FILE", err.Error())
		}
		total++
		if total > maxImportRows {
			return nil, shared.NewDomainError("IMPORT_TOO_LARGE", "Imports are limited to 1000 rows")
		}
		if !validator.ValidateRow(row) {
			continue
		}
		lead, err := leadFromRow(actor, row)
		if err != nil {
			validator.Errors().Add(csvimport.RowError{Row: row.Line, Code: csvimport.CodeInvalid, Message: err.Error()})
			continue
		}
		leads = append(leads, lead)
	}
	if total == 0 {
		return nil, shared.NewDomainError("INVALID_IMPORT_FILE", "CSV file contains no data rows")
	}

	errs := validator.Errors()
	result := &LeadImportResultDTO{
		TotalRows:   total,
		ValidRows:   len(leads),
		Errors:      errs.Errors(),
		TotalErrors: errs.TotalCount(),
		IsTruncated: errs.IsTruncated(),
		DryRun:      dryRun,
	}
	if dryRun || errs.HasErrors() {
		return result, nil
	}

	if err := s.leadRepo.CreateBatch(ctx, leads); err != nil {
		s.logger.Error("Lead import aborted", zap.Int("total", total))
		return nil, internalError(s.logger, err, "import leads")
	}
	result.Imported = len(leads)
	s.logger.Info("Leads imported",
		zap.String("user_id", actor.UserID.String()),
		zap.Int("count", result.Imported))
	return result, nil
}

func leadFromRow(actor identity.Actor, row *csvimport.Row) (*crm.Lead, error) {
	lead, err := crm.NewLead(actor.UserID, row.Get("name"))
	if err != nil {
		return nil, err
	}
	if err := lead.UpdateDetails(row.Get("name"), row.Get("company"), row.Get("email"), row.Get("phone"), row.Get("source")); err != nil {
		return nil, err
	}
	value := decimal.Zero
	if raw := row.Get("estimated_value"); raw != "" {
		value = decimal.RequireFromString(raw)
	}
	if err := lead.SetEstimatedValue(value, row.Get("currency")); err != nil {
		return nil, err
	}
	return lead, nil
}

func importFileError(err error) error {
	switch {
	case errors.Is(err, csvimport.ErrEmptyFile), errors.Is(err, csvimport.ErrMissingHeader),
		errors.Is(err, csvimport.ErrInvalidEncoding):
		return shared.NewDomainError("INVALID_IMPORT_FILE", err.Error())
	default:
		return shared.NewDomainError("INVALID_IMPORT_FILE", "Failed to read CSV file")
	}
}
