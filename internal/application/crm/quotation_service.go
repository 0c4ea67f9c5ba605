package crm

import (
	"context"
	"errors"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuotationService handles quotation operations within the caller's access scope
type QuotationService struct {
	quotationRepo crm.QuotationRepository
	invoiceRepo   crm.InvoiceRepository
	dealRepo      crm.DealRepository
	settings      *SettingsService
	renderer      DocumentRenderer
	deps          Collaborators
	logger        *zap.Logger
	now           func() time.Time
}

// NewQuotationService creates a new QuotationService
func NewQuotationService(
	quotationRepo crm.QuotationRepository,
	invoiceRepo crm.InvoiceRepository,
	dealRepo crm.DealRepository,
	settings *SettingsService,
	renderer DocumentRenderer,
	deps Collaborators,
) *QuotationService {
	return &QuotationService{
		quotationRepo: quotationRepo,
		invoiceRepo:   invoiceRepo,
		dealRepo:      dealRepo,
		settings:      settings,
		renderer:      renderer,
		deps:          deps,
		logger:        deps.Logger,
		now:           time.Now,
	}
}

// Create creates a draft quotation, numbering it from the quotation prefix when no number is given
func (s *QuotationService) Create(ctx context.Context, actor identity.Actor, input QuotationInput) (*QuotationDTO, error) {
	if err := checkDealLink(ctx, s.dealRepo, s.logger, actor, input.DealID); err != nil {
		return nil, err
	}

	number, prefix := input.Number, ""
	if number == "" {
		settings, err := s.settings.Current(ctx)
		if err != nil {
			return nil, err
		}
		prefix = settings.QuotationPrefix
		if number, err = s.quotationRepo.NextNumber(ctx, prefix); err != nil {
			return nil, internalError(s.logger, err, "allocate quotation number")
		}
	}

	quotation, err := crm.NewQuotation(actor.UserID, number, input.CustomerName, input.Currency, input.IssueDate, toLineItems(input.Items))
	if err != nil {
		return nil, err
	}
	if err := applyDocumentInput(&quotation.Document, input.DocumentInput); err != nil {
		return nil, err
	}
	if err := quotation.SetValidUntil(input.ValidUntil); err != nil {
		return nil, err
	}

	err = insertNumbered(ctx, &quotation.Document, input.Number == "",
		func(ctx context.Context) (string, error) { return s.quotationRepo.NextNumber(ctx, prefix) },
		func() error { return s.quotationRepo.Create(ctx, quotation) })
	if err != nil {
		return nil, numberedError(s.logger, err, "create quotation")
	}

	s.logger.Info("Quotation created",
		zap.String("quotation_id", quotation.ID.String()),
		zap.String("number", quotation.Number))
	return toQuotationDTO(quotation), nil
}

// GetByID returns a visible quotation
func (s *QuotationService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*QuotationDTO, error) {
	quotation, err := s.quotationRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "quotation")
	}
	return toQuotationDTO(quotation), nil
}

// List returns the visible quotations matching the filter
func (s *QuotationService) List(ctx context.Context, actor identity.Actor, filter crm.DocumentFilter) (*shared.Paginated[QuotationDTO], error) {
	filter.Filter = filter.Normalize()
	quotations, total, err := s.quotationRepo.FindAll(ctx, actor.Scope, filter)
	if err != nil {
		return nil, internalError(s.logger, err, "list quotations")
	}

	items := make([]QuotationDTO, len(quotations))
	for i, quotation := range quotations {
		items[i] = *toQuotationDTO(quotation)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update edits a draft quotation
func (s *QuotationService) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input QuotationInput) (*QuotationDTO, error) {
	quotation, err := s.quotationRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "quotation")
	}
	if err := quotation.EnsureEditable(); err != nil {
		return nil, err
	}
	if err := checkDealLink(ctx, s.dealRepo, s.logger, actor, input.DealID); err != nil {
		return nil, err
	}
	if err := applyDocumentInput(&quotation.Document, input.DocumentInput); err != nil {
		return nil, err
	}
	if err := quotation.Document.SetItems(toLineItems(input.Items)); err != nil {
		return nil, err
	}
	if err := quotation.SetValidUntil(input.ValidUntil); err != nil {
		return nil, err
	}
	quotation.IncrementVersion()

	if err := s.quotationRepo.Update(ctx, quotation); err != nil {
		return nil, internalError(s.logger, err, "update quotation")
	}
	return toQuotationDTO(quotation), nil
}

// Delete soft-deletes a visible quotation
func (s *QuotationService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := s.quotationRepo.Delete(ctx, actor.Scope, id); err != nil {
		return lookupError(s.logger, err, "quotation")
	}
	return nil
}

// MarkSent sends a draft quotation
func (s *QuotationService) MarkSent(ctx context.Context, actor identity.Actor, id uuid.UUID) (*QuotationDTO, error) {
	return s.transition(ctx, actor, id, "send quotation", (*crm.Quotation).MarkSent)
}

// Reject records the customer's refusal
func (s *QuotationService) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID) (*QuotationDTO, error) {
	return s.transition(ctx, actor, id, "reject quotation", (*crm.Quotation).Reject)
}

func (s *QuotationService) transition(ctx context.Context, actor identity.Actor, id uuid.UUID, action string, apply func(*crm.Quotation) error) (*QuotationDTO, error) {
	quotation, err := s.quotationRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "quotation")
	}
	if err := apply(quotation); err != nil {
		return nil, err
	}

	if err := s.quotationRepo.Update(ctx, quotation); err != nil {
		return nil, internalError(s.logger, err, action)
	}
	return toQuotationDTO(quotation), nil
}

// Accept records the customer's acceptance and converts the quotation into
// a draft invoice with the same items. An expired offer is marked expired
// and rejected.
func (s *QuotationService) Accept(ctx context.Context, actor identity.Actor, id uuid.UUID) (*AcceptQuotationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "QuotationService", "Accept",
		telemetry.AttrUserID.String(actor.UserID.String()))
	defer span.End()

	quotation, err := s.quotationRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "quotation")
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, err
	}
	number, err := s.invoiceRepo.NextNumber(ctx, settings.InvoicePrefix)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, internalError(s.logger, err, "allocate invoice number")
	}

	invoice, err := quotation.Accept(s.now(), number, actor.UserID)
	if err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "QUOTATION_EXPIRED" {
			if updateErr := s.quotationRepo.Update(ctx, quotation); updateErr != nil {
				s.logger.Error("Failed to mark quotation expired", zap.Error(updateErr))
			}
		}
		return nil, err
	}

	err = insertNumbered(ctx, &invoice.Document, true,
		func(ctx context.Context) (string, error) {
			return s.invoiceRepo.NextNumber(ctx, settings.InvoicePrefix)
		},
		func() error { return s.invoiceRepo.Create(ctx, invoice) })
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, numberedError(s.logger, err, "create invoice")
	}
	if err := s.quotationRepo.Update(ctx, quotation); err != nil {
		telemetry.RecordError(span, err)
		if delErr := s.invoiceRepo.Delete(ctx, identity.Unrestricted(), invoice.ID); delErr != nil {
			s.logger.Error("Failed to remove invoice after quotation update failure", zap.Error(delErr))
		}
		return nil, internalError(s.logger, err, "accept quotation")
	}

	if quotation.CreatedBy != actor.UserID {
		s.deps.notify(ctx, quotation.CreatedBy, crm.NotificationQuotationAccepted,
			"Quotation accepted", "Quotation "+quotation.Number+" was accepted and invoiced as "+invoice.Number)
	}
	s.deps.publish(ctx, shared.NewDomainEvent(EventQuotationAccepted, "quotation", quotation.ID, map[string]any{
		"invoice_id": invoice.ID.String(),
		"total":      invoice.Total.String(),
	}))

	s.logger.Info("Quotation accepted",
		zap.String("quotation_id", quotation.ID.String()),
		zap.String("invoice_id", invoice.ID.String()))
	return &AcceptQuotationResult{
		Quotation: *toQuotationDTO(quotation),
		Invoice:   *toInvoiceDTO(invoice, s.now()),
	}, nil
}

// RenderPDF renders a visible quotation and returns the PDF with a file name
func (s *QuotationService) RenderPDF(ctx context.Context, actor identity.Actor, id uuid.UUID) ([]byte, string, error) {
	quotation, err := s.quotationRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, "", lookupError(s.logger, err, "quotation")
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, "", err
	}

	pdf, err := s.renderer.Quotation(quotation, settings)
	if err != nil {
		return nil, "", internalError(s.logger, err, "render quotation")
	}
	return pdf, quotation.Number + ".pdf", nil
}
