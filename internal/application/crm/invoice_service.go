package crm

import (
	"context"
	"errors"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceService handles invoice operations within the caller's access scope
type InvoiceService struct {
	invoiceRepo crm.InvoiceRepository
	dealRepo    crm.DealRepository
	settings    *SettingsService
	renderer    DocumentRenderer
	deps        Collaborators
	logger      *zap.Logger
	now         func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo crm.InvoiceRepository,
	dealRepo crm.DealRepository,
	settings *SettingsService,
	renderer DocumentRenderer,
	deps Collaborators,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		dealRepo:    dealRepo,
		settings:    settings,
		renderer:    renderer,
		deps:        deps,
		logger:      deps.Logger,
		now:         time.Now,
	}
}

// Create creates a draft invoice, numbering it from the invoice prefix when no number is given
func (s *InvoiceService) Create(ctx context.Context, actor identity.Actor, input InvoiceInput) (*InvoiceDTO, error) {
	if err := checkDealLink(ctx, s.dealRepo, s.logger, actor, input.DealID); err != nil {
		return nil, err
	}

	number, prefix := input.Number, ""
	if number == "" {
		settings, err := s.settings.Current(ctx)
		if err != nil {
			return nil, err
		}
		prefix = settings.InvoicePrefix
		if number, err = s.invoiceRepo.NextNumber(ctx, prefix); err != nil {
			return nil, internalError(s.logger, err, "allocate invoice number")
		}
	}

	invoice, err := crm.NewInvoice(actor.UserID, number, input.CustomerName, input.Currency, input.IssueDate, toLineItems(input.Items))
	if err != nil {
		return nil, err
	}
	if err := applyDocumentInput(&invoice.Document, input.DocumentInput); err != nil {
		return nil, err
	}
	if err := invoice.SetDueDate(input.DueDate); err != nil {
		return nil, err
	}

	err = insertNumbered(ctx, &invoice.Document, input.Number == "",
		func(ctx context.Context) (string, error) {
			return s.invoiceRepo.NextNumber(ctx, prefix)
		},
		func() error { return s.invoiceRepo.Create(ctx, invoice) })
	if err != nil {
		return nil, numberedError(s.logger, err, "create invoice")
	}

	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("total", invoice.Total.String()))
	return toInvoiceDTO(invoice, s.now()), nil
}

// GetByID returns a visible invoice
func (s *InvoiceService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "invoice")
	}
	return toInvoiceDTO(invoice, s.now()), nil
}

// List returns the visible invoices matching the filter
func (s *InvoiceService) List(ctx context.Context, actor identity.Actor, filter crm.DocumentFilter) (*shared.Paginated[InvoiceDTO], error) {
	filter.Filter = filter.Normalize()
	invoices, total, err := s.invoiceRepo.FindAll(ctx, actor.Scope, filter)
	if err != nil {
		return nil, internalError(s.logger, err, "list invoices")
	}

	now := s.now()
	items := make([]InvoiceDTO, len(invoices))
	for i, invoice := range invoices {
		items[i] = *toInvoiceDTO(invoice, now)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update edits a draft invoice
func (s *InvoiceService) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input InvoiceInput) (*InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "invoice")
	}
	if err := invoice.EnsureEditable(); err != nil {
		return nil, err
	}
	if err := checkDealLink(ctx, s.dealRepo, s.logger, actor, input.DealID); err != nil {
		return nil, err
	}
	if err := applyDocumentInput(&invoice.Document, input.DocumentInput); err != nil {
		return nil, err
	}
	if err := invoice.Document.SetItems(toLineItems(input.Items)); err != nil {
		return nil, err
	}
	if err := invoice.SetDueDate(input.DueDate); err != nil {
		return nil, err
	}
	invoice.IncrementVersion()

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, internalError(s.logger, err, "update invoice")
	}
	return toInvoiceDTO(invoice, s.now()), nil
}

// Delete soft-deletes a visible invoice
func (s *InvoiceService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := s.invoiceRepo.Delete(ctx, actor.Scope, id); err != nil {
		return lookupError(s.logger, err, "invoice")
	}
	return nil
}

// MarkSent issues a draft invoice
func (s *InvoiceService) MarkSent(ctx context.Context, actor identity.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	return s.transition(ctx, actor, id, "send invoice", (*crm.Invoice).MarkSent)
}

// MarkPaid records the payment of a sent invoice
func (s *InvoiceService) MarkPaid(ctx context.Context, actor identity.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	paidAt := s.now()
	dto, err := s.transition(ctx, actor, id, "mark invoice paid", func(i *crm.Invoice) error { return i.MarkPaid(paidAt) })
	if err != nil {
		return nil, err
	}
	s.deps.publish(ctx, shared.NewDomainEvent(EventInvoicePaid, "invoice", dto.ID, map[string]any{
		"number":   dto.Number,
		"total":    dto.Total.String(),
		"currency": dto.Currency,
	}))
	return dto, nil
}

// Cancel voids an unpaid invoice
func (s *InvoiceService) Cancel(ctx context.Context, actor identity.Actor, id uuid.UUID) (*InvoiceDTO, error) {
	return s.transition(ctx, actor, id, "cancel invoice", (*crm.Invoice).Cancel)
}

func (s *InvoiceService) transition(ctx context.Context, actor identity.Actor, id uuid.UUID, action string, apply func(*crm.Invoice) error) (*InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "invoice")
	}
	if err := apply(invoice); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, internalError(s.logger, err, action)
	}

	s.logger.Info("Invoice status changed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("status", string(invoice.Status)))
	return toInvoiceDTO(invoice, s.now()), nil
}

// RenderPDF renders a visible invoice and returns the PDF with a file name
func (s *InvoiceService) RenderPDF(ctx context.Context, actor identity.Actor, id uuid.UUID) ([]byte, string, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, "", lookupError(s.logger, err, "invoice")
	}
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, "", err
	}

	pdf, err := s.renderer.Invoice(invoice, settings)
	if err != nil {
		return nil, "", internalError(s.logger, err, "render invoice")
	}
	return pdf, invoice.Number + ".pdf", nil
}

// applyDocumentInput copies the editable header fields onto a document
func applyDocumentInput(doc *crm.Document, input DocumentInput) error {
	if err := doc.SetCustomer(input.CustomerName, input.CustomerEmail); err != nil {
		return err
	}
	currency, err := crm.NormalizeCurrency(input.Currency)
	if err != nil {
		return err
	}
	doc.Currency = currency
	doc.DealID = input.DealID
	doc.Notes = input.Notes
	if !input.IssueDate.IsZero() {
		doc.IssueDate = input.IssueDate.UTC()
	}
	return nil
}

var errNumberTaken = shared.NewDomainError("DOCUMENT_NUMBER_TAKEN", "Document number is already in use")

// insertNumbered runs insert and, when an allocated number was taken by a
// concurrent insert, allocates a fresh one and tries once more. A number
// chosen by the caller is never replaced.
func insertNumbered(ctx context.Context, doc *crm.Document, allocated bool, next func(context.Context) (string, error), insert func() error) error {
	err := insert()
	if !errors.Is(err, shared.ErrAlreadyExists) {
		return err
	}
	if !allocated {
		return errNumberTaken
	}
	number, err := next(ctx)
	if err != nil {
		return err
	}
	doc.Number = number
	if err := insert(); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return errNumberTaken
		}
		return err
	}
	return nil
}

func numberedError(logger *zap.Logger, err error, action string) error {
	if errors.Is(err, errNumberTaken) {
		return err
	}
	return internalError(logger, err, action)
}

func checkDealLink(ctx context.Context, dealRepo crm.DealRepository, logger *zap.Logger, actor identity.Actor, dealID *uuid.UUID) error {
	if dealID == nil {
		return nil
	}
	if _, err := dealRepo.FindByID(ctx, actor.Scope, *dealID); err != nil {
		return lookupError(logger, err, "deal")
	}
	return nil
}
