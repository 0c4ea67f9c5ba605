package crm

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpenseService handles expense submission and review
type ExpenseService struct {
	expenseRepo crm.ExpenseRepository
	deps        Collaborators
	logger      *zap.Logger
	storage     ObjectStorage
	urlExpiry   time.Duration
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(expenseRepo crm.ExpenseRepository, deps Collaborators) *ExpenseService {
	return &ExpenseService{
		expenseRepo: expenseRepo,
		deps:        deps,
		logger:      deps.Logger,
	}
}

// Create submits an expense on behalf of the actor
func (s *ExpenseService) Create(ctx context.Context, actor identity.Actor, input ExpenseInput) (*ExpenseDTO, error) {
	expense, err := crm.NewExpense(actor.UserID, input.Title, input.Category, input.Amount, input.Currency, input.IncurredOn)
	if err != nil {
		return nil, err
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, internalError(s.logger, err, "create expense")
	}

	s.logger.Info("Expense submitted",
		zap.String("expense_id", expense.ID.String()),
		zap.String("amount", expense.Amount.String()))
	return toExpenseDTO(expense), nil
}

// GetByID returns a visible expense
func (s *ExpenseService) GetByID(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ExpenseDTO, error) {
	expense, err := s.expenseRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "expense")
	}
	return toExpenseDTO(expense), nil
}

// List returns the visible expenses matching the filter
func (s *ExpenseService) List(ctx context.Context, actor identity.Actor, filter crm.ExpenseFilter) (*shared.Paginated[ExpenseDTO], error) {
	filter.Filter = filter.Normalize()
	expenses, total, err := s.expenseRepo.FindAll(ctx, actor.Scope, filter)
	if err != nil {
		return nil, internalError(s.logger, err, "list expenses")
	}

	items := make([]ExpenseDTO, len(expenses))
	for i, expense := range expenses {
		items[i] = *toExpenseDTO(expense)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update edits a pending expense. Only the submitter may edit it.
func (s *ExpenseService) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, input ExpenseInput) (*ExpenseDTO, error) {
	expense, err := s.expenseRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "expense")
	}
	if expense.SubmittedBy != actor.UserID {
		return nil, shared.NewDomainError("FORBIDDEN", "Only the submitter can edit an expense")
	}
	if err := expense.UpdateDetails(input.Title, input.Category, input.Amount, input.Currency, input.IncurredOn); err != nil {
		return nil, err
	}

	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return nil, internalError(s.logger, err, "update expense")
	}
	return toExpenseDTO(expense), nil
}

// Delete soft-deletes a visible expense
func (s *ExpenseService) Delete(ctx context.Context, actor identity.Actor, id uuid.UUID) error {
	if err := s.expenseRepo.Delete(ctx, actor.Scope, id); err != nil {
		return lookupError(s.logger, err, "expense")
	}
	return nil
}

// Approve approves a pending expense submitted by someone in the actor's scope
func (s *ExpenseService) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID, note string) (*ExpenseDTO, error) {
	return s.review(ctx, actor, id, func(e *crm.Expense) error { return e.Approve(actor.UserID, note) })
}

// Reject rejects a pending expense; a reason is required
func (s *ExpenseService) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, note string) (*ExpenseDTO, error) {
	return s.review(ctx, actor, id, func(e *crm.Expense) error { return e.Reject(actor.UserID, note) })
}

func (s *ExpenseService) review(ctx context.Context, actor identity.Actor, id uuid.UUID, apply func(*crm.Expense) error) (*ExpenseDTO, error) {
	expense, err := s.expenseRepo.FindByID(ctx, actor.Scope, id)
	if err != nil {
		return nil, lookupError(s.logger, err, "expense")
	}
	if !actor.CanSee(expense.SubmittedBy) {
		return nil, notFound("expense")
	}
	if err := apply(expense); err != nil {
		return nil, err
	}

	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return nil, internalError(s.logger, err, "review expense")
	}

	s.deps.notify(ctx, expense.SubmittedBy, crm.NotificationExpenseReviewed,
		"Expense "+string(expense.Status), "Your expense \""+expense.Title+"\" was "+string(expense.Status))
	s.deps.publish(ctx, shared.NewDomainEvent(EventExpenseReviewed, "expense", expense.ID, map[string]any{
		"status":      string(expense.Status),
		"reviewed_by": actor.UserID.String(),
	}))

	s.logger.Info("Expense reviewed",
		zap.String("expense_id", expense.ID.String()),
		zap.String("status", string(expense.Status)))
	return toExpenseDTO(expense), nil
}
